package sample

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/couchcryptid/cloudtracker/internal/imagestore"
)

const (
	photoWidth  = 800
	photoHeight = 600
)

type palette struct {
	top, bottom color.RGBA
}

func rgb(r, g, b float64) color.RGBA {
	return color.RGBA{R: uint8(r*255 + 0.5), G: uint8(g*255 + 0.5), B: uint8(b*255 + 0.5), A: 255}
}

func white(alpha float64) color.NRGBA {
	return color.NRGBA{R: 255, G: 255, B: 255, A: uint8(alpha*255 + 0.5)}
}

func gray(level, alpha float64) color.NRGBA {
	v := uint8(level*255 + 0.5)
	return color.NRGBA{R: v, G: v, B: v, A: uint8(alpha*255 + 0.5)}
}

// Photo renders c as an 800x600 JPEG: a vertical gradient, stylized cloud
// shapes for its type and the type name along the bottom edge.
func Photo(c Capture) ([]byte, error) {
	img := Render(c, photoWidth, photoHeight)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: imagestore.StorageQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render draws c onto a new w by h canvas.
func Render(c Capture, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	gradient(img, c.palette)

	cv := canvas{img: img, w: float64(w), h: float64(h)}
	switch c.CloudType {
	case "Cirrus":
		cv.cirrus()
	case "Stratus":
		cv.stratus()
	case "Cumulonimbus":
		cv.cumulonimbus()
	default:
		cv.cumulus()
	}
	cv.label(c.CloudType)
	return img
}

func gradient(img *image.RGBA, p palette) {
	b := img.Bounds()
	span := float64(b.Dy() - 1)
	if span <= 0 {
		span = 1
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		t := float64(y-b.Min.Y) / span
		row := color.RGBA{
			R: lerp(p.top.R, p.bottom.R, t),
			G: lerp(p.top.G, p.bottom.G, t),
			B: lerp(p.top.B, p.bottom.B, t),
			A: 255,
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, row)
		}
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// ellipse is an alpha mask covering the ellipse inscribed in r.
type ellipse struct {
	r image.Rectangle
}

func (e ellipse) ColorModel() color.Model { return color.AlphaModel }
func (e ellipse) Bounds() image.Rectangle { return e.r }

func (e ellipse) At(x, y int) color.Color {
	rx := float64(e.r.Dx()) / 2
	ry := float64(e.r.Dy()) / 2
	if rx <= 0 || ry <= 0 {
		return color.Transparent
	}
	dx := (float64(x) + 0.5 - float64(e.r.Min.X) - rx) / rx
	dy := (float64(y) + 0.5 - float64(e.r.Min.Y) - ry) / ry
	if dx*dx+dy*dy <= 1 {
		return color.Opaque
	}
	return color.Transparent
}

type canvas struct {
	img  *image.RGBA
	w, h float64
}

// fillEllipse composites c over the ellipse inscribed in the rectangle at
// (x, y) with the given size.
func (cv canvas) fillEllipse(c color.Color, x, y, w, h float64) {
	r := image.Rect(int(math.Round(x)), int(math.Round(y)), int(math.Round(x+w)), int(math.Round(y+h)))
	clip := r.Intersect(cv.img.Bounds())
	if clip.Empty() {
		return
	}
	draw.DrawMask(cv.img, clip, image.NewUniform(c), image.Point{}, ellipse{r: r}, clip.Min, draw.Over)
}

// strokeQuad draws a round-capped quadratic curve by stamping discs along it.
func (cv canvas) strokeQuad(c color.Color, x0, y0, cx, cy, x1, y1, width float64) {
	const steps = 200
	r := width / 2
	for i := 0; i <= steps; i++ {
		t := float64(i) / steps
		u := 1 - t
		px := u*u*x0 + 2*u*t*cx + t*t*x1
		py := u*u*y0 + 2*u*t*cy + t*t*y1
		cv.fillEllipse(c, px-r, py-r, width, width)
	}
}

func (cv canvas) cumulus() {
	cx, cy := cv.w/2, cv.h/2
	body := white(0.95)
	cv.fillEllipse(body, cx-100, cy-50, 200, 120)
	cv.fillEllipse(body, cx-180, cy-20, 140, 90)
	cv.fillEllipse(body, cx+40, cy-30, 150, 100)
	cv.fillEllipse(body, cx-60, cy-100, 130, 90)
	cv.fillEllipse(body, cx+20, cy-90, 100, 70)

	distant := white(0.5)
	cv.fillEllipse(distant, 50, 100, 100, 60)
	cv.fillEllipse(distant, 100, 90, 80, 50)
	cv.fillEllipse(distant, cv.w-180, 120, 120, 70)
}

func (cv canvas) cirrus() {
	streaks := [][4]float64{
		{50, 150, 350, 120},
		{200, 200, 550, 160},
		{100, 280, 450, 250},
		{300, 350, 700, 300},
		{400, 180, 750, 140},
	}
	wisp := white(0.8)
	for _, s := range streaks {
		cv.strokeQuad(wisp, s[0], s[1], (s[0]+s[2])/2, s[1]-30, s[2], s[3], 3)
	}

	puff := white(0.4)
	cv.fillEllipse(puff, 150, 130, 60, 30)
	cv.fillEllipse(puff, 400, 170, 50, 25)
	cv.fillEllipse(puff, 550, 280, 70, 35)
}

func (cv canvas) stratus() {
	layer := white(0.7)
	for i := range 5 {
		cv.fillEllipse(layer, -50, float64(100+i*80), cv.w+100, 60)
	}
	depth := white(0.5)
	cv.fillEllipse(depth, -50, 200, cv.w+100, 80)
	cv.fillEllipse(depth, -50, 340, cv.w+100, 70)
}

func (cv canvas) cumulonimbus() {
	cx := cv.w / 2

	base := gray(0.6, 0.9)
	cv.fillEllipse(base, cx-200, cv.h-200, 400, 100)
	cv.fillEllipse(base, cx-150, cv.h-180, 300, 80)

	tower := gray(0.75, 0.9)
	cv.fillEllipse(tower, cx-160, cv.h-320, 320, 180)
	cv.fillEllipse(tower, cx-120, cv.h-380, 240, 140)

	anvil := white(0.95)
	cv.fillEllipse(anvil, cx-180, 60, 360, 120)
	cv.fillEllipse(anvil, cx-100, 40, 200, 80)
	cv.fillEllipse(anvil, cx-140, 100, 280, 100)
	cv.fillEllipse(anvil, cx+80, 50, 150, 70)
}

// label centers text near the bottom edge.
func (cv canvas) label(text string) {
	d := &font.Drawer{
		Dst:  cv.img,
		Src:  image.NewUniform(white(0.6)),
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(text).Round()
	x := (int(cv.w) - width) / 2
	y := int(cv.h) - 25
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}
