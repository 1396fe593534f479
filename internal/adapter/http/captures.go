package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/cloudtracker/internal/domain"
	"github.com/couchcryptid/cloudtracker/internal/location"
)

// Capturer runs the capture pipeline.
type Capturer interface {
	Capture(ctx context.Context, raw []byte) (domain.CaptureRecord, error)
}

// PermissionController holds the location authorization status.
type PermissionController interface {
	Authorization() location.Authorization
	SetAuthorization(location.Authorization)
}

// CaptureAPI serves the capture collection over JSON.
type CaptureAPI struct {
	capturer    Capturer
	store       domain.RecordStore
	permissions PermissionController
	maxUpload   int64
	logger      *slog.Logger
}

// NewCaptureAPI wires the handlers. maxUpload bounds the multipart body of a
// new capture.
func NewCaptureAPI(capturer Capturer, store domain.RecordStore, permissions PermissionController, maxUpload int64, logger *slog.Logger) *CaptureAPI {
	return &CaptureAPI{
		capturer:    capturer,
		store:       store,
		permissions: permissions,
		maxUpload:   maxUpload,
		logger:      logger,
	}
}

// Routes mounts the API on r.
func (a *CaptureAPI) Routes(r chi.Router) {
	r.Post("/captures", a.handleCreate)
	r.Get("/captures", a.handleList)
	r.Get("/captures/{id}", a.handleGet)
	r.Get("/captures/{id}/image", a.handleImage)
	r.Delete("/captures/{id}", a.handleDelete)
	r.Get("/location/authorization", a.handleGetAuthorization)
	r.Put("/location/authorization", a.handlePutAuthorization)
}

type captureResponse struct {
	domain.CaptureRecord
	DisplayLocation string `json:"display_location"`
	ImageURL        string `json:"image_url"`
}

func newCaptureResponse(rec domain.CaptureRecord) captureResponse {
	return captureResponse{
		CaptureRecord:   rec,
		DisplayLocation: rec.DisplayLocation(),
		ImageURL:        "/api/v1/captures/" + rec.ID + "/image",
	}
}

type authorizationBody struct {
	Status location.Authorization `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *CaptureAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		// multipart does not always wrap the reader error.
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "Photo is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files only

	file, _, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read photo")
		return
	}

	ctx := r.Context()
	fix, ok, err := parseFix(r.FormValue("latitude"), r.FormValue("longitude"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ok {
		ctx = location.WithReportedFix(ctx, fix)
	}

	rec, err := a.capturer.Capture(ctx, raw)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/captures/"+rec.ID)
	sharedobs.WriteJSON(w, http.StatusCreated, newCaptureResponse(rec))
}

func (a *CaptureAPI) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := a.store.List(r.Context())
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	out := make([]captureResponse, len(records))
	for i, rec := range records {
		out[i] = newCaptureResponse(rec)
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string][]captureResponse{"captures": out})
}

func (a *CaptureAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := a.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newCaptureResponse(rec))
}

func (a *CaptureAPI) handleImage(w http.ResponseWriter, r *http.Request) {
	rec, err := a.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(rec.ImageBytes)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.ImageBytes)
}

func (a *CaptureAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *CaptureAPI) handleGetAuthorization(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, authorizationBody{Status: a.permissions.Authorization()})
}

func (a *CaptureAPI) handlePutAuthorization(w http.ResponseWriter, r *http.Request) {
	var body authorizationBody
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<10))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "status must be one of not_determined, authorized, denied, restricted")
		return
	}
	a.permissions.SetAuthorization(body.Status)
	sharedobs.WriteJSON(w, http.StatusOK, authorizationBody{Status: a.permissions.Authorization()})
}

// parseFix reads an optional coordinate pair from form values. Both or
// neither must be present.
func parseFix(latStr, lonStr string) (domain.Coordinates, bool, error) {
	latStr, lonStr = strings.TrimSpace(latStr), strings.TrimSpace(lonStr)
	if latStr == "" && lonStr == "" {
		return domain.Coordinates{}, false, nil
	}
	if latStr == "" || lonStr == "" {
		return domain.Coordinates{}, false, errors.New("latitude and longitude must be provided together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return domain.Coordinates{}, false, fmt.Errorf("invalid latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return domain.Coordinates{}, false, fmt.Errorf("invalid longitude %q", lonStr)
	}
	return domain.Coordinates{Latitude: lat, Longitude: lon}, true, nil
}

func (a *CaptureAPI) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "status", status, "error", err)
	}
	writeError(w, status, domain.UserMessage(err))
}

func statusFor(err error) int {
	var cerr *domain.ClassificationError
	switch {
	case errors.Is(err, domain.ErrImageProcessing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCaptureInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &cerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, errorResponse{Error: msg})
}
