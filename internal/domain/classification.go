package domain

import (
	"encoding/json"
	"regexp"
	"strings"
)

// UnknownCloudType labels answers that could not be parsed into a classification.
const UnknownCloudType = "Unknown"

// ClassificationPrompt is the fixed instruction sent alongside every photo.
const ClassificationPrompt = `You are a cloud identification expert. Analyze this image and identify the type of cloud shown.

Respond in exactly this JSON format:
{
    "cloudType": "<type of cloud>",
    "description": "<2-3 sentence description of the cloud characteristics and weather implications>"
}

Common cloud types include:
- Cumulus: Puffy, cotton-like clouds with flat bases
- Stratus: Gray, uniform layer covering the sky
- Cirrus: Thin, wispy, high-altitude clouds
- Cumulonimbus: Tall, towering storm clouds
- Stratocumulus: Low, lumpy gray clouds
- Altocumulus: Mid-level white/gray patches
- Altostratus: Gray/blue mid-level sheet
- Cirrostratus: Thin, high-level hazy layer
- Cirrocumulus: Small, high-altitude patches
- Nimbostratus: Dark, rain-producing layer

If no clouds are visible or the image doesn't show the sky, indicate that in your response.`

// fencedBlockRe matches the first triple-backtick block, with an optional
// language tag such as ```json.
var fencedBlockRe = regexp.MustCompile("```[A-Za-z0-9_-]*\\s*([\\s\\S]*?)```")

type rawClassification struct {
	CloudType   *string `json:"cloudType"`
	Description *string `json:"description"`
}

// ParseClassification extracts a Classification from the model's answer. It tries
// the whole answer as a JSON object, then the first fenced block, and otherwise
// falls back to an Unknown label carrying the trimmed answer. It never fails.
func ParseClassification(content string) Classification {
	trimmed := strings.TrimSpace(content)

	if c, ok := decodeClassification(trimmed); ok {
		return c
	}

	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		if c, ok := decodeClassification(strings.TrimSpace(m[1])); ok {
			return c
		}
	}

	return Classification{
		CloudType:   UnknownCloudType,
		Description: trimmed,
	}
}

// decodeClassification accepts any JSON object with string cloudType and
// description fields; other keys are ignored.
func decodeClassification(s string) (Classification, bool) {
	if !strings.HasPrefix(s, "{") {
		return Classification{}, false
	}
	var raw rawClassification
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Classification{}, false
	}
	if raw.CloudType == nil || raw.Description == nil {
		return Classification{}, false
	}
	return Classification{CloudType: *raw.CloudType, Description: *raw.Description}, true
}
