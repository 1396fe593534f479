package pipeline

import "fmt"

// Stage is a step of a single capture attempt.
type Stage int

const (
	StageIdle Stage = iota
	StageNormalizing
	StageResolvingLocation
	StageClassifying
	StageResolvingLocationName
	StageSaving
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageIdle:                  "idle",
	StageNormalizing:           "normalizing",
	StageResolvingLocation:     "resolving_location",
	StageClassifying:           "classifying",
	StageResolvingLocationName: "resolving_location_name",
	StageSaving:                "saving",
	StageDone:                  "done",
	StageFailed:                "failed",
}

var stageLabels = [...]string{
	StageIdle:                  "",
	StageNormalizing:           "Processing image...",
	StageResolvingLocation:     "Getting location...",
	StageClassifying:           "Identifying cloud type...",
	StageResolvingLocationName: "Looking up place name...",
	StageSaving:                "Saving to collection...",
	StageDone:                  "Saved",
	StageFailed:                "Failed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Label is the progress text shown while the stage runs.
func (s Stage) Label() string {
	if s >= 0 && int(s) < len(stageLabels) {
		return stageLabels[s]
	}
	return ""
}

// Terminal reports whether the capture attempt has finished.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Observer receives every stage transition of a capture, in order, on the
// goroutine that called Capture.
type Observer func(Stage)
