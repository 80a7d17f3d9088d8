package domain

import (
	"fmt"
	"strings"
)

// AspectRatio is the frame shape of an animation.
type AspectRatio string

const (
	AspectWidescreen AspectRatio = "16:9"
	AspectPortrait   AspectRatio = "9:16"
)

// ParseAspectRatio accepts 16:9 / 9:16 and their descriptive names. An empty
// value selects widescreen.
func ParseAspectRatio(raw string) (AspectRatio, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "16:9", "widescreen", "landscape":
		return AspectWidescreen, nil
	case "9:16", "portrait":
		return AspectPortrait, nil
	default:
		return "", fmt.Errorf("%w: aspect ratio %q", ErrUnsupportedOption, raw)
	}
}

// AnimationRequest is created per animate action.
type AnimationRequest struct {
	Source      LogoResult
	StylePrompt string
	AspectRatio AspectRatio
}

// JobStatus enumerates the lifecycle of an animation job.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// AnimationJob mirrors the remote long-running operation. It is only ever
// updated from a status poll.
type AnimationJob struct {
	Handle       string    `json:"handle"`
	Status       JobStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	VideoURI     string    `json:"video_uri,omitempty"`
	Polls        int       `json:"polls"`
}

// Terminal reports whether no further transitions can occur.
func (j AnimationJob) Terminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}

// VideoResult references the downloaded animation in the blob store.
type VideoResult struct {
	Handle    string `json:"handle"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
}
