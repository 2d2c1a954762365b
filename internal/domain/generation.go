package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// OutputFailed is the reserved output value of a generation that was attempted and failed.
const OutputFailed = "error"

// DefaultAspectRatio applies when a request does not name one.
const DefaultAspectRatio = "1:1"

// GenerationStatus is derived from the output column; it is never stored.
type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationSucceeded GenerationStatus = "succeeded"
	GenerationFailed    GenerationStatus = "failed"
)

// Generation is one request-to-model lifecycle. SourceImageIDs keeps the order
// in which images were supplied; the model receives them in that order.
type Generation struct {
	ID             string     `json:"id"`
	Prompt         string     `json:"prompt"`
	AspectRatio    string     `json:"aspect_ratio"`
	Output         *string    `json:"output_image_path"`
	SourceImageID  *string    `json:"source_image_id"`
	SourceImageIDs []string   `json:"source_image_ids"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}

// Status reports the lifecycle state encoded in Output.
func (g Generation) Status() GenerationStatus {
	switch {
	case g.Output == nil:
		return GenerationPending
	case *g.Output == OutputFailed:
		return GenerationFailed
	default:
		return GenerationSucceeded
	}
}

// MirrorPrimarySource keeps SourceImageID in step with the first ordered source.
func (g *Generation) MirrorPrimarySource() {
	if len(g.SourceImageIDs) == 0 {
		g.SourceImageID = nil
		return
	}
	first := g.SourceImageIDs[0]
	g.SourceImageID = &first
}

// IsTextOutput reports whether the output artifact is a text document.
func IsTextOutput(ref string) bool {
	return strings.HasSuffix(strings.ToLower(ref), ".txt")
}

var aspectRatioPattern = regexp.MustCompile(`^[1-9][0-9]*:[1-9][0-9]*$`)

// NormalizeAspectRatio trims ar, applies the default when empty and rejects
// anything that is not "<width>:<height>".
func NormalizeAspectRatio(ar string) (string, error) {
	ar = strings.TrimSpace(ar)
	if ar == "" {
		return DefaultAspectRatio, nil
	}
	if !aspectRatioPattern.MatchString(ar) {
		return "", fmt.Errorf("%w: aspect_ratio must look like 16:9", ErrValidation)
	}
	return ar, nil
}
