package generation

import (
	"context"

	"bananaart/internal/storage"
)

// PartKind tags the variant held by a Part.
type PartKind int

const (
	PartText PartKind = iota
	PartBinary
)

// Part is one element of a model request or response: either text or binary
// content with its MIME type.
type Part struct {
	Kind     PartKind
	Text     string
	Data     []byte
	MIMEType string
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// BinaryPart builds a binary part.
func BinaryPart(data []byte, mimeType string) Part {
	return Part{Kind: PartBinary, Data: data, MIMEType: mimeType}
}

// Request is the ordered content sent to the model.
type Request struct {
	Parts       []Part
	AspectRatio string
}

// Response is what the model returned. Text is the aggregate text accessor and
// may be set even when Parts is empty.
type Response struct {
	Parts []Part
	Text  string
}

// Model is the external generative model.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ArtifactStore is the subset of the artifact store the generation core uses.
type ArtifactStore interface {
	Store(ctx context.Context, category storage.Category, data []byte, ext string) (string, error)
	Read(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}
