package generation

import (
	"context"
	"fmt"
	"strings"

	"bananaart/internal/storage"
)

// Output is the single artifact selected from a model response.
type Output struct {
	Data []byte
	Ext  string
}

// SelectOutput picks the artifact to keep from resp. The first binary part
// wins; otherwise the accumulated part text; otherwise the aggregate text,
// which is also consulted when the parts carry nothing usable.
// ok is false when the response carries nothing usable.
func SelectOutput(resp *Response) (out Output, ok bool) {
	if resp == nil {
		return Output{}, false
	}
	var text strings.Builder
	for _, p := range resp.Parts {
		switch p.Kind {
		case PartBinary:
			return Output{Data: p.Data, Ext: extensionForMIME(p.MIMEType)}, true
		case PartText:
			text.WriteString(p.Text)
		}
	}
	if text.Len() > 0 {
		return Output{Data: []byte(text.String()), Ext: ".txt"}, true
	}
	if resp.Text != "" {
		return Output{Data: []byte(resp.Text), Ext: ".txt"}, true
	}
	return Output{}, false
}

// Normalizer persists the selected output of a model response.
type Normalizer struct {
	store ArtifactStore
}

// NewNormalizer builds a Normalizer writing into store.
func NewNormalizer(store ArtifactStore) *Normalizer {
	return &Normalizer{store: store}
}

// Normalize stores the selected output under the generated category. ok is
// false when the response has nothing to store.
func (n *Normalizer) Normalize(ctx context.Context, resp *Response) (ref string, ok bool, err error) {
	out, ok := SelectOutput(resp)
	if !ok {
		return "", false, nil
	}
	ref, err = n.store.Store(ctx, storage.CategoryGenerated, out.Data, out.Ext)
	if err != nil {
		return "", false, fmt.Errorf("store generated output: %w", err)
	}
	return ref, true, nil
}

func extensionForMIME(mimeType string) string {
	m := strings.ToLower(mimeType)
	switch {
	case strings.Contains(m, "jpeg"), strings.Contains(m, "jpg"):
		return ".jpg"
	case strings.Contains(m, "webp"):
		return ".webp"
	default:
		return ".png"
	}
}
