package generation

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"bananaart/internal/infra"
)

// ImageRef points at a stored image that should be attached to a request.
type ImageRef struct {
	ID         string
	Filename   string
	StorageRef string
}

// ArtifactReader reads stored bytes by reference.
type ArtifactReader interface {
	Read(ctx context.Context, ref string) ([]byte, error)
}

// Composer turns a prompt and ordered images into a model request.
type Composer struct {
	store  ArtifactReader
	logger infra.Logger
}

// NewComposer builds a Composer reading image bytes from store.
func NewComposer(store ArtifactReader, logger infra.Logger) *Composer {
	return &Composer{store: store, logger: logger}
}

// FormatPrompt renders the leading text part.
func FormatPrompt(prompt, aspectRatio string) string {
	return fmt.Sprintf("%s, aspect ratio %s", prompt, aspectRatio)
}

// Compose returns the text part followed by one binary part per image, in the
// order given. Images that cannot be read are logged and skipped.
func (c *Composer) Compose(ctx context.Context, prompt, aspectRatio string, images []ImageRef) Request {
	parts := make([]Part, 0, len(images)+1)
	parts = append(parts, TextPart(FormatPrompt(prompt, aspectRatio)))
	for _, img := range images {
		data, err := c.store.Read(ctx, img.StorageRef)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("image_id", img.ID).
				Str("ref", img.StorageRef).
				Msg("skipping image that could not be attached")
			continue
		}
		parts = append(parts, BinaryPart(data, detectMIME(data, firstNonEmpty(img.Filename, img.StorageRef))))
	}
	return Request{Parts: parts, AspectRatio: aspectRatio}
}

// MergeTemplateImages appends the template's images after the caller's. With
// dedup, template images whose id is already among the caller's are skipped.
func MergeTemplateImages(user, template []ImageRef, dedup bool) []ImageRef {
	out := make([]ImageRef, 0, len(user)+len(template))
	out = append(out, user...)
	seen := make(map[string]struct{}, len(user))
	if dedup {
		for _, img := range user {
			seen[img.ID] = struct{}{}
		}
	}
	for _, img := range template {
		if dedup {
			if _, ok := seen[img.ID]; ok {
				continue
			}
		}
		out = append(out, img)
	}
	return out
}

// detectMIME sniffs data and falls back to the file extension.
func detectMIME(data []byte, name string) string {
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = byExt[:i]
		}
		return strings.TrimSpace(byExt)
	}
	return "application/octet-stream"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
