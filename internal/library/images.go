// Package library manages the stored image library and the templates built on it.
package library

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"bananaart/internal/domain"
	"bananaart/internal/infra"
	"bananaart/internal/storage"
)

// ArtifactStore is the storage surface the library writes through.
type ArtifactStore interface {
	Store(ctx context.Context, category storage.Category, data []byte, ext string) (string, error)
	Delete(ctx context.Context, ref string) error
}

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// Images is the image library service.
type Images struct {
	repo   domain.ImageRepository
	store  ArtifactStore
	logger infra.Logger
	now    func() time.Time
}

// NewImages builds the image library.
func NewImages(repo domain.ImageRepository, store ArtifactStore, logger infra.Logger) *Images {
	return &Images{repo: repo, store: store, logger: logger, now: time.Now}
}

// Upload validates and stores an image, then records it.
func (s *Images) Upload(ctx context.Context, filename string, data []byte) (*domain.StoredImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrValidation)
	}
	name := cleanFilename(filename)
	ext, ok := imageExtension(data, name)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an image", domain.ErrValidation, name)
	}

	ref, err := s.store.Store(ctx, storage.CategoryUploads, data, ext)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	img := &domain.StoredImage{
		ID:         uuid.NewString(),
		Filename:   name,
		StorageRef: ref,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, img); err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), ref); derr != nil {
			s.logger.Warn().Err(derr).Str("ref", ref).Msg("remove orphaned upload")
		}
		return nil, fmt.Errorf("record upload: %w", err)
	}
	s.logger.Info().Str("image_id", img.ID).Str("filename", img.Filename).Int("bytes", len(data)).Msg("image uploaded")
	return img, nil
}

// Get returns one image.
func (s *Images) Get(ctx context.Context, id string) (*domain.StoredImage, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns images newest first.
func (s *Images) List(ctx context.Context, params domain.ListParams) ([]domain.StoredImage, error) {
	return s.repo.List(ctx, params.Normalize())
}

// SetHidden toggles the visibility flag.
func (s *Images) SetHidden(ctx context.Context, id string, hidden bool) (*domain.StoredImage, error) {
	return s.repo.SetHidden(ctx, id, hidden)
}

// Delete removes the record and then its binary. Binary removal failures are
// logged only. Generations and templates referencing the image keep its id.
func (s *Images) Delete(ctx context.Context, id string) error {
	img, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, img.StorageRef); err != nil {
		s.logger.Error().Err(err).Str("image_id", id).Str("ref", img.StorageRef).Msg("remove image binary")
	}
	return nil
}

// Resolve returns the images for ids in the same order. Any unknown id yields
// domain.ErrNotFound.
func (s *Images) Resolve(ctx context.Context, ids []string) ([]domain.StoredImage, error) {
	found, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StoredImage, 0, len(ids))
	for _, id := range ids {
		img, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("%w: image %s", domain.ErrNotFound, id)
		}
		out = append(out, img)
	}
	return out, nil
}

// ResolveExisting is Resolve without the existence requirement: ids that no
// longer resolve are logged and left out.
func (s *Images) ResolveExisting(ctx context.Context, ids []string) ([]domain.StoredImage, error) {
	found, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StoredImage, 0, len(ids))
	for _, id := range ids {
		img, ok := found[id]
		if !ok {
			s.logger.Warn().Str("image_id", id).Msg("referenced image no longer exists")
			continue
		}
		out = append(out, img)
	}
	return out, nil
}

func (s *Images) lookup(ctx context.Context, ids []string) (map[string]domain.StoredImage, error) {
	if len(ids) == 0 {
		return map[string]domain.StoredImage{}, nil
	}
	images, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]domain.StoredImage, len(images))
	for _, img := range images {
		found[img.ID] = img
	}
	return found, nil
}

func cleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return norm.NFC.String(name)
}

// imageExtension returns the extension to store data under when its content
// is an image. The filename extension is kept when it agrees with the sniffed
// type. HEIC/HEIF is not recognized by the sniffer and is accepted on its
// extension plus an ISO media "ftyp" box.
func imageExtension(data []byte, filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(sniffed, "image/") {
		if (ext == ".heic" || ext == ".heif") && len(data) >= 12 && string(data[4:8]) == "ftyp" {
			return ext, true
		}
		return "", false
	}
	if imageExtensions[ext] == sniffed {
		return ext, true
	}
	for _, candidate := range []string{".png", ".jpg", ".webp", ".gif", ".bmp"} {
		if imageExtensions[candidate] == sniffed {
			return candidate, true
		}
	}
	return "", true
}
