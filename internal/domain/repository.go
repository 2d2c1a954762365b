package domain

import "context"

// ImageRepository persists StoredImage metadata.
type ImageRepository interface {
	Create(ctx context.Context, img *StoredImage) error
	GetByID(ctx context.Context, id string) (*StoredImage, error)
	// GetMany returns the images that exist among ids, in no particular order.
	GetMany(ctx context.Context, ids []string) ([]StoredImage, error)
	List(ctx context.Context, params ListParams) ([]StoredImage, error)
	SetHidden(ctx context.Context, id string, hidden bool) (*StoredImage, error)
	// Delete removes the record and returns it so the caller can drop the binary.
	Delete(ctx context.Context, id string) (*StoredImage, error)
}

// TemplateRepository persists templates and their ranked reference images.
type TemplateRepository interface {
	Create(ctx context.Context, t *Template) error
	Update(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id string) (*Template, error)
	List(ctx context.Context, params ListParams) ([]Template, error)
	Delete(ctx context.Context, id string) error
}

// GenerationRepository persists generations and their ranked source images.
type GenerationRepository interface {
	Create(ctx context.Context, g *Generation) error
	GetByID(ctx context.Context, id string) (*Generation, error)
	List(ctx context.Context, params ListParams) ([]Generation, error)
	MarkStarted(ctx context.Context, id string) error
	// Complete sets the output exactly once; a second call returns ErrConflict.
	Complete(ctx context.Context, id, output string) error
	Delete(ctx context.Context, id string) (*Generation, error)
	// FailPending marks every generation without output as failed.
	FailPending(ctx context.Context) (int64, error)
}
