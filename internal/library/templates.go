package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bananaart/internal/domain"
	"bananaart/internal/infra"
)

// TemplateInput is the payload of a template create.
type TemplateInput struct {
	Name        string
	Prompt      string
	AspectRatio string
	ImageIDs    []string
}

// Templates manages prompt templates.
type Templates struct {
	repo   domain.TemplateRepository
	images *Images
	logger infra.Logger
	now    func() time.Time
}

// NewTemplates builds the template service. images is used to check that
// referenced images exist when a template is written.
func NewTemplates(repo domain.TemplateRepository, images *Images, logger infra.Logger) *Templates {
	return &Templates{repo: repo, images: images, logger: logger, now: time.Now}
}

func (s *Templates) Create(ctx context.Context, in TemplateInput) (*domain.Template, error) {
	now := s.now().UTC()
	t := domain.Template{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Prompt:      in.Prompt,
		AspectRatio: in.AspectRatio,
		ImageIDs:    append([]string{}, in.ImageIDs...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.validate(ctx, &t, true); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &t); err != nil {
		return nil, err
	}
	s.logger.Info().Str("template_id", t.ID).Int("images", len(t.ImageIDs)).Msg("template created")
	return &t, nil
}

// Update applies patch. When ImageIDs is set it replaces the stored order and
// every new id must exist. Otherwise stored ids are kept as they are, including
// ids of images deleted since.
func (s *Templates) Update(ctx context.Context, id string, patch domain.TemplatePatch) (*domain.Template, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t := patch.Apply(*current)
	t.UpdatedAt = s.now().UTC()
	if err := s.validate(ctx, &t, patch.ImageIDs != nil); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Templates) Get(ctx context.Context, id string) (*domain.Template, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Templates) List(ctx context.Context, params domain.ListParams) ([]domain.Template, error) {
	return s.repo.List(ctx, params.Normalize())
}

func (s *Templates) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Images returns the template's reference images in stored order, leaving out
// images deleted since the template was saved.
func (s *Templates) Images(ctx context.Context, t *domain.Template) ([]domain.StoredImage, error) {
	return s.images.ResolveExisting(ctx, t.ImageIDs)
}

func (s *Templates) validate(ctx context.Context, t *domain.Template, checkImages bool) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Prompt = strings.TrimSpace(t.Prompt)
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if t.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", domain.ErrValidation)
	}
	ar, err := domain.NormalizeAspectRatio(t.AspectRatio)
	if err != nil {
		return err
	}
	t.AspectRatio = ar
	if !checkImages {
		return nil
	}
	if _, err := s.images.Resolve(ctx, t.ImageIDs); err != nil {
		return err
	}
	return nil
}
