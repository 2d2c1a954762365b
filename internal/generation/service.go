package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bananaart/internal/domain"
	"bananaart/internal/infra"
)

// Upload is one file received with a direct submit.
type Upload struct {
	Filename string
	Data     []byte
}

// ImageLibrary is the image library surface the service needs.
type ImageLibrary interface {
	Upload(ctx context.Context, filename string, data []byte) (*domain.StoredImage, error)
	Resolve(ctx context.Context, ids []string) ([]domain.StoredImage, error)
}

// TemplateSource loads templates and their reference images.
type TemplateSource interface {
	Get(ctx context.Context, id string) (*domain.Template, error)
	Images(ctx context.Context, t *domain.Template) ([]domain.StoredImage, error)
}

// Enqueuer accepts jobs for background execution.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// SubmitRequest is an ID-based generation request.
type SubmitRequest struct {
	Prompt      string
	AspectRatio string
	ImageIDs    []string
}

// TemplateSubmitRequest applies a template. Prompt and AspectRatio override
// the template's values when set to a non-empty string.
type TemplateSubmitRequest struct {
	TemplateID  string
	ImageIDs    []string
	Prompt      *string
	AspectRatio *string
}

// ServiceOptions toggles delete behaviour.
type ServiceOptions struct {
	DeleteTextOutputs bool
}

// Service is the entry point for submitting, reading and deleting generations.
type Service struct {
	generations domain.GenerationRepository
	images      ImageLibrary
	templates   TemplateSource
	store       ArtifactStore
	queue       Enqueuer
	opts        ServiceOptions
	logger      infra.Logger
	now         func() time.Time
}

// NewService wires the generation service.
func NewService(generations domain.GenerationRepository, images ImageLibrary, templates TemplateSource, store ArtifactStore, queue Enqueuer, opts ServiceOptions, logger infra.Logger) *Service {
	return &Service{
		generations: generations,
		images:      images,
		templates:   templates,
		store:       store,
		queue:       queue,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}

// SubmitByIDs creates a generation from library images.
func (s *Service) SubmitByIDs(ctx context.Context, req SubmitRequest) (*domain.Generation, error) {
	prompt, ar, err := validateInputs(req.Prompt, req.AspectRatio)
	if err != nil {
		return nil, err
	}
	images, err := s.images.Resolve(ctx, req.ImageIDs)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, prompt, ar, toRefs(images))
}

// SubmitUploads stores the uploaded files as library images, then submits them.
func (s *Service) SubmitUploads(ctx context.Context, prompt, aspectRatio string, files []Upload) (*domain.Generation, error) {
	prompt, ar, err := validateInputs(prompt, aspectRatio)
	if err != nil {
		return nil, err
	}
	refs, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, prompt, ar, refs)
}

// SubmitTemplate applies a template to library images. Template images already
// among the caller's images are not attached twice.
func (s *Service) SubmitTemplate(ctx context.Context, req TemplateSubmitRequest) (*domain.Generation, error) {
	tmpl, tmplImages, err := s.loadTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	prompt, ar, err := validateInputs(override(req.Prompt, tmpl.Prompt), override(req.AspectRatio, tmpl.AspectRatio))
	if err != nil {
		return nil, err
	}
	user, err := s.images.Resolve(ctx, req.ImageIDs)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, prompt, ar, MergeTemplateImages(toRefs(user), tmplImages, true))
}

// SubmitTemplateUploads applies a template to freshly uploaded files.
func (s *Service) SubmitTemplateUploads(ctx context.Context, templateID string, prompt, aspectRatio *string, files []Upload) (*domain.Generation, error) {
	tmpl, tmplImages, err := s.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	p, ar, err := validateInputs(override(prompt, tmpl.Prompt), override(aspectRatio, tmpl.AspectRatio))
	if err != nil {
		return nil, err
	}
	user, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, p, ar, MergeTemplateImages(user, tmplImages, false))
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Generation, error) {
	return s.generations.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params domain.ListParams) ([]domain.Generation, error) {
	return s.generations.List(ctx, params.Normalize())
}

// Delete removes the generation and its output artifact. Source images are
// never touched. Text outputs are kept unless DeleteTextOutputs is set.
func (s *Service) Delete(ctx context.Context, id string) error {
	g, err := s.generations.Delete(ctx, id)
	if err != nil {
		return err
	}
	if g.Output == nil || *g.Output == domain.OutputFailed {
		return nil
	}
	ref := *g.Output
	if domain.IsTextOutput(ref) && !s.opts.DeleteTextOutputs {
		return nil
	}
	if err := s.store.Delete(ctx, ref); err != nil {
		s.logger.Error().Err(err).Str("generation_id", id).Str("ref", ref).Msg("remove generation output")
	}
	return nil
}

func (s *Service) submit(ctx context.Context, prompt, aspectRatio string, images []ImageRef) (*domain.Generation, error) {
	g := &domain.Generation{
		ID:             uuid.NewString(),
		Prompt:         prompt,
		AspectRatio:    aspectRatio,
		SourceImageIDs: make([]string, 0, len(images)),
		CreatedAt:      s.now().UTC(),
	}
	for _, img := range images {
		g.SourceImageIDs = append(g.SourceImageIDs, img.ID)
	}
	g.MirrorPrimarySource()

	if err := s.generations.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create generation: %w", err)
	}

	job := Job{GenerationID: g.ID, Prompt: prompt, AspectRatio: aspectRatio, Images: images}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		failed := domain.OutputFailed
		completed := s.now().UTC()
		g.Output = &failed
		g.CompletedAt = &completed
		return g, nil
	}
	s.logger.Info().Str("generation_id", g.ID).Int("images", len(images)).Str("aspect_ratio", aspectRatio).Msg("generation queued")
	return g, nil
}

func (s *Service) upload(ctx context.Context, files []Upload) ([]ImageRef, error) {
	refs := make([]ImageRef, 0, len(files))
	for _, f := range files {
		img, err := s.images.Upload(ctx, f.Filename, f.Data)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ImageRef{ID: img.ID, Filename: img.Filename, StorageRef: img.StorageRef})
	}
	return refs, nil
}

func (s *Service) loadTemplate(ctx context.Context, id string) (*domain.Template, []ImageRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, fmt.Errorf("%w: template_id is required", domain.ErrValidation)
	}
	tmpl, err := s.templates.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	images, err := s.templates.Images(ctx, tmpl)
	if err != nil {
		return nil, nil, err
	}
	return tmpl, toRefs(images), nil
}

func validateInputs(prompt, aspectRatio string) (string, string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", "", fmt.Errorf("%w: prompt is required", domain.ErrValidation)
	}
	ar, err := domain.NormalizeAspectRatio(aspectRatio)
	if err != nil {
		return "", "", err
	}
	return prompt, ar, nil
}

func override(value *string, fallback string) string {
	if value != nil && strings.TrimSpace(*value) != "" {
		return *value
	}
	return fallback
}

func toRefs(images []domain.StoredImage) []ImageRef {
	refs := make([]ImageRef, 0, len(images))
	for _, img := range images {
		refs = append(refs, ImageRef{ID: img.ID, Filename: img.Filename, StorageRef: img.StorageRef})
	}
	return refs
}
