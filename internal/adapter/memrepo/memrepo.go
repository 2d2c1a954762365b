// Package memrepo keeps repositories in process memory. It backs
// DATABASE_URL=memory:// and the service tests.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"bananaart/internal/domain"
)

// Store holds every table. The repositories returned by its accessors share it.
type Store struct {
	mu          sync.RWMutex
	images      map[string]domain.StoredImage
	templates   map[string]domain.Template
	generations map[string]domain.Generation
	// order breaks created_at ties so listings stay stable.
	order       map[string]uint64
	seq         uint64
	now         func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		images:      map[string]domain.StoredImage{},
		templates:   map[string]domain.Template{},
		generations: map[string]domain.Generation{},
		order:       map[string]uint64{},
		now:         time.Now,
	}
}

func (s *Store) Images() *ImageRepository           { return &ImageRepository{s: s} }
func (s *Store) Templates() *TemplateRepository     { return &TemplateRepository{s: s} }
func (s *Store) Generations() *GenerationRepository { return &GenerationRepository{s: s} }

// track must be called with mu held.
func (s *Store) track(id string) {
	s.seq++
	s.order[id] = s.seq
}

// newer reports whether a sorts before b in a newest-first listing.
func (s *Store) newer(aID string, aAt time.Time, bID string, bAt time.Time) bool {
	if aAt.Equal(bAt) {
		return s.order[aID] > s.order[bID]
	}
	return aAt.After(bAt)
}

func page[T any](items []T, params domain.ListParams) []T {
	params = params.Normalize()
	if params.Offset >= len(items) {
		return []T{}
	}
	end := params.Offset + params.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[params.Offset:end]
}

// ImageRepository implements domain.ImageRepository.
type ImageRepository struct{ s *Store }

func (r *ImageRepository) Create(ctx context.Context, img *domain.StoredImage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.images[img.ID]; ok {
		return domain.ErrConflict
	}
	r.s.images[img.ID] = *img
	r.s.track(img.ID)
	return nil
}

func (r *ImageRepository) GetByID(ctx context.Context, id string) (*domain.StoredImage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	img, ok := r.s.images[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &img, nil
}

func (r *ImageRepository) GetMany(ctx context.Context, ids []string) ([]domain.StoredImage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.StoredImage, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if img, ok := r.s.images[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, img)
		}
	}
	return out, nil
}

func (r *ImageRepository) List(ctx context.Context, params domain.ListParams) ([]domain.StoredImage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.StoredImage, 0, len(r.s.images))
	for _, img := range r.s.images {
		if img.Hidden && !params.IncludeHidden {
			continue
		}
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool {
		return r.s.newer(out[i].ID, out[i].CreatedAt, out[j].ID, out[j].CreatedAt)
	})
	return page(out, params), nil
}

func (r *ImageRepository) SetHidden(ctx context.Context, id string, hidden bool) (*domain.StoredImage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	img, ok := r.s.images[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	img.Hidden = hidden
	r.s.images[id] = img
	return &img, nil
}

// Delete leaves template and generation associations in place.
func (r *ImageRepository) Delete(ctx context.Context, id string) (*domain.StoredImage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	img, ok := r.s.images[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(r.s.images, id)
	delete(r.s.order, id)
	return &img, nil
}

// TemplateRepository implements domain.TemplateRepository.
type TemplateRepository struct{ s *Store }

func cloneTemplate(t domain.Template) domain.Template {
	t.ImageIDs = append([]string{}, t.ImageIDs...)
	return t
}

func (r *TemplateRepository) Create(ctx context.Context, t *domain.Template) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.templates[t.ID]; ok {
		return domain.ErrConflict
	}
	r.s.templates[t.ID] = cloneTemplate(*t)
	r.s.track(t.ID)
	return nil
}

func (r *TemplateRepository) Update(ctx context.Context, t *domain.Template) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.templates[t.ID]
	if !ok {
		return domain.ErrNotFound
	}
	updated := cloneTemplate(*t)
	updated.CreatedAt = current.CreatedAt
	r.s.templates[t.ID] = updated
	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.templates[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	t = cloneTemplate(t)
	return &t, nil
}

func (r *TemplateRepository) List(ctx context.Context, params domain.ListParams) ([]domain.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Template, 0, len(r.s.templates))
	for _, t := range r.s.templates {
		out = append(out, cloneTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return r.s.newer(out[i].ID, out[i].CreatedAt, out[j].ID, out[j].CreatedAt)
	})
	return page(out, params), nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.templates[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.templates, id)
	delete(r.s.order, id)
	return nil
}

// GenerationRepository implements domain.GenerationRepository.
type GenerationRepository struct{ s *Store }

func cloneGeneration(g domain.Generation) domain.Generation {
	g.SourceImageIDs = append([]string{}, g.SourceImageIDs...)
	if g.Output != nil {
		out := *g.Output
		g.Output = &out
	}
	if g.SourceImageID != nil {
		id := *g.SourceImageID
		g.SourceImageID = &id
	}
	if g.StartedAt != nil {
		ts := *g.StartedAt
		g.StartedAt = &ts
	}
	if g.CompletedAt != nil {
		ts := *g.CompletedAt
		g.CompletedAt = &ts
	}
	return g
}

func (r *GenerationRepository) Create(ctx context.Context, g *domain.Generation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.generations[g.ID]; ok {
		return domain.ErrConflict
	}
	stored := cloneGeneration(*g)
	stored.MirrorPrimarySource()
	r.s.generations[g.ID] = stored
	r.s.track(g.ID)
	return nil
}

func (r *GenerationRepository) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.generations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	g = cloneGeneration(g)
	return &g, nil
}

func (r *GenerationRepository) List(ctx context.Context, params domain.ListParams) ([]domain.Generation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Generation, 0, len(r.s.generations))
	for _, g := range r.s.generations {
		out = append(out, cloneGeneration(g))
	}
	sort.Slice(out, func(i, j int) bool {
		return r.s.newer(out[i].ID, out[i].CreatedAt, out[j].ID, out[j].CreatedAt)
	})
	return page(out, params), nil
}

func (r *GenerationRepository) MarkStarted(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.generations[id]
	if !ok {
		return domain.ErrNotFound
	}
	if g.StartedAt == nil {
		now := r.s.now().UTC()
		g.StartedAt = &now
		r.s.generations[id] = g
	}
	return nil
}

func (r *GenerationRepository) Complete(ctx context.Context, id, output string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.generations[id]
	if !ok {
		return domain.ErrNotFound
	}
	if g.Output != nil {
		return domain.ErrConflict
	}
	now := r.s.now().UTC()
	g.Output = &output
	g.CompletedAt = &now
	r.s.generations[id] = g
	return nil
}

func (r *GenerationRepository) Delete(ctx context.Context, id string) (*domain.Generation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.generations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(r.s.generations, id)
	delete(r.s.order, id)
	return &g, nil
}

func (r *GenerationRepository) FailPending(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	now := r.s.now().UTC()
	for id, g := range r.s.generations {
		if g.Output != nil {
			continue
		}
		failed := domain.OutputFailed
		g.Output = &failed
		g.CompletedAt = &now
		r.s.generations[id] = g
		n++
	}
	return n, nil
}

var (
	_ domain.ImageRepository      = (*ImageRepository)(nil)
	_ domain.TemplateRepository   = (*TemplateRepository)(nil)
	_ domain.GenerationRepository = (*GenerationRepository)(nil)
)
