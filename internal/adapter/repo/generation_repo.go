package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bananaart/internal/domain"
	"bananaart/internal/infra"
	"bananaart/internal/sqlinline"
)

// GenerationRepositoryPG implements domain.GenerationRepository using PostgreSQL.
type GenerationRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{sql: sql}
}

// Create inserts the generation and its ranked sources in one statement.
func (r *GenerationRepositoryPG) Create(ctx context.Context, g *domain.Generation) error {
	g.MirrorPrimarySource()
	primary := ""
	if g.SourceImageID != nil {
		primary = *g.SourceImageID
	}
	var id string
	err := r.sql.QueryRow(ctx, sqlinline.QInsertGeneration,
		g.ID, g.Prompt, g.AspectRatio, primary, g.CreatedAt, nonNil(g.SourceImageIDs),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

func (r *GenerationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	g, err := scanGeneration(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationByID, id), true)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *GenerationRepositoryPG) List(ctx context.Context, params domain.ListParams) ([]domain.Generation, error) {
	params = params.Normalize()
	rows, err := r.sql.Query(ctx, sqlinline.QListGenerations, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	generations := []domain.Generation{}
	for rows.Next() {
		g, err := scanGeneration(rows, true)
		if err != nil {
			return nil, err
		}
		generations = append(generations, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return generations, nil
}

func (r *GenerationRepositoryPG) MarkStarted(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkGenerationStarted, id)
	if err != nil {
		return fmt.Errorf("mark generation started: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Complete writes output only when none is recorded yet.
func (r *GenerationRepositoryPG) Complete(ctx context.Context, id, output string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	var found, updated bool
	if err := r.sql.QueryRow(ctx, sqlinline.QCompleteGeneration, id, output).Scan(&found, &updated); err != nil {
		return fmt.Errorf("complete generation: %w", err)
	}
	switch {
	case !found:
		return domain.ErrNotFound
	case !updated:
		return fmt.Errorf("%w: generation %s already has output", domain.ErrConflict, id)
	}
	return nil
}

// Delete returns the removed row without its source list.
func (r *GenerationRepositoryPG) Delete(ctx context.Context, id string) (*domain.Generation, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	g, err := scanGeneration(r.sql.QueryRow(ctx, sqlinline.QDeleteGeneration, id), false)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *GenerationRepositoryPG) FailPending(ctx context.Context) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailPendingGenerations, domain.OutputFailed)
	if err != nil {
		return 0, fmt.Errorf("fail pending generations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanGeneration(row pgx.Row, withSources bool) (*domain.Generation, error) {
	var g domain.Generation
	dest := []any{&g.ID, &g.Prompt, &g.AspectRatio, &g.Output, &g.SourceImageID, &g.CreatedAt, &g.StartedAt, &g.CompletedAt}
	if withSources {
		dest = append(dest, &g.SourceImageIDs)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if g.SourceImageIDs == nil {
		g.SourceImageIDs = []string{}
	}
	return &g, nil
}

var _ domain.GenerationRepository = (*GenerationRepositoryPG)(nil)
