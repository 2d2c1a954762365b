package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bananaart/internal/domain"
	"bananaart/internal/infra"
	"bananaart/internal/sqlinline"
)

// TemplateRepositoryPG implements domain.TemplateRepository using PostgreSQL.
// Image order is kept in the rank column of template_images.
type TemplateRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewTemplateRepository(sql infra.SQLExecutor) *TemplateRepositoryPG {
	return &TemplateRepositoryPG{sql: sql}
}

func (r *TemplateRepositoryPG) Create(ctx context.Context, t *domain.Template) error {
	var id string
	err := r.sql.QueryRow(ctx, sqlinline.QInsertTemplate,
		t.ID, t.Name, t.Prompt, t.AspectRatio, t.CreatedAt, t.UpdatedAt, nonNil(t.ImageIDs),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (r *TemplateRepositoryPG) Update(ctx context.Context, t *domain.Template) error {
	if !validID(t.ID) {
		return domain.ErrNotFound
	}
	var id string
	err := r.sql.QueryRow(ctx, sqlinline.QUpdateTemplate,
		t.ID, t.Name, t.Prompt, t.AspectRatio, t.UpdatedAt, nonNil(t.ImageIDs),
	).Scan(&id)
	if err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

func (r *TemplateRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	t, err := scanTemplate(r.sql.QueryRow(ctx, sqlinline.QSelectTemplateByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TemplateRepositoryPG) List(ctx context.Context, params domain.ListParams) ([]domain.Template, error) {
	params = params.Normalize()
	rows, err := r.sql.Query(ctx, sqlinline.QListTemplates, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []domain.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *TemplateRepositoryPG) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteTemplate, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTemplate(row pgx.Row) (*domain.Template, error) {
	var t domain.Template
	if err := row.Scan(&t.ID, &t.Name, &t.Prompt, &t.AspectRatio, &t.CreatedAt, &t.UpdatedAt, &t.ImageIDs); err != nil {
		return nil, err
	}
	if t.ImageIDs == nil {
		t.ImageIDs = []string{}
	}
	return &t, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var _ domain.TemplateRepository = (*TemplateRepositoryPG)(nil)
