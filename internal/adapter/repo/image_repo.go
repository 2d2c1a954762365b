package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bananaart/internal/domain"
	"bananaart/internal/infra"
	"bananaart/internal/sqlinline"
)

// ImageRepositoryPG implements domain.ImageRepository using PostgreSQL.
type ImageRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewImageRepository constructs a new image repository instance.
func NewImageRepository(sql infra.SQLExecutor) *ImageRepositoryPG {
	return &ImageRepositoryPG{sql: sql}
}

func (r *ImageRepositoryPG) Create(ctx context.Context, img *domain.StoredImage) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertImage, img.ID, img.Filename, img.StorageRef, img.Hidden, img.CreatedAt); err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (r *ImageRepositoryPG) GetByID(ctx context.Context, id string) (*domain.StoredImage, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	return scanImage(r.sql.QueryRow(ctx, sqlinline.QSelectImageByID, id))
}

// GetMany skips ids that are not UUIDs; they cannot exist.
func (r *ImageRepositoryPG) GetMany(ctx context.Context, ids []string) ([]domain.StoredImage, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []domain.StoredImage{}, nil
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectImagesByIDs, valid)
	if err != nil {
		return nil, fmt.Errorf("select images: %w", err)
	}
	return collectImages(rows)
}

func (r *ImageRepositoryPG) List(ctx context.Context, params domain.ListParams) ([]domain.StoredImage, error) {
	params = params.Normalize()
	rows, err := r.sql.Query(ctx, sqlinline.QListImages, params.Limit, params.Offset, params.IncludeHidden)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return collectImages(rows)
}

func (r *ImageRepositoryPG) SetHidden(ctx context.Context, id string, hidden bool) (*domain.StoredImage, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	return scanImage(r.sql.QueryRow(ctx, sqlinline.QSetImageHidden, id, hidden))
}

func (r *ImageRepositoryPG) Delete(ctx context.Context, id string) (*domain.StoredImage, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	return scanImage(r.sql.QueryRow(ctx, sqlinline.QDeleteImage, id))
}

func scanImage(row pgx.Row) (*domain.StoredImage, error) {
	var img domain.StoredImage
	if err := row.Scan(&img.ID, &img.Filename, &img.StorageRef, &img.Hidden, &img.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

func collectImages(rows pgx.Rows) ([]domain.StoredImage, error) {
	defer rows.Close()
	images := []domain.StoredImage{}
	for rows.Next() {
		var img domain.StoredImage
		if err := rows.Scan(&img.ID, &img.Filename, &img.StorageRef, &img.Hidden, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return images, nil
}

func validID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}

var _ domain.ImageRepository = (*ImageRepositoryPG)(nil)
