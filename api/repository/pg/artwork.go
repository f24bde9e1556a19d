package pg

import (
	"context"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/google/uuid"
)

type ArtworkPostgresRepository struct {
	pool Querier
}

func CreateArtworkTable() string {
	return `CREATE TABLE IF NOT EXISTS user_artworks
(
	id UUID NOT NULL PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	task_id UUID NOT NULL REFERENCES processing_tasks(id) ON DELETE CASCADE,
	title VARCHAR(200),
	thumbnail_url TEXT NOT NULL,
	full_image_url TEXT NOT NULL,
	template_id UUID NOT NULL REFERENCES templates(id),
	is_public BOOLEAN NOT NULL DEFAULT FALSE,
	view_count INTEGER NOT NULL DEFAULT 0,
	like_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

func (ar *ArtworkPostgresRepository) GetByUserID(ctx context.Context, uid string, limit int, offset int) ([]domain.Artwork, error) {
	rows, err := ar.pool.Query(
		ctx,
		"SELECT id::text, user_id::text, task_id::text, title, thumbnail_url, full_image_url, template_id::text, is_public, view_count, like_count, created_at FROM user_artworks WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		uid,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]domain.Artwork, 0)
	for rows.Next() {
		a := domain.Artwork{}
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.TaskID,
			&a.Title,
			&a.ThumbnailURL,
			&a.FullImageURL,
			&a.TemplateID,
			&a.IsPublic,
			&a.ViewCount,
			&a.LikeCount,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		ret = append(ret, a)
	}
	return ret, rows.Err()
}

func (ar *ArtworkPostgresRepository) Insert(ctx context.Context, a *domain.Artwork) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := ar.pool.QueryRow(
		ctx,
		"INSERT INTO user_artworks (id, user_id, task_id, title, thumbnail_url, full_image_url, template_id, is_public) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at",
		a.ID,
		a.UserID,
		a.TaskID,
		a.Title,
		a.ThumbnailURL,
		a.FullImageURL,
		a.TemplateID,
		a.IsPublic,
	)
	return row.Scan(&a.CreatedAt)
}

func NewArtworkPostgresRepository(pool Querier) *ArtworkPostgresRepository {
	return &ArtworkPostgresRepository{
		pool: pool,
	}
}
