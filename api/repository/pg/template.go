package pg

import (
	"context"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/google/uuid"
)

const templateColumns = "id::text, name, description, style_type, preview_image_url, style_prompt, required_images, is_premium, sort_order, created_at"

type TemplatePostgresRepository struct {
	pool Querier
}

func CreateTemplateTable() string {
	return `CREATE TABLE IF NOT EXISTS templates
(
	id UUID NOT NULL PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	description TEXT,
	style_type VARCHAR(50) NOT NULL,
	preview_image_url TEXT NOT NULL,
	style_prompt TEXT NOT NULL,
	required_images INTEGER NOT NULL DEFAULT 1 CHECK (required_images > 0),
	is_premium BOOLEAN NOT NULL DEFAULT FALSE,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

func scanTemplate(row rowScanner) (*domain.Template, error) {
	t := domain.Template{}
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.StyleType,
		&t.PreviewImageURL,
		&t.StylePrompt,
		&t.RequiredImages,
		&t.IsPremium,
		&t.SortOrder,
		&t.CreatedAt,
	); err != nil {
		return nil, notFound(err, domain.ErrTemplateNotFound)
	}
	return &t, nil
}

func (tr *TemplatePostgresRepository) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrTemplateNotFound
	}
	return scanTemplate(tr.pool.QueryRow(ctx, "SELECT "+templateColumns+" FROM templates WHERE id = $1", id))
}

func (tr *TemplatePostgresRepository) GetAll(ctx context.Context) ([]domain.Template, error) {
	rows, err := tr.pool.Query(ctx, "SELECT "+templateColumns+" FROM templates ORDER BY sort_order ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]domain.Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *t)
	}
	return ret, rows.Err()
}

func (tr *TemplatePostgresRepository) Insert(ctx context.Context, t *domain.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.RequiredImages == 0 {
		t.RequiredImages = 1
	}
	row := tr.pool.QueryRow(
		ctx,
		"INSERT INTO templates (id, name, description, style_type, preview_image_url, style_prompt, required_images, is_premium, sort_order) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at",
		t.ID,
		t.Name,
		t.Description,
		t.StyleType,
		t.PreviewImageURL,
		t.StylePrompt,
		t.RequiredImages,
		t.IsPremium,
		t.SortOrder,
	)
	return row.Scan(&t.CreatedAt)
}

func NewTemplatePostgresRepository(pool Querier) *TemplatePostgresRepository {
	return &TemplatePostgresRepository{
		pool: pool,
	}
}
