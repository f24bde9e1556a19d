package supabase

import (
	"context"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

const templatesTable = "templates"

type TemplateSupabaseRepository struct {
	client *supabase.Client
}

func (tr *TemplateSupabaseRepository) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrTemplateNotFound
	}
	var templates []domain.Template
	_, err := tr.client.From(templatesTable).
		Select("*", "", false).
		Eq("id", id).
		Limit(1, "").
		ExecuteTo(&templates)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, domain.ErrTemplateNotFound
	}
	return &templates[0], nil
}

func (tr *TemplateSupabaseRepository) GetAll(ctx context.Context) ([]domain.Template, error) {
	templates := make([]domain.Template, 0)
	_, err := tr.client.From(templatesTable).
		Select("*", "", false).
		Order("sort_order", ascending()).
		ExecuteTo(&templates)
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (tr *TemplateSupabaseRepository) Insert(ctx context.Context, t *domain.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.RequiredImages == 0 {
		t.RequiredImages = 1
	}
	var rows []domain.Template
	_, err := tr.client.From(templatesTable).
		Insert(t, false, "", returnRepresentation, "").
		ExecuteTo(&rows)
	if err != nil {
		return err
	}
	if len(rows) == 1 {
		*t = rows[0]
	}
	return nil
}

func NewTemplateSupabaseRepository(client *supabase.Client) *TemplateSupabaseRepository {
	return &TemplateSupabaseRepository{
		client: client,
	}
}
