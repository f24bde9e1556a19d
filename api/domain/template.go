package domain

import (
	"context"
	"errors"
	"time"
)

var ErrTemplateNotFound = errors.New("template not found")

type Template struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     *string    `json:"description,omitempty"`
	StyleType       string     `json:"style_type"`
	PreviewImageURL string     `json:"preview_image_url"`
	StylePrompt     string     `json:"style_prompt"`
	RequiredImages  int        `json:"required_images"`
	IsPremium       bool       `json:"is_premium"`
	SortOrder       int        `json:"sort_order"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (*Template, error)
	GetAll(ctx context.Context) ([]Template, error)
	Insert(ctx context.Context, t *Template) error
}

type TemplateCache interface {
	GetAll(ctx context.Context) ([]Template, error)
	Update(ctx context.Context, templates []Template) error
	Invalidate(ctx context.Context) error
}
