package domain

import (
	"context"
	"time"
)

type Artwork struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	TaskID       string     `json:"task_id"`
	Title        *string    `json:"title,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url"`
	FullImageURL string     `json:"full_image_url"`
	TemplateID   string     `json:"template_id"`
	IsPublic     bool       `json:"is_public"`
	ViewCount    int        `json:"view_count"`
	LikeCount    int        `json:"like_count"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

type ArtworkRepository interface {
	GetByUserID(ctx context.Context, uid string, limit int, offset int) ([]Artwork, error)
	Insert(ctx context.Context, a *Artwork) error
}
