package supabase

import (
	"context"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

const artworksTable = "user_artworks"

type ArtworkSupabaseRepository struct {
	client *supabase.Client
}

func (ar *ArtworkSupabaseRepository) GetByUserID(ctx context.Context, uid string, limit int, offset int) ([]domain.Artwork, error) {
	artworks := make([]domain.Artwork, 0)
	_, err := ar.client.From(artworksTable).
		Select("*", "", false).
		Eq("user_id", uid).
		Order("created_at", descending()).
		Range(offset, offset+limit-1, "").
		ExecuteTo(&artworks)
	if err != nil {
		return nil, err
	}
	return artworks, nil
}

func (ar *ArtworkSupabaseRepository) Insert(ctx context.Context, a *domain.Artwork) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	var rows []domain.Artwork
	_, err := ar.client.From(artworksTable).
		Insert(a, false, "", returnRepresentation, "").
		ExecuteTo(&rows)
	if err != nil {
		return err
	}
	if len(rows) == 1 {
		*a = rows[0]
	}
	return nil
}

func NewArtworkSupabaseRepository(client *supabase.Client) *ArtworkSupabaseRepository {
	return &ArtworkSupabaseRepository{
		client: client,
	}
}
