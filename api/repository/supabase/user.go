package supabase

import (
	"context"
	"strconv"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

const usersTable = "users"

type UserSupabaseRepository struct {
	client *supabase.Client
}

func (u *UserSupabaseRepository) getBy(column string, value string) (*domain.User, error) {
	var users []domain.User
	_, err := u.client.From(usersTable).
		Select("*", "", false).
		Eq(column, value).
		Limit(1, "").
		ExecuteTo(&users)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return &users[0], nil
}

// GetByID does not use ctx: the PostgREST client has no per-call context.
func (u *UserSupabaseRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}
	return u.getBy("id", id)
}

func (u *UserSupabaseRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return u.getBy("email", email)
}

func (u *UserSupabaseRepository) Insert(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	var rows []domain.User
	_, err := u.client.From(usersTable).
		Insert(user, false, "", returnRepresentation, "").
		ExecuteTo(&rows)
	if err != nil {
		return err
	}
	if len(rows) == 1 {
		*user = rows[0]
	}
	return nil
}

func (u *UserSupabaseRepository) Update(ctx context.Context, user *domain.User) error {
	var rows []domain.User
	_, err := u.client.From(usersTable).
		Update(map[string]interface{}{
			"name":              user.Name,
			"avatar_url":        user.AvatarURL,
			"subscription_type": user.SubscriptionType,
			"daily_quota":       user.DailyQuota,
			"updated_at":        time.Now().UTC(),
		}, returnRepresentation, "").
		Eq("id", user.ID).
		ExecuteTo(&rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (u *UserSupabaseRepository) ResetQuota(ctx context.Context, id string, from string, to string) (bool, error) {
	var rows []domain.User
	_, err := u.client.From(usersTable).
		Update(map[string]interface{}{
			"used_quota":       0,
			"quota_reset_date": to,
			"updated_at":       time.Now().UTC(),
		}, returnRepresentation, "").
		Eq("id", id).
		Eq("quota_reset_date", from).
		ExecuteTo(&rows)
	if err != nil {
		return false, err
	}
	return len(rows) == 1, nil
}

func (u *UserSupabaseRepository) IncrementUsedQuota(ctx context.Context, id string, resetDate string, used int) (bool, error) {
	var rows []domain.User
	_, err := u.client.From(usersTable).
		Update(map[string]interface{}{
			"used_quota": used + 1,
			"updated_at": time.Now().UTC(),
		}, returnRepresentation, "").
		Eq("id", id).
		Eq("quota_reset_date", resetDate).
		Eq("used_quota", strconv.Itoa(used)).
		Gt("daily_quota", strconv.Itoa(used)).
		ExecuteTo(&rows)
	if err != nil {
		return false, err
	}
	return len(rows) == 1, nil
}

func NewUserSupabaseRepository(client *supabase.Client) *UserSupabaseRepository {
	return &UserSupabaseRepository{
		client: client,
	}
}
