package pg

import (
	"context"
	"fmt"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/google/uuid"
)

const userColumns = "id::text, email, name, avatar_url, subscription_type, daily_quota, used_quota, quota_reset_date::text, created_at, updated_at"

type UserPostgresRepository struct {
	pool Querier
}

func CreateUserTable() string {
	return `CREATE TABLE IF NOT EXISTS users
(
	id UUID NOT NULL PRIMARY KEY,
	email VARCHAR(200) NOT NULL UNIQUE CHECK (email ~ '^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+[.][A-Za-z]+$'),
	name VARCHAR(200),
	avatar_url TEXT,
	subscription_type VARCHAR(10) NOT NULL DEFAULT 'free' CHECK (subscription_type IN ('free', 'pro', 'premium')),
	daily_quota INTEGER NOT NULL DEFAULT 3 CHECK (daily_quota >= 0),
	used_quota INTEGER NOT NULL DEFAULT 0 CHECK (used_quota >= 0),
	quota_reset_date DATE NOT NULL DEFAULT CURRENT_DATE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := domain.User{}
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.AvatarURL,
		&user.SubscriptionType,
		&user.DailyQuota,
		&user.UsedQuota,
		&user.QuotaResetDate,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &user, nil
}

func (u *UserPostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}
	return scanUser(u.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (u *UserPostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(u.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
}

func (u *UserPostgresRepository) Insert(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cmd, err := u.pool.Exec(
		ctx,
		"INSERT INTO users(id, email, name, avatar_url, subscription_type, daily_quota, used_quota, quota_reset_date) VALUES($1, $2, $3, $4, $5, $6, $7, $8)",
		user.ID,
		user.Email,
		user.Name,
		user.AvatarURL,
		user.SubscriptionType,
		user.DailyQuota,
		user.UsedQuota,
		user.QuotaResetDate,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("RowsAffected() = %d", cmd.RowsAffected())
	}
	return nil
}

func (u *UserPostgresRepository) Update(ctx context.Context, user *domain.User) error {
	cmd, err := u.pool.Exec(
		ctx,
		"UPDATE users SET name = $1, avatar_url = $2, subscription_type = $3, daily_quota = $4, updated_at = CURRENT_TIMESTAMP WHERE id = $5",
		user.Name,
		user.AvatarURL,
		user.SubscriptionType,
		user.DailyQuota,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (u *UserPostgresRepository) ResetQuota(ctx context.Context, id string, from string, to string) (bool, error) {
	cmd, err := u.pool.Exec(
		ctx,
		"UPDATE users SET used_quota = 0, quota_reset_date = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND quota_reset_date = $3",
		to,
		id,
		from,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (u *UserPostgresRepository) IncrementUsedQuota(ctx context.Context, id string, resetDate string, used int) (bool, error) {
	cmd, err := u.pool.Exec(
		ctx,
		"UPDATE users SET used_quota = used_quota + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND quota_reset_date = $2 AND used_quota = $3 AND used_quota < daily_quota",
		id,
		resetDate,
		used,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func NewUserPostgresRepository(pool Querier) *UserPostgresRepository {
	return &UserPostgresRepository{
		pool: pool,
	}
}
