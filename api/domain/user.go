package domain

import (
	"context"
	"errors"
	"time"
)

const (
	SUBSCRIPTION_FREE    = "free"
	SUBSCRIPTION_PRO     = "pro"
	SUBSCRIPTION_PREMIUM = "premium"

	// DateLayout is the format of User.QuotaResetDate.
	DateLayout = "2006-01-02"
)

var ErrUserNotFound = errors.New("user not found")

var tierQuotas = map[string]int{
	SUBSCRIPTION_FREE:    3,
	SUBSCRIPTION_PRO:     100,
	SUBSCRIPTION_PREMIUM: 1000,
}

// DailyQuotaFor returns the default daily quota of a subscription tier.
func DailyQuotaFor(subscription string) (int, bool) {
	q, ok := tierQuotas[subscription]
	return q, ok
}

type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             *string    `json:"name,omitempty"`
	AvatarURL        *string    `json:"avatar_url,omitempty"`
	SubscriptionType string     `json:"subscription_type"`
	DailyQuota       int        `json:"daily_quota"`
	UsedQuota        int        `json:"used_quota"`
	QuotaResetDate   string     `json:"quota_reset_date"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

func (u *User) IsPaid() bool {
	return u.SubscriptionType == SUBSCRIPTION_PRO || u.SubscriptionType == SUBSCRIPTION_PREMIUM
}

// UserRepository is the user record store. GetByID and GetByEmail return
// ErrUserNotFound when no row matches.
//
// ResetQuota sets used_quota = 0 and quota_reset_date = to, but only if the
// stored quota_reset_date still equals from. IncrementUsedQuota adds one to
// used_quota, but only if the row still has the given reset date and used
// count. Both report whether a row was written.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	ResetQuota(ctx context.Context, id string, from string, to string) (bool, error)
	IncrementUsedQuota(ctx context.Context, id string, resetDate string, used int) (bool, error)
}
