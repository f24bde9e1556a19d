// Package quota decides whether a user may run one more paid stylization
// today and keeps the daily counter of the user record in step with the
// calendar.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/rs/zerolog/log"
)

const maxAttempts = 3

var (
	// ErrStoreUnavailable wraps any failure of the user record store.
	// Callers must deny consumption when they see it.
	ErrStoreUnavailable = errors.New("user store unavailable")
	ErrQuotaExceeded    = errors.New("daily quota exceeded")
	// ErrConflict is returned when concurrent writers kept winning the
	// conditional update for maxAttempts rounds.
	ErrConflict = errors.New("quota update conflict")
)

type Gate struct {
	users domain.UserRepository
	loc   *time.Location
	now   func() time.Time
}

// NewGate returns a gate that computes calendar days in loc. A nil loc means UTC.
func NewGate(users domain.UserRepository, loc *time.Location) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{
		users: users,
		loc:   loc,
		now:   time.Now,
	}
}

// Today returns the current calendar date of the gate as YYYY-MM-DD.
func (g *Gate) Today() string {
	return g.now().In(g.loc).Format(domain.DateLayout)
}

// MayConsume reports whether the user has capacity for one more operation
// today. When the stored reset date is not today the counter is reset and
// persisted first; that is the only write it performs. It never increments.
func (g *Gate) MayConsume(ctx context.Context, userID string) (bool, error) {
	today := g.Today()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		user, err := g.getUser(ctx, userID)
		if err != nil {
			return false, err
		}

		if user.QuotaResetDate == today {
			return user.UsedQuota < user.DailyQuota, nil
		}

		ok, err := g.users.ResetQuota(ctx, userID, user.QuotaResetDate, today)
		if err != nil {
			return false, fmt.Errorf("%w: reset quota of %s: %w", ErrStoreUnavailable, userID, err)
		}
		if ok {
			log.Debug().Str("user", userID).Str("from", user.QuotaResetDate).Str("to", today).Msg("daily quota reset")
			return user.DailyQuota > 0, nil
		}
		// someone else moved the reset date, evaluate the fresh row
		log.Debug().Str("user", userID).Int("attempt", attempt).Msg("quota reset lost race, re-reading")
	}
	return false, ErrConflict
}

// Consume records one operation against today's quota. It resets a stale
// counter first and fails with ErrQuotaExceeded when no capacity is left.
func (g *Gate) Consume(ctx context.Context, userID string) (*domain.User, error) {
	today := g.Today()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		user, err := g.getUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		if user.QuotaResetDate != today {
			ok, err := g.users.ResetQuota(ctx, userID, user.QuotaResetDate, today)
			if err != nil {
				return nil, fmt.Errorf("%w: reset quota of %s: %w", ErrStoreUnavailable, userID, err)
			}
			if !ok {
				continue
			}
			user.UsedQuota = 0
			user.QuotaResetDate = today
		}

		if user.UsedQuota >= user.DailyQuota {
			return nil, ErrQuotaExceeded
		}

		ok, err := g.users.IncrementUsedQuota(ctx, userID, today, user.UsedQuota)
		if err != nil {
			return nil, fmt.Errorf("%w: increment quota of %s: %w", ErrStoreUnavailable, userID, err)
		}
		if ok {
			user.UsedQuota++
			return user, nil
		}
	}
	return nil, ErrConflict
}

// Remaining returns how many operations the user has left today without
// writing anything.
func (g *Gate) Remaining(ctx context.Context, userID string) (int, error) {
	user, err := g.getUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.QuotaResetDate != g.Today() {
		return user.DailyQuota, nil
	}
	if user.UsedQuota >= user.DailyQuota {
		return 0, nil
	}
	return user.DailyQuota - user.UsedQuota, nil
}

func (g *Gate) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get user %s: %w", ErrStoreUnavailable, userID, err)
	}
	return user, nil
}
