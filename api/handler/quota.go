package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/doorbash/stylize-services/api/quota"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/rs/zerolog/log"
)

const quotaExceededMessage = "Sorry, your daily quota has been exceeded."

// QuotaGate is implemented by *quota.Gate.
type QuotaGate interface {
	Today() string
	MayConsume(ctx context.Context, userID string) (bool, error)
	Consume(ctx context.Context, userID string) (*domain.User, error)
	Remaining(ctx context.Context, userID string) (int, error)
}

func writeQuotaError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		util.WriteError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, quota.ErrQuotaExceeded):
		util.WriteError(w, http.StatusTooManyRequests, quotaExceededMessage)
	case errors.Is(err, quota.ErrConflict):
		util.WriteStatus(w, http.StatusConflict)
	case errors.Is(err, quota.ErrStoreUnavailable):
		log.Error().Err(err).Str("user", userID).Msg("quota check failed")
		util.WriteStatus(w, http.StatusServiceUnavailable)
	default:
		log.Error().Err(err).Str("user", userID).Msg("quota check failed")
		util.WriteInternalServerError(w)
	}
}

func wrapStoreError(err error) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", quota.ErrStoreUnavailable, err)
}
