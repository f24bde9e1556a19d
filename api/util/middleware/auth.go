package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	userContextKey contextKey = "user"
	jsonContextKey contextKey = "json"
)

type AuthUserValue struct {
	ID      string
	Email   string
	IsAdmin bool
	Token   string
}

// AuthUser returns the user stored by OAuth2Middleware.
func AuthUser(r *http.Request) (AuthUserValue, bool) {
	v, ok := r.Context().Value(userContextKey).(AuthUserValue)
	return v, ok
}

func WithAuthUser(ctx context.Context, user AuthUserValue) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// OAuth2Middleware accepts a bearer token known to any of the verifiers,
// tried in order.
func OAuth2Middleware(verifiers []domain.TokenVerifier, admin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := util.BearerToken(r)
		if !ok {
			log.Debug().Str("path", r.URL.Path).Msg("bad Authorization header")
			util.WriteUnauthorized(w)
			return
		}

		for _, v := range verifiers {
			ctx, cancel := util.GetContextWithTimeout(r.Context())
			id, email, err := v.VerifyToken(ctx, token)
			cancel()
			if err != nil {
				if errors.Is(err, domain.ErrInvalidToken) {
					continue
				}
				log.Error().Err(err).Msg("verify token")
				util.WriteInternalServerError(w)
				return
			}

			ctx = WithAuthUser(r.Context(), AuthUserValue{
				ID:      id,
				Email:   email,
				IsAdmin: admin != "" && email == admin,
				Token:   token,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		util.WriteUnauthorized(w)
	})
}

// AdminMiddleware must run after OAuth2Middleware.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authUser, ok := AuthUser(r)
		if !ok {
			util.WriteUnauthorized(w)
			return
		}
		if !authUser.IsAdmin {
			util.WriteStatus(w, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
