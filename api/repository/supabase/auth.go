package supabase

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/rs/zerolog/log"
	"github.com/supabase-community/supabase-go"
)

// gotrue reports non-2xx responses as "response status code NNN: body".
var statusCodePattern = regexp.MustCompile(`status code (\d{3})`)

// AuthVerifier accepts access tokens issued by Supabase Auth to the web app.
type AuthVerifier struct {
	client *supabase.Client
}

// VerifyToken returns ErrInvalidToken only when Supabase rejected the token.
// Any other failure is returned as is so the caller answers 500, not 401.
func (a *AuthVerifier) VerifyToken(ctx context.Context, token string) (string, string, error) {
	resp, err := a.client.Auth.WithToken(token).GetUser()
	if err != nil {
		if isRejection(err) {
			log.Debug().Err(err).Msg("supabase auth rejected token")
			return "", "", domain.ErrInvalidToken
		}
		return "", "", fmt.Errorf("supabase auth: %w", err)
	}
	return resp.ID.String(), resp.Email, nil
}

func isRejection(err error) bool {
	m := statusCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return false
	}
	code, _ := strconv.Atoi(m[1])
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

func NewAuthVerifier(client *supabase.Client) *AuthVerifier {
	return &AuthVerifier{
		client: client,
	}
}
