package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/doorbash/stylize-services/api/util/middleware"
	"github.com/google/go-github/github"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	SESSION_STORE_KEY = "stylize_oauth2"

	githubAuthorizeUrl = "https://github.com/login/oauth/authorize"
	githubTokenUrl     = "https://github.com/login/oauth/access_token"
)

// Calendar supplies the quota date a new user starts on.
type Calendar interface {
	Today() string
}

type GithubOAuth2Handler struct {
	store     *sessions.CookieStore
	oauthCfg  *oauth2.Config
	router    *mux.Router
	userRepo  domain.UserRepository
	authCache domain.AuthCache
	verifiers []domain.TokenVerifier
	calendar  Calendar
	admin     string
	apiPath   string
	isPrivate bool
}

func (o *GithubOAuth2Handler) Middleware(h http.Handler) http.Handler {
	return middleware.OAuth2Middleware(o.verifiers, o.admin, h)
}

// fail reports an error either as a json response or, when the login was
// started from the web app, as a redirect back to it.
func (o *GithubOAuth2Handler) fail(w http.ResponseWriter, r *http.Request, redirectPath string, statusCode int, e string) {
	if redirectPath == "" {
		util.WriteError(w, statusCode, e)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("%s?error=%s", redirectPath, url.QueryEscape(e)), http.StatusFound)
}

func (o *GithubOAuth2Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	redirectPath := r.URL.Query().Get("redirect_path")

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Error().Err(err).Msg("oauth2 state")
		util.WriteInternalServerError(w)
		return
	}
	state := base64.URLEncoding.EncodeToString(b)

	session, _ := o.store.Get(r, SESSION_STORE_KEY)
	session.Values["state"] = state
	if redirectPath != "" {
		u, err := url.Parse(redirectPath)
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, fmt.Sprintf("bad redirect_path: %s", redirectPath))
			return
		}
		if u.Scheme != "" || u.Host != "" {
			util.WriteError(w, http.StatusBadRequest, fmt.Sprintf("redirect_path must be relative: %s", redirectPath))
			return
		}
	}
	session.Values["redirect_path"] = redirectPath
	if err := session.Save(r, w); err != nil {
		log.Error().Err(err).Msg("save session")
		util.WriteInternalServerError(w)
		return
	}

	http.Redirect(w, r, o.oauthCfg.AuthCodeURL(state), http.StatusFound)
}

func (o *GithubOAuth2Handler) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	session, err := o.store.Get(r, SESSION_STORE_KEY)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "Aborted")
		return
	}

	redirectPath, _ := session.Values["redirect_path"].(string)

	if state, _ := session.Values["state"].(string); state == "" || r.URL.Query().Get("state") != state {
		e := "No state match; possible csrf OR cookies not enabled"
		log.Warn().Msg(e)
		o.fail(w, r, redirectPath, http.StatusBadRequest, e)
		return
	}

	token, err := o.oauthCfg.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil || !token.Valid() {
		log.Warn().Err(err).Msg("oauth2 exchange")
		o.fail(w, r, redirectPath, http.StatusBadRequest, "There was an issue getting your token")
		return
	}

	client := github.NewClient(o.oauthCfg.Client(r.Context(), token))

	ctx, cancel := util.GetRemoteContextWithTimeout(r.Context())
	defer cancel()
	githubUser, _, err := client.Users.Get(ctx, "")
	if err != nil || githubUser == nil || githubUser.Email == nil {
		log.Warn().Err(err).Msg("github user")
		o.fail(w, r, redirectPath, http.StatusBadRequest, "Error getting email from github. Please make sure you have set your email as Public email in Github settings.")
		return
	}

	user, err := o.signIn(r.Context(), githubUser)
	if err != nil {
		if errors.Is(err, errPrivate) {
			o.fail(w, r, redirectPath, http.StatusForbidden, "This API is private. Please contact administrator.")
		} else {
			log.Error().Err(err).Msg("sign in")
			o.fail(w, r, redirectPath, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return
	}

	session.Values["email"] = user.Email
	session.Values["id"] = user.ID
	if err := session.Save(r, w); err != nil {
		log.Error().Err(err).Msg("save session")
		o.fail(w, r, redirectPath, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	u, _ := o.router.Get("credentials").URL()
	http.Redirect(w, r, fmt.Sprintf("%s%s", o.apiPath, u.Path), http.StatusFound)
}

var errPrivate = errors.New("private api")

// signIn returns the user record of a github account, creating it on the
// free tier with a full quota for today when it does not exist yet.
func (o *GithubOAuth2Handler) signIn(ctx context.Context, githubUser *github.User) (*domain.User, error) {
	email := githubUser.GetEmail()

	c, cancel := util.GetContextWithTimeout(ctx)
	defer cancel()
	user, err := o.userRepo.GetByEmail(c, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if email != o.admin && o.isPrivate {
		return nil, errPrivate
	}

	dailyQuota, _ := domain.DailyQuotaFor(domain.SUBSCRIPTION_FREE)
	user = &domain.User{
		Email:            email,
		Name:             githubUser.Name,
		AvatarURL:        githubUser.AvatarURL,
		SubscriptionType: domain.SUBSCRIPTION_FREE,
		DailyQuota:       dailyQuota,
		QuotaResetDate:   o.calendar.Today(),
	}
	c, cancel = util.GetContextWithTimeout(ctx)
	defer cancel()
	if err := o.userRepo.Insert(c, user); err != nil {
		return nil, err
	}
	log.Info().Str("user", user.ID).Str("email", email).Msg("new user")
	return user, nil
}

func (o *GithubOAuth2Handler) CredentialsHandler(w http.ResponseWriter, r *http.Request) {
	session, err := o.store.Get(r, SESSION_STORE_KEY)
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "Aborted")
		return
	}

	redirectPath, _ := session.Values["redirect_path"].(string)

	email, ok := session.Values["email"].(string)
	if !ok {
		o.fail(w, r, redirectPath, http.StatusBadRequest, "no email")
		return
	}
	id, ok := session.Values["id"].(string)
	if !ok {
		o.fail(w, r, redirectPath, http.StatusBadRequest, "no id")
		return
	}

	ctx, cancel := util.GetContextWithTimeout(r.Context())
	defer cancel()
	t, err := o.authCache.GenerateAndSaveToken(ctx, email, id)
	if err != nil {
		log.Error().Err(err).Str("user", id).Msg("save token")
		o.fail(w, r, redirectPath, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		log.Error().Err(err).Msg("save session")
		o.fail(w, r, redirectPath, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	authToken := &domain.AuthToken{
		AccessToken: t,
		TokenType:   "bearer",
		ExpiresIn:   o.authCache.GetTokenExpiry(),
	}

	if redirectPath == "" {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		util.WriteJson(w, authToken)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   "access_token",
		Value:  authToken.AccessToken,
		MaxAge: int(authToken.ExpiresIn.Seconds()),
		Path:   "/",
	})
	role := "member"
	if o.admin == email {
		role = "admin"
	}
	http.SetCookie(w, &http.Cookie{
		Name:   "role",
		Value:  role,
		MaxAge: int(authToken.ExpiresIn.Seconds()),
		Path:   "/",
	})
	http.Redirect(w, r, redirectPath, http.StatusFound)
}

func (o *GithubOAuth2Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	authUser, _ := middleware.AuthUser(r)
	ctx, cancel := util.GetContextWithTimeout(r.Context())
	defer cancel()
	if err := o.authCache.DeleteToken(ctx, authUser.Token); err != nil {
		log.Error().Err(err).Msg("delete token")
		util.WriteInternalServerError(w)
		return
	}
	util.WriteOK(w)
}

// NewGithubOAuth2Handler registers the login flow. Tokens issued by
// authCache are always accepted; extra verifiers are tried after it.
func NewGithubOAuth2Handler(
	r *mux.Router,
	userRepo domain.UserRepository,
	authCache domain.AuthCache,
	extraVerifiers []domain.TokenVerifier,
	calendar Calendar,
	clientSecret string,
	clientID string,
	sessionKey string,
	admin string,
	isPrivate bool,
	apiPath string,
	prefix string,
) *GithubOAuth2Handler {
	o := &GithubOAuth2Handler{
		store: sessions.NewCookieStore([]byte(sessionKey)),
		oauthCfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  githubAuthorizeUrl,
				TokenURL: githubTokenUrl,
			},
			Scopes: []string{"user:email"},
		},
		userRepo:  userRepo,
		authCache: authCache,
		verifiers: append([]domain.TokenVerifier{authCache}, extraVerifiers...),
		calendar:  calendar,
		admin:     admin,
		apiPath:   apiPath,
		isPrivate: isPrivate,
	}

	o.router = r.PathPrefix(prefix).Subrouter()
	o.router.HandleFunc("/login", o.LoginHandler).Methods("GET")
	o.router.HandleFunc("/callback", o.CallbackHandler).Methods("GET")
	o.router.HandleFunc("/credentials", o.CredentialsHandler).Methods("GET").Name("credentials")
	o.router.Handle("/logout", o.Middleware(http.HandlerFunc(o.LogoutHandler))).Methods("GET")

	return o
}
