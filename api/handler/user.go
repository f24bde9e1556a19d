package handler

import (
	"errors"
	"net/http"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/doorbash/stylize-services/api/util/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type UserHandler struct {
	repo   domain.UserRepository
	gate   QuotaGate
	router *mux.Router
}

type quotaView struct {
	SubscriptionType string `json:"subscription_type"`
	DailyQuota       int    `json:"daily_quota"`
	Remaining        int    `json:"remaining"`
	Date             string `json:"date"`
}

func (u *UserHandler) UserProfileHandler(w http.ResponseWriter, r *http.Request) {
	authUser, _ := middleware.AuthUser(r)

	ctx, cancel := util.GetContextWithTimeout(r.Context())
	defer cancel()
	user, err := u.repo.GetByID(ctx, authUser.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			util.WriteStatus(w, http.StatusNotFound)
		} else {
			log.Error().Err(err).Str("user", authUser.ID).Msg("get profile")
			util.WriteInternalServerError(w)
		}
		return
	}
	util.WriteJson(w, user)
}

func (u *UserHandler) UserQuotaHandler(w http.ResponseWriter, r *http.Request) {
	authUser, _ := middleware.AuthUser(r)

	ctx, cancel := util.GetContextWithTimeout(r.Context())
	defer cancel()
	user, err := u.repo.GetByID(ctx, authUser.ID)
	if err != nil {
		writeQuotaError(w, authUser.ID, wrapStoreError(err))
		return
	}
	ctx, cancel = util.GetContextWithTimeout(r.Context())
	defer cancel()
	remaining, err := u.gate.Remaining(ctx, authUser.ID)
	if err != nil {
		writeQuotaError(w, authUser.ID, err)
		return
	}
	util.WriteJson(w, &quotaView{
		SubscriptionType: user.SubscriptionType,
		DailyQuota:       user.DailyQuota,
		Remaining:        remaining,
		Date:             u.gate.Today(),
	})
}

func (u *UserHandler) UserRoleHandler(w http.ResponseWriter, r *http.Request) {
	authUser, _ := middleware.AuthUser(r)

	ret := map[string]interface{}{
		"id":    authUser.ID,
		"email": authUser.Email,
		"admin": authUser.IsAdmin,
	}
	util.WriteJson(w, ret)
}

// AdminUpdateUserHandler changes the tier of a user. daily_quota is optional
// and defaults to the quota of the new tier.
func (u *UserHandler) AdminUpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	body, ok := middleware.JsonBodyMap(r)
	if !ok {
		util.WriteError(w, http.StatusBadRequest, "bad json")
		return
	}
	userEmail, ok := body["email"].(string)
	if !ok || userEmail == "" {
		util.WriteError(w, http.StatusBadRequest, "bad user email")
		return
	}

	ctx, cancel := util.GetContextWithTimeout(r.Context())
	defer cancel()
	user, err := u.repo.GetByEmail(ctx, userEmail)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			util.WriteStatus(w, http.StatusNotFound)
		} else {
			log.Error().Err(err).Msg("admin get user")
			util.WriteInternalServerError(w)
		}
		return
	}

	if sub, ok := body["subscription_type"]; ok {
		subscription, _ := sub.(string)
		dailyQuota, known := domain.DailyQuotaFor(subscription)
		if !known {
			util.WriteError(w, http.StatusBadRequest, "bad subscription type")
			return
		}
		user.SubscriptionType = subscription
		user.DailyQuota = dailyQuota
	}
	if q, ok := body["daily_quota"]; ok {
		quota, ok := q.(float64)
		dailyQuota := int(quota)
		if !ok || dailyQuota < 0 || float64(dailyQuota) != quota {
			util.WriteError(w, http.StatusBadRequest, "bad daily quota")
			return
		}
		user.DailyQuota = dailyQuota
	}

	ctx, cancel = util.GetContextWithTimeout(r.Context())
	defer cancel()
	if err := u.repo.Update(ctx, user); err != nil {
		log.Error().Err(err).Str("user", user.ID).Msg("admin update user")
		util.WriteInternalServerError(w)
		return
	}
	log.Info().Str("user", user.ID).Str("subscription", user.SubscriptionType).Int("daily_quota", user.DailyQuota).Msg("user updated")
	util.WriteJson(w, user)
}

func NewUserHandler(r *mux.Router, authMiddleware mux.MiddlewareFunc, repo domain.UserRepository, gate QuotaGate, prefix string) *UserHandler {
	u := &UserHandler{
		repo: repo,
		gate: gate,
	}

	u.router = r.PathPrefix(prefix).Subrouter()
	u.router.Use(authMiddleware)
	u.router.HandleFunc("/profile", u.UserProfileHandler).Methods("GET")
	u.router.HandleFunc("/quota", u.UserQuotaHandler).Methods("GET")
	u.router.HandleFunc("/role", u.UserRoleHandler).Methods("GET")

	subrouter := u.router.NewRoute().Subrouter()
	subrouter.Use(middleware.AdminMiddleware, middleware.JsonBodyMiddleware)
	subrouter.HandleFunc("/update", u.AdminUpdateUserHandler).Methods("POST")
	return u
}
