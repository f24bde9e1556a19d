package handler

import (
	"net/http"
	"strconv"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/doorbash/stylize-services/api/util/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const (
	defaultArtworksLimit = 20
	maxArtworksLimit     = 100
)

type ArtworkHandler struct {
	repo   domain.ArtworkRepository
	router *mux.Router
}

func (a *ArtworkHandler) GetArtworksHandler(w http.ResponseWriter, r *http.Request) {
	authUser, _ := middleware.AuthUser(r)

	limit := defaultArtworksLimit
	if v := util.GetUrlQueryParam(r, "limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 || l > maxArtworksLimit {
			util.WriteError(w, http.StatusBadRequest, "bad limit")
			return
		}
		limit = l
	}
	offset := 0
	if v := util.GetUrlQueryParam(r, "offset"); v != "" {
		o, err := strconv.Atoi(v)
		if err != nil || o < 0 {
			util.WriteError(w, http.StatusBadRequest, "bad offset")
			return
		}
		offset = o
	}

	ctx, cancel := util.GetContextWithTimeout(r.Context())
	defer cancel()
	artworks, err := a.repo.GetByUserID(ctx, authUser.ID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("user", authUser.ID).Msg("get artworks")
		util.WriteInternalServerError(w)
		return
	}
	util.WriteJson(w, artworks)
}

func NewArtworkHandler(r *mux.Router, authMiddleware mux.MiddlewareFunc, repo domain.ArtworkRepository, prefix string) *ArtworkHandler {
	a := &ArtworkHandler{
		repo:   repo,
		router: r.PathPrefix(prefix).Subrouter(),
	}
	a.router.Use(authMiddleware)
	a.router.HandleFunc("", a.GetArtworksHandler).Methods("GET")
	return a
}
