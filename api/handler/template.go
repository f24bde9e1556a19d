package handler

import (
	"encoding/json"
	"net/http"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/doorbash/stylize-services/api/util/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type TemplateHandler struct {
	repo   domain.TemplateRepository
	cache  domain.TemplateCache
	router *mux.Router
}

func (th *TemplateHandler) GetTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := util.GetContextWithTimeout(r.Context())
	defer cancel()
	templates, err := th.cache.GetAll(ctx)
	if err == nil {
		util.WriteJson(w, templates)
		return
	}
	if err != redis.Nil {
		log.Warn().Err(err).Msg("template cache")
	}

	ctx, cancel = util.GetContextWithTimeout(r.Context())
	defer cancel()
	templates, err = th.repo.GetAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Database error")
		util.WriteError(w, http.StatusInternalServerError, "Failed to fetch templates")
		return
	}

	ctx, cancel = util.GetContextWithTimeout(r.Context())
	defer cancel()
	if err := th.cache.Update(ctx, templates); err != nil {
		log.Warn().Err(err).Msg("template cache update")
	}
	util.WriteJson(w, templates)
}

func (th *TemplateHandler) CreateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	template := &domain.Template{}
	if err := json.Unmarshal(middleware.JsonBody(r), template); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad json")
		return
	}
	template.ID = ""
	template.CreatedAt = nil
	if template.Name == "" || template.StyleType == "" || template.PreviewImageURL == "" || template.StylePrompt == "" {
		util.WriteError(w, http.StatusBadRequest, "name, style_type, preview_image_url and style_prompt are required")
		return
	}
	if template.RequiredImages < 0 {
		util.WriteError(w, http.StatusBadRequest, "bad required_images")
		return
	}

	ctx, cancel := util.GetContextWithTimeout(r.Context())
	defer cancel()
	if err := th.repo.Insert(ctx, template); err != nil {
		log.Error().Err(err).Msg("Database error")
		util.WriteError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}

	ctx, cancel = util.GetContextWithTimeout(r.Context())
	defer cancel()
	if err := th.cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("template cache invalidate")
	}
	util.WriteJsonStatus(w, http.StatusCreated, template)
}

func NewTemplateHandler(
	r *mux.Router,
	authMiddleware mux.MiddlewareFunc,
	repo domain.TemplateRepository,
	cache domain.TemplateCache,
	prefix string,
) *TemplateHandler {
	th := &TemplateHandler{
		repo:   repo,
		cache:  cache,
		router: r.PathPrefix(prefix).Subrouter(),
	}
	th.router.HandleFunc("", th.GetTemplatesHandler).Methods("GET")

	authRouter := th.router.NewRoute().Subrouter()
	authRouter.Use(authMiddleware, middleware.AdminMiddleware, middleware.JsonBodyMiddleware)
	authRouter.HandleFunc("", th.CreateTemplateHandler).Methods("POST")
	return th
}
