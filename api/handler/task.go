package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/doorbash/stylize-services/api/util/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const maxInputImages = 10

type TaskHandler struct {
	gate         QuotaGate
	userRepo     domain.UserRepository
	templateRepo domain.TemplateRepository
	taskRepo     domain.TaskRepository
	router       *mux.Router
}

type createTaskRequest struct {
	TemplateID  string   `json:"template_id"`
	InputImages []string `json:"input_images"`
}

// CreateTaskHandler queues a stylization task. The quota is checked before
// anything is written. The row is written as pending and only becomes
// queued after the quota unit is consumed.
func (th *TaskHandler) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	authUser, _ := middleware.AuthUser(r)

	req := createTaskRequest{}
	if err := json.Unmarshal(middleware.JsonBody(r), &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.TemplateID == "" {
		util.WriteError(w, http.StatusBadRequest, "no template_id")
		return
	}
	if len(req.InputImages) == 0 || len(req.InputImages) > maxInputImages {
		util.WriteError(w, http.StatusBadRequest, "bad input_images")
		return
	}

	ok, err := th.gate.MayConsume(r.Context(), authUser.ID)
	if err != nil {
		writeQuotaError(w, authUser.ID, err)
		return
	}
	if !ok {
		util.WriteError(w, http.StatusTooManyRequests, quotaExceededMessage)
		return
	}

	ctx, cancel := util.GetContextWithTimeout(r.Context())
	defer cancel()
	template, err := th.templateRepo.GetByID(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			util.WriteError(w, http.StatusNotFound, "template not found")
		} else {
			log.Error().Err(err).Msg("get template")
			util.WriteInternalServerError(w)
		}
		return
	}
	if len(req.InputImages) != template.RequiredImages {
		util.WriteError(w, http.StatusBadRequest, fmt.Sprintf("template needs %d input images", template.RequiredImages))
		return
	}
	if template.IsPremium {
		ctx, cancel = util.GetContextWithTimeout(r.Context())
		defer cancel()
		user, err := th.userRepo.GetByID(ctx, authUser.ID)
		if err != nil {
			writeQuotaError(w, authUser.ID, wrapStoreError(err))
			return
		}
		if !user.IsPaid() {
			util.WriteError(w, http.StatusForbidden, "this template needs a paid subscription")
			return
		}
	}

	task := &domain.ProcessingTask{
		UserID:      authUser.ID,
		TemplateID:  template.ID,
		Status:      domain.TASK_STATUS_PENDING,
		InputImages: req.InputImages,
	}
	ctx, cancel = util.GetContextWithTimeout(r.Context())
	defer cancel()
	if err := th.taskRepo.Insert(ctx, task); err != nil {
		log.Error().Err(err).Str("user", authUser.ID).Msg("insert task")
		util.WriteInternalServerError(w)
		return
	}

	// pending tasks are invisible to the loop until a unit is consumed
	if _, err := th.gate.Consume(r.Context(), authUser.ID); err != nil {
		now := time.Now()
		message := err.Error()
		task.Status = domain.TASK_STATUS_FAILED
		task.ErrorMessage = &message
		task.ProcessingCompletedAt = &now
		ctx, cancel = util.GetContextWithTimeout(r.Context())
		defer cancel()
		if uerr := th.taskRepo.Update(ctx, task); uerr != nil {
			log.Error().Err(uerr).Str("task", task.ID).Msg("fail task")
		}
		writeQuotaError(w, authUser.ID, err)
		return
	}

	task.Status = domain.TASK_STATUS_QUEUED
	ctx, cancel = util.GetContextWithTimeout(r.Context())
	defer cancel()
	if err := th.taskRepo.Update(ctx, task); err != nil {
		// left pending, FailStale picks it up
		log.Error().Err(err).Str("user", authUser.ID).Str("task", task.ID).Msg("queue task")
		util.WriteInternalServerError(w)
		return
	}

	log.Info().Str("user", authUser.ID).Str("task", task.ID).Str("template", template.ID).Msg("task queued")
	util.WriteJsonStatus(w, http.StatusCreated, task)
}

func (th *TaskHandler) GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	authUser, _ := middleware.AuthUser(r)

	id, ok := mux.Vars(r)["id"]
	if !ok {
		util.WriteInternalServerError(w)
		return
	}

	ctx, cancel := util.GetContextWithTimeout(r.Context())
	defer cancel()
	task, err := th.taskRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			util.WriteStatus(w, http.StatusNotFound)
		} else {
			log.Error().Err(err).Str("task", id).Msg("get task")
			util.WriteInternalServerError(w)
		}
		return
	}

	if task.UserID != authUser.ID {
		util.WriteStatus(w, http.StatusForbidden)
		return
	}

	util.WriteJson(w, task)
}

func NewTaskHandler(
	r *mux.Router,
	authMiddleware mux.MiddlewareFunc,
	gate QuotaGate,
	userRepo domain.UserRepository,
	templateRepo domain.TemplateRepository,
	taskRepo domain.TaskRepository,
	prefix string,
) *TaskHandler {
	th := &TaskHandler{
		gate:         gate,
		userRepo:     userRepo,
		templateRepo: templateRepo,
		taskRepo:     taskRepo,
		router:       r.PathPrefix(prefix).Subrouter(),
	}

	th.router.Use(authMiddleware)
	th.router.HandleFunc("/{id}", th.GetTaskHandler).Methods("GET")

	subrouter := th.router.NewRoute().Subrouter()
	subrouter.Use(middleware.JsonBodyMiddleware)
	subrouter.HandleFunc("/new", th.CreateTaskHandler).Methods("POST")
	return th
}
