package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/doorbash/stylize-services/api/stylize"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/gorilla/mux"
	"github.com/replicate/replicate-go"
	"github.com/rs/zerolog/log"
)

const maxWebhookBodySize = 1 << 20

type WebhookHandler struct {
	taskRepo    domain.TaskRepository
	artworkRepo domain.ArtworkRepository
	notifier    domain.Notifier
	secret      string
	now         func() time.Time
	router      *mux.Router
}

// ReplicateWebhookHandler applies a prediction update to its task. Updates
// for a task that already finished are acknowledged and ignored.
func (wh *WebhookHandler) ReplicateWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if wh.secret != "" {
		secret := util.GetUrlQueryParam(r, "secret")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(wh.secret)) != 1 {
			util.WriteUnauthorized(w)
			return
		}
	}

	taskID := util.GetUrlQueryParam(r, "task")
	if taskID == "" {
		util.WriteError(w, http.StatusBadRequest, "no task")
		return
	}

	prediction := replicate.Prediction{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBodySize)).Decode(&prediction); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad json")
		return
	}

	ctx, cancel := util.GetContextWithTimeout(r.Context())
	defer cancel()
	task, err := wh.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			util.WriteStatus(w, http.StatusNotFound)
		} else {
			log.Error().Err(err).Str("task", taskID).Msg("get task")
			util.WriteInternalServerError(w)
		}
		return
	}

	if task.IsFinished() {
		util.WriteOK(w)
		return
	}
	if task.PredictionID != nil && prediction.ID != "" && *task.PredictionID != prediction.ID {
		util.WriteError(w, http.StatusConflict, "prediction does not belong to task")
		return
	}

	now := wh.now()
	var artworks []domain.Artwork
	switch prediction.Status {
	case replicate.Succeeded:
		outputs := stylize.OutputURLs(prediction.Output)
		if len(outputs) == 0 {
			message := "prediction returned no images"
			task.Status = domain.TASK_STATUS_FAILED
			task.ErrorMessage = &message
		} else {
			task.Status = domain.TASK_STATUS_COMPLETED
			task.OutputImages = outputs
			for _, url := range outputs {
				artworks = append(artworks, domain.Artwork{
					UserID:       task.UserID,
					TaskID:       task.ID,
					ThumbnailURL: url,
					FullImageURL: url,
					TemplateID:   task.TemplateID,
				})
			}
		}
		task.ProcessingCompletedAt = &now
	case replicate.Failed, replicate.Canceled:
		message := stylize.ErrorMessage(prediction.Error)
		task.Status = domain.TASK_STATUS_FAILED
		task.ErrorMessage = &message
		task.ProcessingCompletedAt = &now
	case replicate.Starting, replicate.Processing:
		task.Status = domain.TASK_STATUS_PROCESSING
		if task.ProcessingStartedAt == nil {
			task.ProcessingStartedAt = &now
		}
	default:
		util.WriteError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if task.PredictionID == nil && prediction.ID != "" {
		task.PredictionID = &prediction.ID
	}

	ctx, cancel = util.GetContextWithTimeout(r.Context())
	defer cancel()
	if err := wh.taskRepo.Update(ctx, task); err != nil {
		log.Error().Err(err).Str("task", task.ID).Msg("update task")
		util.WriteInternalServerError(w)
		return
	}

	for i := range artworks {
		ctx, cancel := util.GetContextWithTimeout(r.Context())
		err := wh.artworkRepo.Insert(ctx, &artworks[i])
		cancel()
		if err != nil {
			log.Error().Err(err).Str("task", task.ID).Msg("insert artwork")
		}
	}

	if task.IsFinished() {
		ctx, cancel := util.GetRemoteContextWithTimeout(r.Context())
		defer cancel()
		data := map[string]string{
			"type":    "task",
			"task_id": task.ID,
			"status":  task.Status,
		}
		if err := wh.notifier.NotifyUser(ctx, task.UserID, data); err != nil {
			log.Warn().Err(err).Str("user", task.UserID).Str("task", task.ID).Msg("notify user")
		}
	}

	log.Info().Str("task", task.ID).Str("status", task.Status).Str("prediction", prediction.ID).Msg("webhook")
	util.WriteOK(w)
}

func NewWebhookHandler(
	r *mux.Router,
	taskRepo domain.TaskRepository,
	artworkRepo domain.ArtworkRepository,
	notifier domain.Notifier,
	secret string,
	prefix string,
) *WebhookHandler {
	wh := &WebhookHandler{
		taskRepo:    taskRepo,
		artworkRepo: artworkRepo,
		notifier:    notifier,
		secret:      secret,
		now:         time.Now,
		router:      r.PathPrefix(prefix).Subrouter(),
	}
	wh.router.HandleFunc("/replicate", wh.ReplicateWebhookHandler).Methods("POST")
	return wh
}
