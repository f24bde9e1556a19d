package main

import (
	"context"
	"errors"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/doorbash/stylize-services/api/util"
	"github.com/rs/zerolog/log"
)

const (
	submitBatchSize  = 20
	staleTaskMessage = "processing timed out"
)

type Loop struct {
	tasks         domain.TaskRepository
	templates     domain.TemplateRepository
	templateCache domain.TemplateCache
	stylizer      domain.Stylizer
	notifier      domain.Notifier
	taskTimeout   time.Duration
	now           func() time.Time
}

// SubmitQueuedTasks sends queued tasks to the model. A task that cannot be
// submitted is failed so the user is not left waiting on it.
func (l *Loop) SubmitQueuedTasks(ctx context.Context) error {
	c, cancel := util.GetContextWithTimeout(ctx)
	defer cancel()
	tasks, err := l.tasks.GetByStatus(c, domain.TASK_STATUS_QUEUED, submitBatchSize)
	if err != nil {
		return err
	}

	for i := range tasks {
		task := &tasks[i]
		if err := l.submit(ctx, task); err != nil {
			log.Error().Err(err).Str("task", task.ID).Msg("submit task")
		}
	}
	return nil
}

func (l *Loop) submit(ctx context.Context, task *domain.ProcessingTask) error {
	c, cancel := util.GetContextWithTimeout(ctx)
	defer cancel()
	template, err := l.templates.GetByID(c, task.TemplateID)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return l.fail(ctx, task, "template not found")
		}
		return err
	}

	c, cancel = util.GetRemoteContextWithTimeout(ctx)
	defer cancel()
	predictionID, err := l.stylizer.Submit(c, task, template)
	if err != nil {
		log.Warn().Err(err).Str("task", task.ID).Msg("prediction rejected")
		return l.fail(ctx, task, "could not start processing")
	}

	// the webhook may have finished the task already
	c, cancel = util.GetContextWithTimeout(ctx)
	defer cancel()
	current, err := l.tasks.GetByID(c, task.ID)
	if err != nil {
		return err
	}
	if current.Status != domain.TASK_STATUS_QUEUED {
		return nil
	}

	now := l.now()
	current.Status = domain.TASK_STATUS_PROCESSING
	current.PredictionID = &predictionID
	current.ProcessingStartedAt = &now
	c, cancel = util.GetContextWithTimeout(ctx)
	defer cancel()
	if err := l.tasks.Update(c, current); err != nil {
		return err
	}
	log.Info().Str("task", task.ID).Str("prediction", predictionID).Msg("task submitted")
	return nil
}

func (l *Loop) fail(ctx context.Context, task *domain.ProcessingTask, message string) error {
	now := l.now()
	task.Status = domain.TASK_STATUS_FAILED
	task.ErrorMessage = &message
	task.ProcessingCompletedAt = &now

	c, cancel := util.GetContextWithTimeout(ctx)
	defer cancel()
	if err := l.tasks.Update(c, task); err != nil {
		return err
	}

	c, cancel = util.GetRemoteContextWithTimeout(ctx)
	defer cancel()
	data := map[string]string{
		"type":    "task",
		"task_id": task.ID,
		"status":  task.Status,
	}
	if err := l.notifier.NotifyUser(c, task.UserID, data); err != nil {
		log.Warn().Err(err).Str("user", task.UserID).Msg("notify user")
	}
	return nil
}

// FailStaleTasks fails queued or processing tasks older than the task timeout.
func (l *Loop) FailStaleTasks(ctx context.Context) error {
	c, cancel := util.GetContextWithTimeout(ctx)
	defer cancel()
	n, err := l.tasks.FailStale(c, l.now().Add(-l.taskTimeout), staleTaskMessage)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("failed stale tasks")
	}
	return nil
}

// RefreshTemplates reloads the cached template list from the store.
func (l *Loop) RefreshTemplates(ctx context.Context) error {
	c, cancel := util.GetContextWithTimeout(ctx)
	defer cancel()
	templates, err := l.templates.GetAll(c)
	if err != nil {
		return err
	}
	c, cancel = util.GetContextWithTimeout(ctx)
	defer cancel()
	if err := l.templateCache.Update(c, templates); err != nil {
		return err
	}
	log.Debug().Int("count", len(templates)).Msg("templates refreshed")
	return nil
}

func NewLoop(
	tasks domain.TaskRepository,
	templates domain.TemplateRepository,
	templateCache domain.TemplateCache,
	stylizer domain.Stylizer,
	notifier domain.Notifier,
	taskTimeout time.Duration,
) *Loop {
	return &Loop{
		tasks:         tasks,
		templates:     templates,
		templateCache: templateCache,
		stylizer:      stylizer,
		notifier:      notifier,
		taskTimeout:   taskTimeout,
		now:           time.Now,
	}
}
