package domain

import (
	"context"
	"errors"
	"time"
)

const (
	// TASK_STATUS_PENDING is a task whose quota unit is not consumed yet.
	TASK_STATUS_PENDING    = "pending"
	TASK_STATUS_QUEUED     = "queued"
	TASK_STATUS_PROCESSING = "processing"
	TASK_STATUS_COMPLETED  = "completed"
	TASK_STATUS_FAILED     = "failed"
)

var ErrTaskNotFound = errors.New("task not found")

type ProcessingTask struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	TemplateID            string     `json:"template_id"`
	Status                string     `json:"status"`
	InputImages           []string   `json:"input_images"`
	OutputImages          []string   `json:"output_images,omitempty"`
	ErrorMessage          *string    `json:"error_message,omitempty"`
	PredictionID          *string    `json:"prediction_id,omitempty"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty"`
	CreatedAt             *time.Time `json:"created_at,omitempty"`
}

func (t *ProcessingTask) IsFinished() bool {
	return t.Status == TASK_STATUS_COMPLETED || t.Status == TASK_STATUS_FAILED
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*ProcessingTask, error)
	GetByStatus(ctx context.Context, status string, limit int) ([]ProcessingTask, error)
	Insert(ctx context.Context, t *ProcessingTask) error
	// Update writes status, outputs, error, prediction id and timestamps.
	Update(ctx context.Context, t *ProcessingTask) error
	// FailStale marks pending, queued and processing tasks created before the given time as failed.
	FailStale(ctx context.Context, before time.Time, message string) (int64, error)
}

// Stylizer submits a task to the image model and returns the prediction id.
type Stylizer interface {
	Submit(ctx context.Context, task *ProcessingTask, template *Template) (string, error)
}

// Notifier pushes a data message to every device subscribed to a user.
type Notifier interface {
	NotifyUser(ctx context.Context, userID string, data map[string]string) error
}
