package supabase

import (
	"context"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

const tasksTable = "processing_tasks"

type TaskSupabaseRepository struct {
	client *supabase.Client
}

func (tr *TaskSupabaseRepository) GetByID(ctx context.Context, id string) (*domain.ProcessingTask, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrTaskNotFound
	}
	var tasks []domain.ProcessingTask
	_, err := tr.client.From(tasksTable).
		Select("*", "", false).
		Eq("id", id).
		Limit(1, "").
		ExecuteTo(&tasks)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, domain.ErrTaskNotFound
	}
	return &tasks[0], nil
}

func (tr *TaskSupabaseRepository) GetByStatus(ctx context.Context, status string, limit int) ([]domain.ProcessingTask, error) {
	tasks := make([]domain.ProcessingTask, 0)
	_, err := tr.client.From(tasksTable).
		Select("*", "", false).
		Eq("status", status).
		Order("created_at", ascending()).
		Limit(limit, "").
		ExecuteTo(&tasks)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (tr *TaskSupabaseRepository) Insert(ctx context.Context, t *domain.ProcessingTask) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.TASK_STATUS_QUEUED
	}
	var rows []domain.ProcessingTask
	_, err := tr.client.From(tasksTable).
		Insert(map[string]interface{}{
			"id":           t.ID,
			"user_id":      t.UserID,
			"template_id":  t.TemplateID,
			"status":       t.Status,
			"input_images": t.InputImages,
		}, false, "", returnRepresentation, "").
		ExecuteTo(&rows)
	if err != nil {
		return err
	}
	if len(rows) == 1 {
		*t = rows[0]
	}
	return nil
}

func (tr *TaskSupabaseRepository) Update(ctx context.Context, t *domain.ProcessingTask) error {
	var rows []domain.ProcessingTask
	_, err := tr.client.From(tasksTable).
		Update(map[string]interface{}{
			"status":                  t.Status,
			"output_images":           t.OutputImages,
			"error_message":           t.ErrorMessage,
			"prediction_id":           t.PredictionID,
			"processing_started_at":   t.ProcessingStartedAt,
			"processing_completed_at": t.ProcessingCompletedAt,
		}, returnRepresentation, "").
		Eq("id", t.ID).
		ExecuteTo(&rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (tr *TaskSupabaseRepository) FailStale(ctx context.Context, before time.Time, message string) (int64, error) {
	var rows []domain.ProcessingTask
	_, err := tr.client.From(tasksTable).
		Update(map[string]interface{}{
			"status":                  domain.TASK_STATUS_FAILED,
			"error_message":           message,
			"processing_completed_at": time.Now().UTC(),
		}, returnRepresentation, "").
		In("status", []string{domain.TASK_STATUS_PENDING, domain.TASK_STATUS_QUEUED, domain.TASK_STATUS_PROCESSING}).
		Lte("created_at", before.UTC().Format(time.RFC3339)).
		ExecuteTo(&rows)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func NewTaskSupabaseRepository(client *supabase.Client) *TaskSupabaseRepository {
	return &TaskSupabaseRepository{
		client: client,
	}
}
