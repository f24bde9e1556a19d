package pg

import (
	"context"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/google/uuid"
)

const taskColumns = "id::text, user_id::text, template_id::text, status, input_images, COALESCE(output_images, '{}'), error_message, prediction_id, processing_started_at, processing_completed_at, created_at"

type TaskPostgresRepository struct {
	pool Querier
}

func CreateTaskTable() string {
	return `CREATE TABLE IF NOT EXISTS processing_tasks
(
	id UUID NOT NULL PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	template_id UUID NOT NULL REFERENCES templates(id),
	status VARCHAR(10) NOT NULL DEFAULT 'queued' CHECK (status IN ('pending', 'queued', 'processing', 'completed', 'failed')),
	input_images TEXT[] NOT NULL,
	output_images TEXT[],
	error_message TEXT,
	prediction_id VARCHAR(100),
	processing_started_at TIMESTAMP WITH TIME ZONE,
	processing_completed_at TIMESTAMP WITH TIME ZONE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

func scanTask(row rowScanner) (*domain.ProcessingTask, error) {
	t := domain.ProcessingTask{}
	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.TemplateID,
		&t.Status,
		&t.InputImages,
		&t.OutputImages,
		&t.ErrorMessage,
		&t.PredictionID,
		&t.ProcessingStartedAt,
		&t.ProcessingCompletedAt,
		&t.CreatedAt,
	); err != nil {
		return nil, notFound(err, domain.ErrTaskNotFound)
	}
	return &t, nil
}

func (tr *TaskPostgresRepository) GetByID(ctx context.Context, id string) (*domain.ProcessingTask, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrTaskNotFound
	}
	return scanTask(tr.pool.QueryRow(ctx, "SELECT "+taskColumns+" FROM processing_tasks WHERE id = $1", id))
}

func (tr *TaskPostgresRepository) GetByStatus(ctx context.Context, status string, limit int) ([]domain.ProcessingTask, error) {
	rows, err := tr.pool.Query(ctx, "SELECT "+taskColumns+" FROM processing_tasks WHERE status = $1 ORDER BY created_at ASC LIMIT $2", status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]domain.ProcessingTask, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *t)
	}
	return ret, rows.Err()
}

func (tr *TaskPostgresRepository) Insert(ctx context.Context, t *domain.ProcessingTask) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.TASK_STATUS_QUEUED
	}
	row := tr.pool.QueryRow(
		ctx,
		"INSERT INTO processing_tasks (id, user_id, template_id, status, input_images) VALUES ($1, $2, $3, $4, $5) RETURNING created_at",
		t.ID,
		t.UserID,
		t.TemplateID,
		t.Status,
		t.InputImages,
	)
	return row.Scan(&t.CreatedAt)
}

func (tr *TaskPostgresRepository) Update(ctx context.Context, t *domain.ProcessingTask) error {
	cmd, err := tr.pool.Exec(
		ctx,
		"UPDATE processing_tasks SET status = $1, output_images = $2, error_message = $3, prediction_id = $4, processing_started_at = $5, processing_completed_at = $6 WHERE id = $7",
		t.Status,
		t.OutputImages,
		t.ErrorMessage,
		t.PredictionID,
		t.ProcessingStartedAt,
		t.ProcessingCompletedAt,
		t.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (tr *TaskPostgresRepository) FailStale(ctx context.Context, before time.Time, message string) (int64, error) {
	cmd, err := tr.pool.Exec(
		ctx,
		"UPDATE processing_tasks SET status = 'failed', error_message = $1, processing_completed_at = CURRENT_TIMESTAMP WHERE status IN ('pending', 'queued', 'processing') AND created_at <= $2",
		message,
		before,
	)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func NewTaskPostgresRepository(pool Querier) *TaskPostgresRepository {
	return &TaskPostgresRepository{
		pool: pool,
	}
}
