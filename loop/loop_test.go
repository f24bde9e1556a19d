package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTasks struct {
	tasks       map[string]domain.ProcessingTask
	staleBefore time.Time
	staleMsg    string
	// onGet runs before GetByID returns, to simulate a concurrent webhook.
	onGet func(t *domain.ProcessingTask)
}

func (m *memTasks) GetByID(ctx context.Context, id string) (*domain.ProcessingTask, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if m.onGet != nil {
		m.onGet(&t)
		m.tasks[id] = t
	}
	return &t, nil
}

func (m *memTasks) GetByStatus(ctx context.Context, status string, limit int) ([]domain.ProcessingTask, error) {
	var ret []domain.ProcessingTask
	for _, t := range m.tasks {
		if t.Status == status {
			ret = append(ret, t)
		}
	}
	return ret, nil
}

func (m *memTasks) Insert(ctx context.Context, t *domain.ProcessingTask) error {
	m.tasks[t.ID] = *t
	return nil
}

func (m *memTasks) Update(ctx context.Context, t *domain.ProcessingTask) error {
	m.tasks[t.ID] = *t
	return nil
}

func (m *memTasks) FailStale(ctx context.Context, before time.Time, message string) (int64, error) {
	m.staleBefore, m.staleMsg = before, message
	return 2, nil
}

type memTemplates struct {
	templates []domain.Template
	err       error
}

func (m *memTemplates) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	for _, t := range m.templates {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, domain.ErrTemplateNotFound
}

func (m *memTemplates) GetAll(ctx context.Context) ([]domain.Template, error) {
	return m.templates, m.err
}

func (m *memTemplates) Insert(ctx context.Context, t *domain.Template) error { return nil }

type memTemplateCache struct {
	templates []domain.Template
}

func (m *memTemplateCache) GetAll(ctx context.Context) ([]domain.Template, error) {
	return m.templates, nil
}

func (m *memTemplateCache) Update(ctx context.Context, templates []domain.Template) error {
	m.templates = templates
	return nil
}

func (m *memTemplateCache) Invalidate(ctx context.Context) error {
	m.templates = nil
	return nil
}

type fakeStylizer struct {
	submitted []string
	err       error
}

func (f *fakeStylizer) Submit(ctx context.Context, task *domain.ProcessingTask, template *domain.Template) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.submitted = append(f.submitted, task.ID)
	return "pred-" + task.ID, nil
}

type recordingNotifier struct {
	users []string
}

func (n *recordingNotifier) NotifyUser(ctx context.Context, userID string, data map[string]string) error {
	n.users = append(n.users, userID)
	return nil
}

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLoop(tasks *memTasks, templates *memTemplates, stylizer *fakeStylizer, notifier *recordingNotifier, cache *memTemplateCache) *Loop {
	l := NewLoop(tasks, templates, cache, stylizer, notifier, time.Hour)
	l.now = func() time.Time { return now }
	return l
}

func queued(id string, templateID string) domain.ProcessingTask {
	return domain.ProcessingTask{ID: id, UserID: "u1", TemplateID: templateID, Status: domain.TASK_STATUS_QUEUED, InputImages: []string{"a"}}
}

func TestSubmitQueuedTasks(t *testing.T) {
	tasks := &memTasks{tasks: map[string]domain.ProcessingTask{
		"t1": queued("t1", "tpl"),
		"t2": queued("t2", "gone"),
		"t3": {ID: "t3", Status: domain.TASK_STATUS_COMPLETED},
	}}
	stylizer := &fakeStylizer{}
	notifier := &recordingNotifier{}
	l := newTestLoop(tasks, &memTemplates{templates: []domain.Template{{ID: "tpl"}}}, stylizer, notifier, &memTemplateCache{})

	require.NoError(t, l.SubmitQueuedTasks(context.Background()))

	assert.Equal(t, []string{"t1"}, stylizer.submitted)
	t1 := tasks.tasks["t1"]
	assert.Equal(t, domain.TASK_STATUS_PROCESSING, t1.Status)
	require.NotNil(t, t1.PredictionID)
	assert.Equal(t, "pred-t1", *t1.PredictionID)
	require.NotNil(t, t1.ProcessingStartedAt)
	assert.Equal(t, now, *t1.ProcessingStartedAt)

	t2 := tasks.tasks["t2"]
	assert.Equal(t, domain.TASK_STATUS_FAILED, t2.Status)
	require.NotNil(t, t2.ErrorMessage)
	assert.Equal(t, "template not found", *t2.ErrorMessage)
	assert.Equal(t, []string{"u1"}, notifier.users)

	assert.Equal(t, domain.TASK_STATUS_COMPLETED, tasks.tasks["t3"].Status)
}

func TestSubmitRejectedPrediction(t *testing.T) {
	tasks := &memTasks{tasks: map[string]domain.ProcessingTask{"t1": queued("t1", "tpl")}}
	notifier := &recordingNotifier{}
	l := newTestLoop(tasks, &memTemplates{templates: []domain.Template{{ID: "tpl"}}}, &fakeStylizer{err: errors.New("402 payment required")}, notifier, &memTemplateCache{})

	require.NoError(t, l.SubmitQueuedTasks(context.Background()))
	assert.Equal(t, domain.TASK_STATUS_FAILED, tasks.tasks["t1"].Status)
	assert.Len(t, notifier.users, 1)
}

func TestSubmitKeepsWebhookResult(t *testing.T) {
	tasks := &memTasks{tasks: map[string]domain.ProcessingTask{"t1": queued("t1", "tpl")}}
	tasks.onGet = func(t *domain.ProcessingTask) {
		t.Status = domain.TASK_STATUS_COMPLETED
	}
	l := newTestLoop(tasks, &memTemplates{templates: []domain.Template{{ID: "tpl"}}}, &fakeStylizer{}, &recordingNotifier{}, &memTemplateCache{})

	require.NoError(t, l.SubmitQueuedTasks(context.Background()))
	assert.Equal(t, domain.TASK_STATUS_COMPLETED, tasks.tasks["t1"].Status)
}

func TestFailStaleTasks(t *testing.T) {
	tasks := &memTasks{tasks: map[string]domain.ProcessingTask{}}
	l := newTestLoop(tasks, &memTemplates{}, &fakeStylizer{}, &recordingNotifier{}, &memTemplateCache{})

	require.NoError(t, l.FailStaleTasks(context.Background()))
	assert.Equal(t, now.Add(-time.Hour), tasks.staleBefore)
	assert.Equal(t, staleTaskMessage, tasks.staleMsg)
}

func TestRefreshTemplates(t *testing.T) {
	cache := &memTemplateCache{}
	templates := &memTemplates{templates: []domain.Template{{ID: "a"}, {ID: "b"}}}
	l := newTestLoop(&memTasks{}, templates, &fakeStylizer{}, &recordingNotifier{}, cache)

	require.NoError(t, l.RefreshTemplates(context.Background()))
	assert.Len(t, cache.templates, 2)

	templates.err = errors.New("boom")
	assert.Error(t, l.RefreshTemplates(context.Background()))
	assert.Len(t, cache.templates, 2)
}
