package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/doorbash/stylize-services/api/util/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
	err   error
}

func newMemUsers(users ...domain.User) *memUsers {
	m := &memUsers{users: make(map[string]domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) Insert(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = "user-" + strconv.Itoa(len(m.users)+1)
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memUsers) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return nil
}

func (m *memUsers) ResetQuota(ctx context.Context, id string, from string, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	u := m.users[id]
	if u.QuotaResetDate != from {
		return false, nil
	}
	u.UsedQuota = 0
	u.QuotaResetDate = to
	m.users[id] = u
	return true, nil
}

func (m *memUsers) IncrementUsedQuota(ctx context.Context, id string, resetDate string, used int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	u := m.users[id]
	if u.QuotaResetDate != resetDate || u.UsedQuota != used || u.UsedQuota >= u.DailyQuota {
		return false, nil
	}
	u.UsedQuota++
	m.users[id] = u
	return true, nil
}

type memTemplates struct {
	templates []domain.Template
	err       error
	reads     int
}

func (m *memTemplates) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.templates {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, domain.ErrTemplateNotFound
}

func (m *memTemplates) GetAll(ctx context.Context) ([]domain.Template, error) {
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	return m.templates, nil
}

func (m *memTemplates) Insert(ctx context.Context, t *domain.Template) error {
	if m.err != nil {
		return m.err
	}
	t.ID = "tpl-" + strconv.Itoa(len(m.templates)+1)
	m.templates = append(m.templates, *t)
	return nil
}

type memTemplateCache struct {
	templates   []domain.Template
	invalidated bool
}

func (m *memTemplateCache) GetAll(ctx context.Context) ([]domain.Template, error) {
	if m.templates == nil {
		return nil, redis.Nil
	}
	return m.templates, nil
}

func (m *memTemplateCache) Update(ctx context.Context, templates []domain.Template) error {
	m.templates = templates
	return nil
}

func (m *memTemplateCache) Invalidate(ctx context.Context) error {
	m.templates = nil
	m.invalidated = true
	return nil
}

type memTasks struct {
	mu    sync.Mutex
	tasks map[string]domain.ProcessingTask
	err   error
}

func newMemTasks(tasks ...domain.ProcessingTask) *memTasks {
	m := &memTasks{tasks: make(map[string]domain.ProcessingTask)}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *memTasks) GetByID(ctx context.Context, id string) (*domain.ProcessingTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

func (m *memTasks) GetByStatus(ctx context.Context, status string, limit int) ([]domain.ProcessingTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ret []domain.ProcessingTask
	for _, t := range m.tasks {
		if t.Status == status && len(ret) < limit {
			ret = append(ret, t)
		}
	}
	return ret, nil
}

func (m *memTasks) Insert(ctx context.Context, t *domain.ProcessingTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	t.ID = "task-" + strconv.Itoa(len(m.tasks)+1)
	now := time.Now()
	t.CreatedAt = &now
	m.tasks[t.ID] = *t
	return nil
}

func (m *memTasks) Update(ctx context.Context, t *domain.ProcessingTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = *t
	return nil
}

func (m *memTasks) FailStale(ctx context.Context, before time.Time, message string) (int64, error) {
	return 0, nil
}

type memArtworks struct {
	artworks []domain.Artwork
	err      error
	limit    int
	offset   int
}

func (m *memArtworks) GetByUserID(ctx context.Context, uid string, limit int, offset int) ([]domain.Artwork, error) {
	m.limit, m.offset = limit, offset
	if m.err != nil {
		return nil, m.err
	}
	ret := []domain.Artwork{}
	for _, a := range m.artworks {
		if a.UserID == uid {
			ret = append(ret, a)
		}
	}
	return ret, nil
}

func (m *memArtworks) Insert(ctx context.Context, a *domain.Artwork) error {
	if m.err != nil {
		return m.err
	}
	a.ID = "art-" + strconv.Itoa(len(m.artworks)+1)
	m.artworks = append(m.artworks, *a)
	return nil
}

type notification struct {
	userID string
	data   map[string]string
}

type recordingNotifier struct {
	sent []notification
}

func (n *recordingNotifier) NotifyUser(ctx context.Context, userID string, data map[string]string) error {
	n.sent = append(n.sent, notification{userID, data})
	return nil
}

// authAs stands in for the token middleware.
func authAs(user middleware.AuthUserValue) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithAuthUser(r.Context(), user)))
		})
	}
}

type result struct {
	Ok     bool            `json:"ok"`
	Err    *string         `json:"error"`
	Result json.RawMessage `json:"result"`
}

func serve(t *testing.T, r *mux.Router, method string, target string, body string) (int, result) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	res := result{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return rec.Code, res
}
