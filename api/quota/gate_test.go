package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	today     = "2024-03-10"
	yesterday = "2024-03-09"
)

type memUsers struct {
	mu     sync.Mutex
	users  map[string]domain.User
	writes int
	getErr error
	setErr error
	// beforeReset runs inside ResetQuota before the condition is checked.
	beforeReset func(u *domain.User)
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
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) Insert(ctx context.Context, user *domain.User) error { return nil }

func (m *memUsers) Update(ctx context.Context, user *domain.User) error { return nil }

func (m *memUsers) ResetQuota(ctx context.Context, id string, from string, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return false, m.setErr
	}
	u := m.users[id]
	if m.beforeReset != nil {
		m.beforeReset(&u)
		m.beforeReset = nil
	}
	if u.QuotaResetDate != from {
		m.users[id] = u
		return false, nil
	}
	u.UsedQuota = 0
	u.QuotaResetDate = to
	m.users[id] = u
	m.writes++
	return true, nil
}

func (m *memUsers) IncrementUsedQuota(ctx context.Context, id string, resetDate string, used int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return false, m.setErr
	}
	u := m.users[id]
	if u.QuotaResetDate != resetDate || u.UsedQuota != used {
		return false, nil
	}
	u.UsedQuota++
	m.users[id] = u
	m.writes++
	return true, nil
}

func newTestGate(users domain.UserRepository) *Gate {
	g := NewGate(users, time.UTC)
	g.now = func() time.Time { return time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC) }
	return g
}

func user(daily, used int, resetDate string) domain.User {
	return domain.User{
		ID:             "u1",
		Email:          "u1@example.com",
		DailyQuota:     daily,
		UsedQuota:      used,
		QuotaResetDate: resetDate,
	}
}

func TestMayConsume(t *testing.T) {
	tests := []struct {
		name      string
		user      domain.User
		want      bool
		wantWrite int
		wantUsed  int
		wantDate  string
	}{
		{"capacity left today", user(3, 2, today), true, 0, 2, today},
		{"exhausted today", user(3, 3, today), false, 0, 3, today},
		{"over quota today", user(3, 5, today), false, 0, 5, today},
		{"rollover resets exhausted counter", user(3, 3, yesterday), true, 1, 0, today},
		{"rollover after long gap", user(3, 1, "2023-12-31"), true, 1, 0, today},
		{"zero quota on rollover", user(0, 0, yesterday), false, 1, 0, today},
		{"zero quota today", user(0, 0, today), false, 0, 0, today},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemUsers(tt.user)
			g := newTestGate(store)

			ok, err := g.MayConsume(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.wantWrite, store.writes)
			assert.Equal(t, tt.wantUsed, store.users["u1"].UsedQuota)
			assert.Equal(t, tt.wantDate, store.users["u1"].QuotaResetDate)
		})
	}
}

func TestMayConsumeIsIdempotentWithinADay(t *testing.T) {
	for _, u := range []domain.User{user(3, 2, today), user(3, 3, today), user(3, 3, yesterday)} {
		store := newMemUsers(u)
		g := newTestGate(store)

		first, err := g.MayConsume(context.Background(), "u1")
		require.NoError(t, err)
		second, err := g.MayConsume(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestMayConsumeUnknownUser(t *testing.T) {
	g := newTestGate(newMemUsers())

	ok, err := g.MayConsume(context.Background(), "nobody")
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
}

func TestMayConsumeStoreFailureDenies(t *testing.T) {
	boom := errors.New("connection refused")

	store := newMemUsers(user(3, 0, today))
	store.getErr = boom
	ok, err := newTestGate(store).MayConsume(context.Background(), "u1")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)

	store = newMemUsers(user(3, 0, yesterday))
	store.setErr = boom
	ok, err = newTestGate(store).MayConsume(context.Background(), "u1")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestMayConsumeLostResetRace(t *testing.T) {
	store := newMemUsers(user(3, 3, yesterday))
	// another request resets and consumes everything in between our read and write
	store.beforeReset = func(u *domain.User) {
		u.QuotaResetDate = today
		u.UsedQuota = 3
	}
	g := newTestGate(store)

	ok, err := g.MayConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.writes)
}

func TestMayConsumeUsesGateTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	store := newMemUsers(user(3, 3, "2024-03-10"))
	g := NewGate(store, loc)
	// 2024-03-10 20:00 UTC is already 2024-03-11 in UTC+9
	g.now = func() time.Time { return time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC) }

	ok, err := g.MayConsume(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-03-11", store.users["u1"].QuotaResetDate)
}

func TestConsume(t *testing.T) {
	store := newMemUsers(user(2, 0, yesterday))
	g := newTestGate(store)
	ctx := context.Background()

	u, err := g.Consume(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.UsedQuota)
	assert.Equal(t, today, u.QuotaResetDate)

	u, err = g.Consume(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, u.UsedQuota)

	_, err = g.Consume(ctx, "u1")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 2, store.users["u1"].UsedQuota)

	ok, err := g.MayConsume(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeConcurrentNeverExceedsQuota(t *testing.T) {
	store := newMemUsers(user(5, 0, today))
	g := newTestGate(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Consume(context.Background(), "u1")
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, store.users["u1"].UsedQuota, 5)
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		user domain.User
		want int
	}{
		{user(3, 1, today), 2},
		{user(3, 3, today), 0},
		{user(3, 3, yesterday), 3},
	}
	for _, tt := range tests {
		store := newMemUsers(tt.user)
		n, err := newTestGate(store).Remaining(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, tt.want, n)
		assert.Equal(t, 0, store.writes)
	}
}
