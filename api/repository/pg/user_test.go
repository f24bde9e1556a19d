package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/jackc/pgx/v4"
	"github.com/pashagolub/pgxmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "5f0c6f4e-4c1b-4a7e-9a39-2f7f2d0c9d11"

func newMockRepo(t *testing.T) (pgxmock.PgxConnIface, *UserPostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close(context.Background()) })
	return mock, NewUserPostgresRepository(mock)
}

func TestResetQuotaConditionalOnObservedDate(t *testing.T) {
	mock, repo := newMockRepo(t)
	query := regexp.QuoteMeta("UPDATE users SET used_quota = 0, quota_reset_date = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND quota_reset_date = $3")

	mock.ExpectExec(query).
		WithArgs("2024-03-10", testUserID, "2024-03-09").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := repo.ResetQuota(context.Background(), testUserID, "2024-03-09", "2024-03-10")
	require.NoError(t, err)
	assert.True(t, ok)

	// another writer moved the date first
	mock.ExpectExec(query).
		WithArgs("2024-03-10", testUserID, "2024-03-09").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = repo.ResetQuota(context.Background(), testUserID, "2024-03-09", "2024-03-10")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementUsedQuotaConditionalOnObservedCounter(t *testing.T) {
	mock, repo := newMockRepo(t)
	query := regexp.QuoteMeta("UPDATE users SET used_quota = used_quota + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND quota_reset_date = $2 AND used_quota = $3 AND used_quota < daily_quota")

	mock.ExpectExec(query).
		WithArgs(testUserID, "2024-03-10", 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := repo.IncrementUsedQuota(context.Background(), testUserID, "2024-03-10", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(query).
		WithArgs(testUserID, "2024-03-10", 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = repo.IncrementUsedQuota(context.Background(), testUserID, "2024-03-10", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaWriteErrors(t *testing.T) {
	mock, repo := newMockRepo(t)
	boom := errors.New("connection reset")

	mock.ExpectExec("UPDATE users SET used_quota = 0").WillReturnError(boom)
	_, err := repo.ResetQuota(context.Background(), testUserID, "2024-03-09", "2024-03-10")
	assert.ErrorIs(t, err, boom)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET used_quota = used_quota + 1")).WillReturnError(boom)
	_, err = repo.IncrementUsedQuota(context.Background(), testUserID, "2024-03-10", 0)
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(testUserID).
		WillReturnError(pgx.ErrNoRows)
	_, err := repo.GetByID(context.Background(), testUserID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	// not a uuid, never reaches the database
	_, err = repo.GetByID(context.Background(), "42")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
