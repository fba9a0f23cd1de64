package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUserService(t *testing.T) (*UserService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewUserService(db), mock
}

func userRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "email", "display_name", "avatar_url", "created_at"})
}

func TestUserService_EnsureUser(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectQuery(`INSERT INTO users .+ ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(userID, "new@example.com", "New User").
		WillReturnRows(userRows().AddRow(userID, "new@example.com", "New User", nil, time.Now()))

	user, err := svc.EnsureUser(ctx, userID, "new@example.com", "New User")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "New User", user.DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_EnsureUser_DisplayNameFallsBackToEmail(t *testing.T) {
	svc, mock := setupUserService(t)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(userID, "anon@example.com", "anon@example.com").
		WillReturnRows(userRows().AddRow(userID, "anon@example.com", "anon@example.com", nil, time.Now()))

	user, err := svc.EnsureUser(ctx, userID, "anon@example.com", "  ")

	require.NoError(t, err)
	assert.Equal(t, "anon@example.com", user.DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_EnsureUser_RequiresIdentity(t *testing.T) {
	svc, _ := setupUserService(t)

	_, err := svc.EnsureUser(context.Background(), uuid.Nil, "x@example.com", "")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = svc.EnsureUser(context.Background(), uuid.New(), "", "")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(context.Background(), userID)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByEmail(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("found@example.com").
		WillReturnRows(userRows().AddRow(userID, "found@example.com", "Found", nil, time.Now()))

	user, err := svc.GetByEmail(context.Background(), " found@example.com ")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
