package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupInviteService(t *testing.T, now time.Time) (*InviteService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	svc := NewInviteService(&database.DB{Pool: mock}, InviteConfig{DefaultTTLDays: 7, MaxTTLDays: 30}, nil)
	svc.now = func() time.Time { return now }
	return svc, mock
}

func inviteRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "team_id", "created_by", "invite_code", "expires_at", "uses_left", "created_at"})
}

func resolveRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "team_id", "created_by", "invite_code", "expires_at", "uses_left", "created_at",
		"t_id", "name", "description", "icon_seed", "owner_id", "t_created_at", "updated_at",
	})
}

func intPtr(v int) *int { return &v }

func TestInviteService_CreateInvite_New(t *testing.T) {
	now := time.Now()
	svc, mock := setupInviteService(t, now)
	teamID := uuid.New()
	actorID := uuid.New()
	inviteID := uuid.New()
	expires := now.Add(3 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).
		WithArgs("invite:" + teamID.String() + ":" + actorID.String()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT .+ FROM team_invites\s+WHERE team_id = \$1 AND created_by = \$2`).
		WithArgs(teamID, actorID, now).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO team_invites`).
		WithArgs(teamID, actorID, pgxmock.AnyArg(), expires, intPtr(5)).
		WillReturnRows(inviteRows().AddRow(inviteID, teamID, actorID, "code", expires, intPtr(5), now))
	mock.ExpectCommit()

	inv, created, err := svc.CreateInvite(context.Background(), teamID, actorID, 3, intPtr(5))

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, inviteID, inv.ID)
	require.NotNil(t, inv.UsesLeft)
	assert.Equal(t, 5, *inv.UsesLeft)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteService_CreateInvite_ReusesUsableInvite(t *testing.T) {
	now := time.Now()
	svc, mock := setupInviteService(t, now)
	teamID := uuid.New()
	actorID := uuid.New()
	existingID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT .+ FROM team_invites`).
		WithArgs(teamID, actorID, now).
		WillReturnRows(inviteRows().AddRow(existingID, teamID, actorID, "old", now.Add(time.Hour), (*int)(nil), now))
	mock.ExpectCommit()

	inv, created, err := svc.CreateInvite(context.Background(), teamID, actorID, 0, nil)

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existingID, inv.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteService_CreateInvite_Validation(t *testing.T) {
	svc, mock := setupInviteService(t, time.Now())

	_, _, err := svc.CreateInvite(context.Background(), uuid.New(), uuid.New(), 31, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.CreateInvite(context.Background(), uuid.New(), uuid.New(), -1, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.CreateInvite(context.Background(), uuid.New(), uuid.New(), 1, intPtr(0))
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectResolve(mock pgxmock.PgxPoolIface, code string, teamID uuid.UUID, expires time.Time, usesLeft *int) {
	now := time.Now()
	mock.ExpectQuery(`FROM team_invites i\s+JOIN teams t`).
		WithArgs(code).
		WillReturnRows(resolveRows().AddRow(
			uuid.New(), teamID, uuid.New(), code, expires, usesLeft, now,
			teamID, "Team", "", "", uuid.New(), now, now,
		))
}

func TestInviteService_ResolveInvite(t *testing.T) {
	now := time.Now()
	teamID := uuid.New()

	t.Run("usable", func(t *testing.T) {
		svc, mock := setupInviteService(t, now)
		expectResolve(mock, "abc", teamID, now.Add(time.Hour), intPtr(2))

		inv, err := svc.ResolveInvite(context.Background(), "abc")

		require.NoError(t, err)
		require.NotNil(t, inv.Team)
		assert.Equal(t, "Team", inv.Team.Name)
	})

	t.Run("expired", func(t *testing.T) {
		svc, mock := setupInviteService(t, now)
		expectResolve(mock, "abc", teamID, now.Add(-time.Minute), nil)

		_, err := svc.ResolveInvite(context.Background(), "abc")

		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("exhausted", func(t *testing.T) {
		svc, mock := setupInviteService(t, now)
		expectResolve(mock, "abc", teamID, now.Add(time.Hour), intPtr(0))

		_, err := svc.ResolveInvite(context.Background(), "abc")

		assert.ErrorIs(t, err, ErrExhausted)
	})

	t.Run("unknown", func(t *testing.T) {
		svc, mock := setupInviteService(t, now)
		mock.ExpectQuery(`FROM team_invites i`).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

		_, err := svc.ResolveInvite(context.Background(), "nope")

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func expectMemberCheck(mock pgxmock.PgxPoolIface, teamID, userID uuid.UUID, member bool) {
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM team_members`).
		WithArgs(teamID, userID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(member))
}

func TestInviteService_AcceptInvite(t *testing.T) {
	now := time.Now()
	svc, mock := setupInviteService(t, now)
	teamID := uuid.New()
	userID := uuid.New()

	expectResolve(mock, "abc", teamID, now.Add(time.Hour), intPtr(1))
	expectMemberCheck(mock, teamID, userID, false)
	mock.ExpectQuery(`SELECT accept_team_invite`).
		WithArgs("abc", userID).
		WillReturnRows(pgxmock.NewRows([]string{"accept_team_invite"}).AddRow(true))

	inv, err := svc.AcceptInvite(context.Background(), "abc", userID)

	require.NoError(t, err)
	assert.Equal(t, teamID, inv.TeamID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteService_AcceptInvite_AlreadyMember(t *testing.T) {
	now := time.Now()
	svc, mock := setupInviteService(t, now)
	teamID := uuid.New()
	userID := uuid.New()

	expectResolve(mock, "abc", teamID, now.Add(time.Hour), nil)
	expectMemberCheck(mock, teamID, userID, true)

	_, err := svc.AcceptInvite(context.Background(), "abc", userID)

	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteService_AcceptInvite_LastUseTakenConcurrently(t *testing.T) {
	now := time.Now()
	svc, mock := setupInviteService(t, now)
	teamID := uuid.New()
	userID := uuid.New()

	expectResolve(mock, "abc", teamID, now.Add(time.Hour), intPtr(1))
	expectMemberCheck(mock, teamID, userID, false)
	mock.ExpectQuery(`SELECT accept_team_invite`).
		WithArgs("abc", userID).
		WillReturnRows(pgxmock.NewRows([]string{"accept_team_invite"}).AddRow(false))
	expectResolve(mock, "abc", teamID, now.Add(time.Hour), intPtr(0))

	_, err := svc.AcceptInvite(context.Background(), "abc", userID)

	assert.ErrorIs(t, err, ErrExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInviteService_RevokeInvite_Missing(t *testing.T) {
	svc, mock := setupInviteService(t, time.Now())
	teamID := uuid.New()
	inviteID := uuid.New()

	mock.ExpectExec(`DELETE FROM team_invites`).
		WithArgs(inviteID, teamID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := svc.RevokeInvite(context.Background(), teamID, inviteID)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateInviteCode(t *testing.T) {
	a, err := generateInviteCode()
	require.NoError(t, err)
	b, err := generateInviteCode()
	require.NoError(t, err)

	assert.Len(t, a, 24)
	assert.NotEqual(t, a, b)
}
