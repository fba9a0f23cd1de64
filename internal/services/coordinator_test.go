package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/dimitrije/teamsync-api/internal/hub"
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notification struct {
	topic     string
	eventType string
	payload   any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(topic, eventType string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{topic, eventType, payload})
}

func (n *recordingNotifier) topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.topic
	}
	return out
}

func setupCoordinator(t *testing.T) (*Coordinator, pgxmock.PgxPoolIface, *recordingNotifier) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	members := NewMembershipStore(db, nil)
	notifier := &recordingNotifier{}
	c := NewCoordinator(
		members,
		NewOwnershipGuard(db, nil),
		NewConnectionService(db, nil),
		NewInviteService(db, InviteConfig{}, nil),
		NewAuthorizer(members, nil),
		notifier,
		CoordinatorConfig{StoreTimeout: time.Second, MaxRetries: 2},
		nil,
	)
	return c, mock, notifier
}

func expectTeamLookup(mock pgxmock.PgxPoolIface, teamID, ownerID uuid.UUID) {
	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM teams WHERE id`).
		WithArgs(teamID).
		WillReturnRows(teamRows().AddRow(teamID, "Team", "", "", ownerID, now, now))
}

func expectMemberLookup(mock pgxmock.PgxPoolIface, teamID, userID uuid.UUID, role string) {
	q := mock.ExpectQuery(`SELECT .+ FROM team_members WHERE team_id = \$1 AND user_id = \$2`).WithArgs(teamID, userID)
	if role == "" {
		q.WillReturnError(pgx.ErrNoRows)
		return
	}
	q.WillReturnRows(teamMemberRows().AddRow(teamID, userID, role, []string{}, []string{}, time.Now()))
}

func TestCoordinator_CreateTeam(t *testing.T) {
	c, mock, notifier := setupCoordinator(t)
	ownerID := uuid.New()
	teamID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO teams`).
		WithArgs("Core", "", "", ownerID).
		WillReturnRows(teamRows().AddRow(teamID, "Core", "", "", ownerID, now, now))
	mock.ExpectExec(`INSERT INTO team_members`).
		WithArgs(teamID, ownerID, "owner", roles.All.Strings()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	team, err := c.CreateTeam(context.Background(), ownerID, TeamInput{Name: "  Core  "})

	require.NoError(t, err)
	assert.Equal(t, teamID, team.ID)
	assert.Equal(t, []string{hub.UserTeamsTopic(ownerID)}, notifier.topics())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoordinator_CreateTeam_Validation(t *testing.T) {
	c, mock, notifier := setupCoordinator(t)

	_, err := c.CreateTeam(context.Background(), uuid.New(), TeamInput{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.CreateTeam(context.Background(), uuid.Nil, TeamInput{Name: "Core"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, notifier.topics())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoordinator_AddTeamMember_DeniedWithoutMutation(t *testing.T) {
	c, mock, notifier := setupCoordinator(t)
	teamID := uuid.New()
	ownerID := uuid.New()
	actor := uuid.New()
	target := uuid.New()

	expectTeamLookup(mock, teamID, ownerID)
	expectMemberLookup(mock, teamID, actor, "member")
	expectMemberLookup(mock, teamID, target, "")

	_, err := c.AddTeamMember(context.Background(), actor, teamID, target, roles.Member)

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, ReasonInsufficientRole, ReasonOf(err))
	assert.Empty(t, notifier.topics())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoordinator_AddTeamMember_ReconcilesAndPublishes(t *testing.T) {
	c, mock, notifier := setupCoordinator(t)
	teamID := uuid.New()
	ownerID := uuid.New()
	target := uuid.New()

	expectTeamLookup(mock, teamID, ownerID)
	expectMemberLookup(mock, teamID, ownerID, "owner")
	expectMemberLookup(mock, teamID, target, "")
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(teamID, target).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO team_members`).
		WithArgs(teamID, target, "admin").
		WillReturnRows(teamMemberRows().AddRow(teamID, target, "admin", []string{}, []string{}, time.Now()))
	mock.ExpectCommit()
	expectOwnershipCheck(mock, teamID, ownerID, 1, true)

	m, err := c.AddTeamMember(context.Background(), ownerID, teamID, target, roles.Admin)

	require.NoError(t, err)
	assert.Equal(t, roles.Admin, m.Role)
	assert.Equal(t, []string{hub.TeamTopic(teamID), hub.UserTeamsTopic(target)}, notifier.topics())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoordinator_GetTeam_NotMember(t *testing.T) {
	c, mock, _ := setupCoordinator(t)
	teamID := uuid.New()
	actor := uuid.New()

	expectTeamLookup(mock, teamID, uuid.New())
	expectMemberLookup(mock, teamID, actor, "")

	_, err := c.GetTeam(context.Background(), actor, teamID)

	assert.ErrorIs(t, err, ErrNotAMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoordinator_LeaveTeam(t *testing.T) {
	c, mock, notifier := setupCoordinator(t)
	teamID := uuid.New()
	ownerID := uuid.New()
	actor := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(teamID, actor).
		WillReturnRows(teamMemberRows().AddRow(teamID, actor, "member", []string{}, []string{}, time.Now()))
	mock.ExpectExec(`DELETE FROM department_members`).
		WithArgs(teamID, actor).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM team_members`).
		WithArgs(teamID, actor).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	expectOwnershipCheck(mock, teamID, ownerID, 1, true)

	_, err := c.LeaveTeam(context.Background(), actor, teamID)

	require.NoError(t, err)
	assert.Equal(t, []string{hub.TeamTopic(teamID), hub.UserTeamsTopic(actor)}, notifier.topics())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoordinator_CanSubscribe(t *testing.T) {
	actor := uuid.New()

	t.Run("own user topic", func(t *testing.T) {
		c, _, _ := setupCoordinator(t)
		ok, err := c.CanSubscribe(context.Background(), actor, hub.UserTeamsTopic(actor))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("foreign user topic", func(t *testing.T) {
		c, _, _ := setupCoordinator(t)
		ok, err := c.CanSubscribe(context.Background(), actor, hub.UserConnectionsTopic(uuid.New()))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("team member", func(t *testing.T) {
		c, mock, _ := setupCoordinator(t)
		teamID := uuid.New()
		expectTeamLookup(mock, teamID, uuid.New())
		expectMemberLookup(mock, teamID, actor, "member")

		ok, err := c.CanSubscribe(context.Background(), actor, hub.TeamTopic(teamID))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing team", func(t *testing.T) {
		c, mock, _ := setupCoordinator(t)
		teamID := uuid.New()
		mock.ExpectQuery(`FROM teams WHERE id`).WithArgs(teamID).WillReturnError(pgx.ErrNoRows)

		ok, err := c.CanSubscribe(context.Background(), actor, hub.TeamTopic(teamID))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed", func(t *testing.T) {
		c, _, _ := setupCoordinator(t)
		_, err := c.CanSubscribe(context.Background(), actor, "workspace:123")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestCoordinator_Retry(t *testing.T) {
	c, _, _ := setupCoordinator(t)

	calls := 0
	err := c.retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &Error{Kind: KindConflict, Retryable: true}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = c.retry(context.Background(), func() error {
		calls++
		return ErrAlreadyMember
	})
	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.Equal(t, 1, calls)

	calls = 0
	err = c.retry(context.Background(), func() error {
		calls++
		return &Error{Kind: KindTransient, Retryable: true}
	})
	assert.True(t, errors.Is(err, ErrTransient))
	assert.Equal(t, 3, calls)
}
