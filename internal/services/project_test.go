package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "owner_id", "team_id", "department_id", "created_at"})
}

func projectMemberRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"project_id", "user_id", "role", "joined_at"})
}

func TestMembershipStore_CreateProject_Personal(t *testing.T) {
	store, mock := setupMembershipStore(t)
	ownerID := uuid.New()
	projectID := uuid.New()
	var noTeam, noDept *uuid.UUID

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs("Side", ownerID, noTeam, noDept).
		WillReturnRows(projectRows().AddRow(projectID, "Side", ownerID, noTeam, noDept, time.Now()))
	mock.ExpectExec(`INSERT INTO project_members`).
		WithArgs(projectID, ownerID, "owner").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	p, err := store.CreateProject(context.Background(), ownerID, "Side", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, ownerID, p.OwnerID)
	assert.Nil(t, p.TeamID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_CreateProject_TeamFromDepartment(t *testing.T) {
	store, mock := setupMembershipStore(t)
	ownerID := uuid.New()
	projectID := uuid.New()
	teamID := uuid.New()
	deptID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT team_id FROM departments`).
		WithArgs(deptID).
		WillReturnRows(pgxmock.NewRows([]string{"team_id"}).AddRow(teamID))
	mock.ExpectQuery(`FOR SHARE`).
		WithArgs(teamID, ownerID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("member"))
	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs("Roadmap", ownerID, &teamID, &deptID).
		WillReturnRows(projectRows().AddRow(projectID, "Roadmap", ownerID, &teamID, &deptID, time.Now()))
	mock.ExpectExec(`INSERT INTO project_members`).
		WithArgs(projectID, ownerID, "owner").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	p, err := store.CreateProject(context.Background(), ownerID, "Roadmap", nil, &deptID)

	require.NoError(t, err)
	require.NotNil(t, p.TeamID)
	assert.Equal(t, teamID, *p.TeamID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_CreateProject_DepartmentMismatch(t *testing.T) {
	store, mock := setupMembershipStore(t)
	teamID := uuid.New()
	deptID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT team_id FROM departments`).
		WithArgs(deptID).
		WillReturnRows(pgxmock.NewRows([]string{"team_id"}).AddRow(uuid.New()))
	mock.ExpectRollback()

	_, err := store.CreateProject(context.Background(), uuid.New(), "X", &teamID, &deptID)

	assert.Equal(t, ReasonDepartmentMismatch, ReasonOf(err))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_RemoveProjectMember_TargetIsOwner(t *testing.T) {
	store, mock := setupMembershipStore(t)
	projectID := uuid.New()
	ownerID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM project_members\s+WHERE .+ FOR UPDATE`).
		WithArgs(projectID, ownerID).
		WillReturnRows(projectMemberRows().AddRow(projectID, ownerID, "owner", time.Now()))
	mock.ExpectRollback()

	_, err := store.RemoveProjectMember(context.Background(), projectID, ownerID)

	assert.ErrorIs(t, err, ErrTargetIsOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_TransferProjectOwnership(t *testing.T) {
	store, mock := setupMembershipStore(t)
	projectID := uuid.New()
	oldOwner := uuid.New()
	newOwner := uuid.New()
	now := time.Now()
	var noTeam, noDept *uuid.UUID

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT owner_id FROM projects .+ FOR UPDATE`).
		WithArgs(projectID).
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow(oldOwner))
	mock.ExpectQuery(`FROM project_members\s+WHERE .+ FOR UPDATE`).
		WithArgs(projectID, newOwner).
		WillReturnRows(projectMemberRows().AddRow(projectID, newOwner, "member", now))
	mock.ExpectQuery(`UPDATE projects SET owner_id`).
		WithArgs(projectID, newOwner).
		WillReturnRows(projectRows().AddRow(projectID, "P", newOwner, noTeam, noDept, now))
	mock.ExpectQuery(`UPDATE project_members SET role`).
		WithArgs(projectID, newOwner, "owner").
		WillReturnRows(projectMemberRows().AddRow(projectID, newOwner, "owner", now))
	mock.ExpectExec(`UPDATE project_members SET role`).
		WithArgs(projectID, oldOwner, "admin").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	p, err := store.TransferProjectOwnership(context.Background(), projectID, newOwner)

	require.NoError(t, err)
	assert.Equal(t, newOwner, p.OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_TransferProjectOwnership_TargetNotMember(t *testing.T) {
	store, mock := setupMembershipStore(t)
	projectID := uuid.New()
	newOwner := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT owner_id FROM projects`).
		WithArgs(projectID).
		WillReturnRows(pgxmock.NewRows([]string{"owner_id"}).AddRow(uuid.New()))
	mock.ExpectQuery(`FROM project_members`).
		WithArgs(projectID, newOwner).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.TransferProjectOwnership(context.Background(), projectID, newOwner)

	assert.ErrorIs(t, err, ErrTargetNotMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_ChangeProjectMemberRole_RejectsOwner(t *testing.T) {
	store, _ := setupMembershipStore(t)

	_, err := store.ChangeProjectMemberRole(context.Background(), uuid.New(), uuid.New(), roles.Owner)

	assert.ErrorIs(t, err, ErrOwnerMustTransfer)
}
