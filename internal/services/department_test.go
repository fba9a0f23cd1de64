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

func departmentMemberRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"department_id", "user_id", "role", "joined_at"})
}

func TestMembershipStore_CreateDepartment(t *testing.T) {
	store, mock := setupMembershipStore(t)
	teamID := uuid.New()
	deptID := uuid.New()

	mock.ExpectQuery(`INSERT INTO departments`).
		WithArgs(teamID, "Platform", "infra").
		WillReturnRows(pgxmock.NewRows([]string{"id", "team_id", "name", "description", "created_at"}).
			AddRow(deptID, teamID, "Platform", "infra", time.Now()))

	d, err := store.CreateDepartment(context.Background(), teamID, "Platform", "infra")

	require.NoError(t, err)
	assert.Equal(t, deptID, d.ID)
	assert.Equal(t, teamID, d.TeamID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_AddDepartmentMember_RequiresTeamMembership(t *testing.T) {
	store, mock := setupMembershipStore(t)
	teamID := uuid.New()
	deptID := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT team_id FROM departments`).
		WithArgs(deptID).
		WillReturnRows(pgxmock.NewRows([]string{"team_id"}).AddRow(teamID))
	mock.ExpectQuery(`SELECT role FROM team_members .+ FOR SHARE`).
		WithArgs(teamID, userID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.AddDepartmentMember(context.Background(), deptID, userID, roles.Member)

	assert.ErrorIs(t, err, ErrTargetNotMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_AddDepartmentMember_New(t *testing.T) {
	store, mock := setupMembershipStore(t)
	teamID := uuid.New()
	deptID := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT team_id FROM departments`).
		WithArgs(deptID).
		WillReturnRows(pgxmock.NewRows([]string{"team_id"}).AddRow(teamID))
	mock.ExpectQuery(`FOR SHARE`).
		WithArgs(teamID, userID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("member"))
	mock.ExpectQuery(`SELECT .+ FROM department_members\s+WHERE .+ FOR UPDATE`).
		WithArgs(deptID, userID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO department_members`).
		WithArgs(deptID, userID, "admin").
		WillReturnRows(departmentMemberRows().AddRow(deptID, userID, "admin", time.Now()))
	mock.ExpectCommit()

	m, err := store.AddDepartmentMember(context.Background(), deptID, userID, roles.Admin)

	require.NoError(t, err)
	assert.Equal(t, roles.Admin, m.Role)
	assert.Equal(t, deptID, m.ResourceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_AddDepartmentMember_RejectsOwner(t *testing.T) {
	store, mock := setupMembershipStore(t)

	_, err := store.AddDepartmentMember(context.Background(), uuid.New(), uuid.New(), roles.Owner)

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_RemoveDepartmentMember_NotMember(t *testing.T) {
	store, mock := setupMembershipStore(t)
	deptID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(`DELETE FROM department_members`).
		WithArgs(deptID, userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.RemoveDepartmentMember(context.Background(), deptID, userID)

	assert.ErrorIs(t, err, ErrTargetNotMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStore_DeleteDepartment_Missing(t *testing.T) {
	store, mock := setupMembershipStore(t)
	deptID := uuid.New()

	mock.ExpectExec(`DELETE FROM departments`).
		WithArgs(deptID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := store.DeleteDepartment(context.Background(), deptID)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
