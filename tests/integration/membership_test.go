package integration

import (
	"context"
	"testing"

	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/dimitrije/teamsync-api/internal/services"
	"github.com/dimitrije/teamsync-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembership_Integration_RemoveCascadesDepartments(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	s := newStack(tdb)
	ctx := context.Background()

	owner := fixtures.CreateUser(t)
	member := fixtures.CreateUser(t)
	team := fixtures.CreateTeam(t, owner)
	fixtures.AddTeamMember(t, team, member, roles.Member)
	dept := fixtures.CreateDepartment(t, team)
	fixtures.AddDepartmentMember(t, dept, member, roles.Admin)

	project, err := s.coordinator.CreateProject(ctx, owner.ID, services.ProjectInput{Name: "Roadmap", TeamID: &team.ID})
	require.NoError(t, err)
	_, err = s.coordinator.AddProjectMember(ctx, owner.ID, project.ID, member.ID, roles.Member)
	require.NoError(t, err)

	_, err = s.coordinator.RemoveTeamMember(ctx, owner.ID, team.ID, member.ID)
	require.NoError(t, err)

	_, err = s.members.GetDepartmentMember(ctx, dept.ID, member.ID)
	assert.Error(t, err)

	kept, err := s.members.GetProjectMember(ctx, project.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, roles.Member, kept.Role)

	_, err = s.coordinator.GetProject(ctx, member.ID, project.ID)
	assert.Equal(t, services.KindUnauthorized, services.KindOf(err))
}

func TestMembership_Integration_OwnerCannotLeave(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	s := newStack(tdb)
	ctx := context.Background()

	owner := fixtures.CreateUser(t)
	team := fixtures.CreateTeam(t, owner)

	_, err := s.coordinator.LeaveTeam(ctx, owner.ID, team.ID)
	assert.Equal(t, services.ReasonOwnerMustTransfer, services.ReasonOf(err))

	_, err = s.coordinator.AddTeamMember(ctx, owner.ID, team.ID, owner.ID, roles.Owner)
	assert.Error(t, err)
}

func TestMembership_Integration_CreateTeamSeedsOwner(t *testing.T) {
	tdb := setupTest(t)
	fixtures := testutil.NewFixtures(tdb.DB)
	s := newStack(tdb)
	ctx := context.Background()

	owner := fixtures.CreateUser(t)
	team, err := s.coordinator.CreateTeam(ctx, owner.ID, services.TeamInput{Name: "Core"})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, team.OwnerID)
	assert.Equal(t, owner.ID, ownersOf(t, s, team.ID)[0])

	teams, err := s.coordinator.ListUserTeams(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, roles.Owner, teams[0].Role)
}
