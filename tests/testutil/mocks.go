package testutil

import (
	"context"

	"github.com/dimitrije/teamsync-api/internal/hub"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/dimitrije/teamsync-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCoordinator mocks every coordinator operation the handlers call
type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) CreateTeam(ctx context.Context, actorID uuid.UUID, in services.TeamInput) (*models.Team, error) {
	args := m.Called(ctx, actorID, in)
	v0, _ := args.Get(0).(*models.Team)
	return v0, args.Error(1)
}

func (m *MockCoordinator) GetTeam(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, actorID, teamID)
	v0, _ := args.Get(0).(*models.Team)
	return v0, args.Error(1)
}

func (m *MockCoordinator) UpdateTeam(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID, in services.TeamUpdate) (*models.Team, error) {
	args := m.Called(ctx, actorID, teamID, in)
	v0, _ := args.Get(0).(*models.Team)
	return v0, args.Error(1)
}

func (m *MockCoordinator) DeleteTeam(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID) error {
	args := m.Called(ctx, actorID, teamID)
	return args.Error(0)
}

func (m *MockCoordinator) ListUserTeams(ctx context.Context, actorID uuid.UUID) ([]models.UserTeam, error) {
	args := m.Called(ctx, actorID)
	v0, _ := args.Get(0).([]models.UserTeam)
	return v0, args.Error(1)
}

func (m *MockCoordinator) ListTeamMembers(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID) ([]models.TeamMember, error) {
	args := m.Called(ctx, actorID, teamID)
	v0, _ := args.Get(0).([]models.TeamMember)
	return v0, args.Error(1)
}

func (m *MockCoordinator) AddTeamMember(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	args := m.Called(ctx, actorID, teamID, userID, role)
	v0, _ := args.Get(0).(*models.Membership)
	return v0, args.Error(1)
}

func (m *MockCoordinator) RemoveTeamMember(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, actorID, teamID, userID)
	v0, _ := args.Get(0).(*models.Membership)
	return v0, args.Error(1)
}

func (m *MockCoordinator) ChangeTeamMemberRole(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	args := m.Called(ctx, actorID, teamID, userID, role)
	v0, _ := args.Get(0).(*models.Membership)
	return v0, args.Error(1)
}

func (m *MockCoordinator) SetTeamMemberTags(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID, userID uuid.UUID, tags []string) (*models.Membership, error) {
	args := m.Called(ctx, actorID, teamID, userID, tags)
	v0, _ := args.Get(0).(*models.Membership)
	return v0, args.Error(1)
}

func (m *MockCoordinator) LeaveTeam(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, actorID, teamID)
	v0, _ := args.Get(0).(*models.Membership)
	return v0, args.Error(1)
}

func (m *MockCoordinator) TransferOwnership(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID, newOwnerID uuid.UUID) (*models.Team, error) {
	args := m.Called(ctx, actorID, teamID, newOwnerID)
	v0, _ := args.Get(0).(*models.Team)
	return v0, args.Error(1)
}

func (m *MockCoordinator) CreateDepartment(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID, in services.DepartmentInput) (*models.Department, error) {
	args := m.Called(ctx, actorID, teamID, in)
	v0, _ := args.Get(0).(*models.Department)
	return v0, args.Error(1)
}

func (m *MockCoordinator) GetDepartment(ctx context.Context, actorID uuid.UUID, departmentID uuid.UUID) (*models.Department, error) {
	args := m.Called(ctx, actorID, departmentID)
	v0, _ := args.Get(0).(*models.Department)
	return v0, args.Error(1)
}

func (m *MockCoordinator) ListDepartments(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID) ([]models.Department, error) {
	args := m.Called(ctx, actorID, teamID)
	v0, _ := args.Get(0).([]models.Department)
	return v0, args.Error(1)
}

func (m *MockCoordinator) UpdateDepartment(ctx context.Context, actorID uuid.UUID, departmentID uuid.UUID, in services.DepartmentUpdate) (*models.Department, error) {
	args := m.Called(ctx, actorID, departmentID, in)
	v0, _ := args.Get(0).(*models.Department)
	return v0, args.Error(1)
}

func (m *MockCoordinator) DeleteDepartment(ctx context.Context, actorID uuid.UUID, departmentID uuid.UUID) error {
	args := m.Called(ctx, actorID, departmentID)
	return args.Error(0)
}

func (m *MockCoordinator) ListDepartmentMembers(ctx context.Context, actorID uuid.UUID, departmentID uuid.UUID) ([]models.DepartmentMember, error) {
	args := m.Called(ctx, actorID, departmentID)
	v0, _ := args.Get(0).([]models.DepartmentMember)
	return v0, args.Error(1)
}

func (m *MockCoordinator) AddDepartmentMember(ctx context.Context, actorID uuid.UUID, departmentID uuid.UUID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	args := m.Called(ctx, actorID, departmentID, userID, role)
	v0, _ := args.Get(0).(*models.Membership)
	return v0, args.Error(1)
}

func (m *MockCoordinator) RemoveDepartmentMember(ctx context.Context, actorID uuid.UUID, departmentID uuid.UUID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, actorID, departmentID, userID)
	v0, _ := args.Get(0).(*models.Membership)
	return v0, args.Error(1)
}

func (m *MockCoordinator) ChangeDepartmentMemberRole(ctx context.Context, actorID uuid.UUID, departmentID uuid.UUID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	args := m.Called(ctx, actorID, departmentID, userID, role)
	v0, _ := args.Get(0).(*models.Membership)
	return v0, args.Error(1)
}

func (m *MockCoordinator) CreateProject(ctx context.Context, actorID uuid.UUID, in services.ProjectInput) (*models.Project, error) {
	args := m.Called(ctx, actorID, in)
	v0, _ := args.Get(0).(*models.Project)
	return v0, args.Error(1)
}

func (m *MockCoordinator) GetProject(ctx context.Context, actorID uuid.UUID, projectID uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, actorID, projectID)
	v0, _ := args.Get(0).(*models.Project)
	return v0, args.Error(1)
}

func (m *MockCoordinator) DeleteProject(ctx context.Context, actorID uuid.UUID, projectID uuid.UUID) error {
	args := m.Called(ctx, actorID, projectID)
	return args.Error(0)
}

func (m *MockCoordinator) TransferProjectOwnership(ctx context.Context, actorID uuid.UUID, projectID uuid.UUID, newOwnerID uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, actorID, projectID, newOwnerID)
	v0, _ := args.Get(0).(*models.Project)
	return v0, args.Error(1)
}

func (m *MockCoordinator) ListProjectMembers(ctx context.Context, actorID uuid.UUID, projectID uuid.UUID) ([]models.ProjectMember, error) {
	args := m.Called(ctx, actorID, projectID)
	v0, _ := args.Get(0).([]models.ProjectMember)
	return v0, args.Error(1)
}

func (m *MockCoordinator) AddProjectMember(ctx context.Context, actorID uuid.UUID, projectID uuid.UUID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	args := m.Called(ctx, actorID, projectID, userID, role)
	v0, _ := args.Get(0).(*models.Membership)
	return v0, args.Error(1)
}

func (m *MockCoordinator) RemoveProjectMember(ctx context.Context, actorID uuid.UUID, projectID uuid.UUID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, actorID, projectID, userID)
	v0, _ := args.Get(0).(*models.Membership)
	return v0, args.Error(1)
}

func (m *MockCoordinator) ChangeProjectMemberRole(ctx context.Context, actorID uuid.UUID, projectID uuid.UUID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	args := m.Called(ctx, actorID, projectID, userID, role)
	v0, _ := args.Get(0).(*models.Membership)
	return v0, args.Error(1)
}

func (m *MockCoordinator) CreateInvite(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID, in services.InviteInput) (*models.TeamInvite, bool, error) {
	args := m.Called(ctx, actorID, teamID, in)
	v0, _ := args.Get(0).(*models.TeamInvite)
	return v0, args.Bool(1), args.Error(2)
}

func (m *MockCoordinator) ListTeamInvites(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID) ([]models.TeamInvite, error) {
	args := m.Called(ctx, actorID, teamID)
	v0, _ := args.Get(0).([]models.TeamInvite)
	return v0, args.Error(1)
}

func (m *MockCoordinator) RevokeInvite(ctx context.Context, actorID uuid.UUID, teamID uuid.UUID, inviteID uuid.UUID) error {
	args := m.Called(ctx, actorID, teamID, inviteID)
	return args.Error(0)
}

func (m *MockCoordinator) ResolveInvite(ctx context.Context, code string) (*models.TeamInvite, error) {
	args := m.Called(ctx, code)
	v0, _ := args.Get(0).(*models.TeamInvite)
	return v0, args.Error(1)
}

func (m *MockCoordinator) AcceptInvite(ctx context.Context, actorID uuid.UUID, code string) (*models.TeamInvite, error) {
	args := m.Called(ctx, actorID, code)
	v0, _ := args.Get(0).(*models.TeamInvite)
	return v0, args.Error(1)
}

func (m *MockCoordinator) SendConnectionRequest(ctx context.Context, actorID uuid.UUID, receiverID uuid.UUID) (*models.ConnectionRequest, error) {
	args := m.Called(ctx, actorID, receiverID)
	v0, _ := args.Get(0).(*models.ConnectionRequest)
	return v0, args.Error(1)
}

func (m *MockCoordinator) AcceptConnectionRequest(ctx context.Context, actorID uuid.UUID, requestID uuid.UUID) (*models.Connection, error) {
	args := m.Called(ctx, actorID, requestID)
	v0, _ := args.Get(0).(*models.Connection)
	return v0, args.Error(1)
}

func (m *MockCoordinator) RejectConnectionRequest(ctx context.Context, actorID uuid.UUID, requestID uuid.UUID) (*models.ConnectionRequest, error) {
	args := m.Called(ctx, actorID, requestID)
	v0, _ := args.Get(0).(*models.ConnectionRequest)
	return v0, args.Error(1)
}

func (m *MockCoordinator) CancelConnectionRequest(ctx context.Context, actorID uuid.UUID, requestID uuid.UUID) (*models.ConnectionRequest, error) {
	args := m.Called(ctx, actorID, requestID)
	v0, _ := args.Get(0).(*models.ConnectionRequest)
	return v0, args.Error(1)
}

func (m *MockCoordinator) RemoveConnection(ctx context.Context, actorID uuid.UUID, connectionID uuid.UUID) (*models.Connection, error) {
	args := m.Called(ctx, actorID, connectionID)
	v0, _ := args.Get(0).(*models.Connection)
	return v0, args.Error(1)
}

func (m *MockCoordinator) ConnectionStatus(ctx context.Context, actorID uuid.UUID, otherID uuid.UUID) (*models.ConnectionStatus, error) {
	args := m.Called(ctx, actorID, otherID)
	v0, _ := args.Get(0).(*models.ConnectionStatus)
	return v0, args.Error(1)
}

func (m *MockCoordinator) ListConnections(ctx context.Context, actorID uuid.UUID) ([]models.Connection, error) {
	args := m.Called(ctx, actorID)
	v0, _ := args.Get(0).([]models.Connection)
	return v0, args.Error(1)
}

func (m *MockCoordinator) ListPendingRequests(ctx context.Context, actorID uuid.UUID) ([]models.ConnectionRequest, error) {
	args := m.Called(ctx, actorID)
	v0, _ := args.Get(0).([]models.ConnectionRequest)
	return v0, args.Error(1)
}

func (m *MockCoordinator) CanSubscribe(ctx context.Context, actorID uuid.UUID, topic string) (bool, error) {
	args := m.Called(ctx, actorID, topic)
	return args.Bool(0), args.Error(1)
}

// MockEventHub mocks the SSE hub
type MockEventHub struct {
	mock.Mock
}

func (m *MockEventHub) Register(client *hub.Client) {
	m.Called(client)
}

func (m *MockEventHub) Unregister(client *hub.Client) {
	m.Called(client)
}

func (m *MockEventHub) Subscribe(clientID, topic string) bool {
	args := m.Called(clientID, topic)
	return args.Bool(0)
}

func (m *MockEventHub) Unsubscribe(clientID, topic string) {
	m.Called(clientID, topic)
}

func (m *MockEventHub) ClientUser(clientID string) (uuid.UUID, bool) {
	args := m.Called(clientID)
	id, _ := args.Get(0).(uuid.UUID)
	return id, args.Bool(1)
}
