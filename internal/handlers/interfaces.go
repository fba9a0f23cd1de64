package handlers

import (
	"context"

	"github.com/dimitrije/teamsync-api/internal/hub"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/dimitrije/teamsync-api/internal/services"
	"github.com/google/uuid"
)

// TeamCoordinator defines the team and membership operations used by handlers
type TeamCoordinator interface {
	CreateTeam(ctx context.Context, actorID uuid.UUID, in services.TeamInput) (*models.Team, error)
	GetTeam(ctx context.Context, actorID, teamID uuid.UUID) (*models.Team, error)
	UpdateTeam(ctx context.Context, actorID, teamID uuid.UUID, in services.TeamUpdate) (*models.Team, error)
	DeleteTeam(ctx context.Context, actorID, teamID uuid.UUID) error
	ListUserTeams(ctx context.Context, actorID uuid.UUID) ([]models.UserTeam, error)
	ListTeamMembers(ctx context.Context, actorID, teamID uuid.UUID) ([]models.TeamMember, error)
	AddTeamMember(ctx context.Context, actorID, teamID, userID uuid.UUID, role roles.Role) (*models.Membership, error)
	RemoveTeamMember(ctx context.Context, actorID, teamID, userID uuid.UUID) (*models.Membership, error)
	ChangeTeamMemberRole(ctx context.Context, actorID, teamID, userID uuid.UUID, role roles.Role) (*models.Membership, error)
	SetTeamMemberTags(ctx context.Context, actorID, teamID, userID uuid.UUID, tags []string) (*models.Membership, error)
	LeaveTeam(ctx context.Context, actorID, teamID uuid.UUID) (*models.Membership, error)
	TransferOwnership(ctx context.Context, actorID, teamID, newOwnerID uuid.UUID) (*models.Team, error)
}

// OrgCoordinator defines the department and project operations used by handlers
type OrgCoordinator interface {
	CreateDepartment(ctx context.Context, actorID, teamID uuid.UUID, in services.DepartmentInput) (*models.Department, error)
	GetDepartment(ctx context.Context, actorID, departmentID uuid.UUID) (*models.Department, error)
	ListDepartments(ctx context.Context, actorID, teamID uuid.UUID) ([]models.Department, error)
	UpdateDepartment(ctx context.Context, actorID, departmentID uuid.UUID, in services.DepartmentUpdate) (*models.Department, error)
	DeleteDepartment(ctx context.Context, actorID, departmentID uuid.UUID) error
	ListDepartmentMembers(ctx context.Context, actorID, departmentID uuid.UUID) ([]models.DepartmentMember, error)
	AddDepartmentMember(ctx context.Context, actorID, departmentID, userID uuid.UUID, role roles.Role) (*models.Membership, error)
	RemoveDepartmentMember(ctx context.Context, actorID, departmentID, userID uuid.UUID) (*models.Membership, error)
	ChangeDepartmentMemberRole(ctx context.Context, actorID, departmentID, userID uuid.UUID, role roles.Role) (*models.Membership, error)

	CreateProject(ctx context.Context, actorID uuid.UUID, in services.ProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, actorID, projectID uuid.UUID) (*models.Project, error)
	DeleteProject(ctx context.Context, actorID, projectID uuid.UUID) error
	TransferProjectOwnership(ctx context.Context, actorID, projectID, newOwnerID uuid.UUID) (*models.Project, error)
	ListProjectMembers(ctx context.Context, actorID, projectID uuid.UUID) ([]models.ProjectMember, error)
	AddProjectMember(ctx context.Context, actorID, projectID, userID uuid.UUID, role roles.Role) (*models.Membership, error)
	RemoveProjectMember(ctx context.Context, actorID, projectID, userID uuid.UUID) (*models.Membership, error)
	ChangeProjectMemberRole(ctx context.Context, actorID, projectID, userID uuid.UUID, role roles.Role) (*models.Membership, error)
}

// InviteCoordinator defines the invite operations used by handlers
type InviteCoordinator interface {
	CreateInvite(ctx context.Context, actorID, teamID uuid.UUID, in services.InviteInput) (*models.TeamInvite, bool, error)
	ListTeamInvites(ctx context.Context, actorID, teamID uuid.UUID) ([]models.TeamInvite, error)
	RevokeInvite(ctx context.Context, actorID, teamID, inviteID uuid.UUID) error
	ResolveInvite(ctx context.Context, code string) (*models.TeamInvite, error)
	AcceptInvite(ctx context.Context, actorID uuid.UUID, code string) (*models.TeamInvite, error)
}

// ConnectionCoordinator defines the connection operations used by handlers
type ConnectionCoordinator interface {
	SendConnectionRequest(ctx context.Context, actorID, receiverID uuid.UUID) (*models.ConnectionRequest, error)
	AcceptConnectionRequest(ctx context.Context, actorID, requestID uuid.UUID) (*models.Connection, error)
	RejectConnectionRequest(ctx context.Context, actorID, requestID uuid.UUID) (*models.ConnectionRequest, error)
	CancelConnectionRequest(ctx context.Context, actorID, requestID uuid.UUID) (*models.ConnectionRequest, error)
	RemoveConnection(ctx context.Context, actorID, connectionID uuid.UUID) (*models.Connection, error)
	ConnectionStatus(ctx context.Context, actorID, otherID uuid.UUID) (*models.ConnectionStatus, error)
	ListConnections(ctx context.Context, actorID uuid.UUID) ([]models.Connection, error)
	ListPendingRequests(ctx context.Context, actorID uuid.UUID) ([]models.ConnectionRequest, error)
}

// SubscriptionAuthorizer decides which event topics a user may receive
type SubscriptionAuthorizer interface {
	CanSubscribe(ctx context.Context, actorID uuid.UUID, topic string) (bool, error)
}

// EventHub defines the hub methods used by the SSE handler
type EventHub interface {
	Register(client *hub.Client)
	Unregister(client *hub.Client)
	Subscribe(clientID, topic string) bool
	Unsubscribe(clientID, topic string)
	ClientUser(clientID string) (uuid.UUID, bool)
}
