package services

import (
	"context"
	"strings"

	"github.com/dimitrije/teamsync-api/internal/hub"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
)

type DepartmentInput struct {
	Name        string
	Description string
}

type DepartmentUpdate struct {
	Name        *string
	Description *string
}

type ProjectInput struct {
	Name         string
	TeamID       *uuid.UUID
	DepartmentID *uuid.UUID
}

func (c *Coordinator) CreateDepartment(ctx context.Context, actorID, teamID uuid.UUID, in DepartmentInput) (*models.Department, error) {
	const op = "CreateDepartment"
	if err := requireIDs(op, actorID, teamID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput(op, "name is required")
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionManageDepartments}); err != nil {
		return nil, err
	}
	dept, err := c.members.CreateDepartment(ctx, teamID, name, in.Description)
	if err != nil {
		return nil, err
	}
	c.publish(EventDepartmentUpdated, dept, hub.TeamTopic(teamID))
	return dept, nil
}

func (c *Coordinator) GetDepartment(ctx context.Context, actorID, departmentID uuid.UUID) (*models.Department, error) {
	const op = "GetDepartment"
	if err := requireIDs(op, actorID, departmentID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: DepartmentRef(departmentID), Action: ActionView}); err != nil {
		return nil, err
	}
	return c.members.GetDepartment(ctx, departmentID)
}

func (c *Coordinator) ListDepartments(ctx context.Context, actorID, teamID uuid.UUID) ([]models.Department, error) {
	const op = "ListDepartments"
	if err := requireIDs(op, actorID, teamID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionView}); err != nil {
		return nil, err
	}
	return c.members.ListDepartments(ctx, teamID)
}

func (c *Coordinator) UpdateDepartment(ctx context.Context, actorID, departmentID uuid.UUID, in DepartmentUpdate) (*models.Department, error) {
	const op = "UpdateDepartment"
	if err := requireIDs(op, actorID, departmentID); err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, invalidInput(op, "name cannot be empty")
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: DepartmentRef(departmentID), Action: ActionManageDepartments}); err != nil {
		return nil, err
	}
	dept, err := c.members.UpdateDepartment(ctx, departmentID, in.Name, in.Description)
	if err != nil {
		return nil, err
	}
	c.publish(EventDepartmentUpdated, dept, hub.TeamTopic(dept.TeamID))
	return dept, nil
}

func (c *Coordinator) DeleteDepartment(ctx context.Context, actorID, departmentID uuid.UUID) error {
	const op = "DeleteDepartment"
	if err := requireIDs(op, actorID, departmentID); err != nil {
		return err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: DepartmentRef(departmentID), Action: ActionManageDepartments}); err != nil {
		return err
	}
	dept, err := c.members.GetDepartment(ctx, departmentID)
	if err != nil {
		return err
	}
	if err := c.members.DeleteDepartment(ctx, departmentID); err != nil {
		return err
	}
	c.publish(EventDepartmentDeleted, dept, hub.TeamTopic(dept.TeamID))
	return nil
}

func (c *Coordinator) ListDepartmentMembers(ctx context.Context, actorID, departmentID uuid.UUID) ([]models.DepartmentMember, error) {
	const op = "ListDepartmentMembers"
	if err := requireIDs(op, actorID, departmentID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: DepartmentRef(departmentID), Action: ActionView}); err != nil {
		return nil, err
	}
	return c.members.ListDepartmentMembers(ctx, departmentID)
}

// departmentMemberOp runs a department member mutation after authorizing it
// against the department and notifies the owning team.
func (c *Coordinator) departmentMemberOp(
	ctx context.Context, op string, action Action, eventType string,
	actorID, departmentID, userID uuid.UUID,
	fn func(ctx context.Context) (*models.Membership, error),
) (*models.Membership, error) {
	if err := requireIDs(op, actorID, departmentID, userID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: DepartmentRef(departmentID), Action: action, TargetUserID: &userID}); err != nil {
		return nil, err
	}
	dept, err := c.members.GetDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	m, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	c.publish(eventType, m, hub.TeamTopic(dept.TeamID))
	return m, nil
}

func (c *Coordinator) AddDepartmentMember(ctx context.Context, actorID, departmentID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	return c.departmentMemberOp(ctx, "AddDepartmentMember", ActionAddMember, EventMemberAdded, actorID, departmentID, userID,
		func(ctx context.Context) (*models.Membership, error) {
			return c.members.AddDepartmentMember(ctx, departmentID, userID, role)
		})
}

func (c *Coordinator) RemoveDepartmentMember(ctx context.Context, actorID, departmentID, userID uuid.UUID) (*models.Membership, error) {
	return c.departmentMemberOp(ctx, "RemoveDepartmentMember", ActionRemoveMember, EventMemberRemoved, actorID, departmentID, userID,
		func(ctx context.Context) (*models.Membership, error) {
			return c.members.RemoveDepartmentMember(ctx, departmentID, userID)
		})
}

func (c *Coordinator) ChangeDepartmentMemberRole(ctx context.Context, actorID, departmentID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	return c.departmentMemberOp(ctx, "ChangeDepartmentMemberRole", ActionChangeMemberRole, EventMemberUpdated, actorID, departmentID, userID,
		func(ctx context.Context) (*models.Membership, error) {
			return c.members.ChangeDepartmentMemberRole(ctx, departmentID, userID, role)
		})
}

// CreateProject creates a personal project when no team or department is
// given. Team projects need create_project on the department or team.
func (c *Coordinator) CreateProject(ctx context.Context, actorID uuid.UUID, in ProjectInput) (*models.Project, error) {
	const op = "CreateProject"
	if err := requireIDs(op, actorID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput(op, "name is required")
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	switch {
	case in.DepartmentID != nil:
		if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: DepartmentRef(*in.DepartmentID), Action: ActionCreateProject}); err != nil {
			return nil, err
		}
	case in.TeamID != nil:
		if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(*in.TeamID), Action: ActionCreateProject}); err != nil {
			return nil, err
		}
	}

	project, err := c.members.CreateProject(ctx, actorID, name, in.TeamID, in.DepartmentID)
	if err != nil {
		return nil, err
	}
	if project.TeamID != nil {
		c.publish(EventProjectUpdated, project, hub.TeamTopic(*project.TeamID))
	}
	return project, nil
}

func (c *Coordinator) GetProject(ctx context.Context, actorID, projectID uuid.UUID) (*models.Project, error) {
	const op = "GetProject"
	if err := requireIDs(op, actorID, projectID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: ProjectRef(projectID), Action: ActionView}); err != nil {
		return nil, err
	}
	return c.members.GetProject(ctx, projectID)
}

func (c *Coordinator) DeleteProject(ctx context.Context, actorID, projectID uuid.UUID) error {
	const op = "DeleteProject"
	if err := requireIDs(op, actorID, projectID); err != nil {
		return err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: ProjectRef(projectID), Action: ActionManageProject}); err != nil {
		return err
	}
	project, err := c.members.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := c.members.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	topics := []string{hub.ProjectTopic(projectID)}
	if project.TeamID != nil {
		topics = append(topics, hub.TeamTopic(*project.TeamID))
	}
	c.publish(EventProjectDeleted, project, topics...)
	return nil
}

func (c *Coordinator) TransferProjectOwnership(ctx context.Context, actorID, projectID, newOwnerID uuid.UUID) (*models.Project, error) {
	const op = "TransferProjectOwnership"
	if err := requireIDs(op, actorID, projectID, newOwnerID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: ProjectRef(projectID), Action: ActionTransferOwnership, TargetUserID: &newOwnerID}); err != nil {
		return nil, err
	}
	project, err := c.members.TransferProjectOwnership(ctx, projectID, newOwnerID)
	if err != nil {
		return nil, err
	}
	c.publish(EventProjectUpdated, project, hub.ProjectTopic(projectID))
	return project, nil
}

func (c *Coordinator) ListProjectMembers(ctx context.Context, actorID, projectID uuid.UUID) ([]models.ProjectMember, error) {
	const op = "ListProjectMembers"
	if err := requireIDs(op, actorID, projectID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: ProjectRef(projectID), Action: ActionView}); err != nil {
		return nil, err
	}
	return c.members.ListProjectMembers(ctx, projectID)
}

func (c *Coordinator) projectMemberOp(
	ctx context.Context, op string, action Action, eventType string,
	actorID, projectID, userID uuid.UUID,
	fn func(ctx context.Context) (*models.Membership, error),
) (*models.Membership, error) {
	if err := requireIDs(op, actorID, projectID, userID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: ProjectRef(projectID), Action: action, TargetUserID: &userID}); err != nil {
		return nil, err
	}
	m, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	c.publish(eventType, m, hub.ProjectTopic(projectID))
	return m, nil
}

func (c *Coordinator) AddProjectMember(ctx context.Context, actorID, projectID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	return c.projectMemberOp(ctx, "AddProjectMember", ActionAddMember, EventMemberAdded, actorID, projectID, userID,
		func(ctx context.Context) (*models.Membership, error) {
			return c.members.AddProjectMember(ctx, projectID, userID, role)
		})
}

func (c *Coordinator) RemoveProjectMember(ctx context.Context, actorID, projectID, userID uuid.UUID) (*models.Membership, error) {
	return c.projectMemberOp(ctx, "RemoveProjectMember", ActionRemoveMember, EventMemberRemoved, actorID, projectID, userID,
		func(ctx context.Context) (*models.Membership, error) {
			return c.members.RemoveProjectMember(ctx, projectID, userID)
		})
}

func (c *Coordinator) ChangeProjectMemberRole(ctx context.Context, actorID, projectID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	return c.projectMemberOp(ctx, "ChangeProjectMemberRole", ActionChangeMemberRole, EventMemberUpdated, actorID, projectID, userID,
		func(ctx context.Context) (*models.Membership, error) {
			return c.members.ChangeProjectMemberRole(ctx, projectID, userID, role)
		})
}
