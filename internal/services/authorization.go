package services

import (
	"context"
	"errors"
	"time"

	"github.com/dimitrije/teamsync-api/internal/logger"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MembershipReader is the read side of MembershipStore the Authorizer needs.
// Absent rows are reported as not_found errors.
type MembershipReader interface {
	GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
	GetTeamMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error)
	GetDepartment(ctx context.Context, departmentID uuid.UUID) (*models.Department, error)
	GetDepartmentMember(ctx context.Context, departmentID, userID uuid.UUID) (*models.DepartmentMember, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	GetProjectMember(ctx context.Context, projectID, userID uuid.UUID) (*models.ProjectMember, error)
}

type ResourceKind string

const (
	ResourceTeam       ResourceKind = "team"
	ResourceDepartment ResourceKind = "department"
	ResourceProject    ResourceKind = "project"
)

type ResourceRef struct {
	Kind ResourceKind
	ID   uuid.UUID
}

func TeamRef(id uuid.UUID) ResourceRef       { return ResourceRef{Kind: ResourceTeam, ID: id} }
func DepartmentRef(id uuid.UUID) ResourceRef { return ResourceRef{Kind: ResourceDepartment, ID: id} }
func ProjectRef(id uuid.UUID) ResourceRef    { return ResourceRef{Kind: ResourceProject, ID: id} }

type Action string

const (
	ActionView              Action = "view"
	ActionEditTeamSettings  Action = "edit_team_settings"
	ActionDeleteTeam        Action = "delete_team"
	ActionTransferOwnership Action = "transfer_ownership"
	ActionAddMember         Action = "add_member"
	ActionRemoveMember      Action = "remove_member"
	ActionChangeMemberRole  Action = "change_member_role"
	ActionSetMemberTags     Action = "set_member_tags"
	ActionManageDepartments Action = "manage_departments"
	ActionCreateProject     Action = "create_project"
	ActionManageProject     Action = "manage_project"
	ActionManageInvites     Action = "manage_invites"
)

// actionPermissions maps actions to the permission that grants them. View and
// TransferOwnership have no entry: any member may view, only owners transfer.
var actionPermissions = map[Action]roles.Permission{
	ActionEditTeamSettings:  roles.EditTeamSettings,
	ActionDeleteTeam:        roles.DeleteTeam,
	ActionAddMember:         roles.AddMembers,
	ActionRemoveMember:      roles.RemoveMembers,
	ActionChangeMemberRole:  roles.ChangeMemberRoles,
	ActionSetMemberTags:     roles.ChangeMemberRoles,
	ActionManageDepartments: roles.ManageDepartments,
	ActionCreateProject:     roles.ManageOwnProjects,
	ActionManageProject:     roles.ManageProjects,
	ActionManageInvites:     roles.AddMembers,
}

func (a Action) valid() bool {
	_, ok := actionPermissions[a]
	return ok || a == ActionView || a == ActionTransferOwnership
}

// roleChanging actions are the ones an ADMIN may not aim at another ADMIN.
func (a Action) roleChanging() bool {
	return a == ActionAddMember || a == ActionRemoveMember || a == ActionChangeMemberRole
}

// localEligible actions can be granted by a department or project ADMIN.
func (a Action) localEligible() bool {
	return a == ActionView || a.roleChanging()
}

type Request struct {
	ActorID      uuid.UUID
	Resource     ResourceRef
	Action       Action
	TargetUserID *uuid.UUID
}

// Decision is the outcome of an authorization check. Denials carry a reason.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }
func (d Decision) specific() bool {
	return d.Reason == ReasonCannotTargetOwner || d.Reason == ReasonCannotTargetPeerAdmin
}

// Authorizer answers whether an actor may perform an action on a resource.
// It is the single evaluation path for every resource kind.
type Authorizer struct {
	reader MembershipReader
	log    *zap.Logger
	group  singleflight.Group
}

func NewAuthorizer(reader MembershipReader, log *zap.Logger) *Authorizer {
	return &Authorizer{reader: reader, log: logger.OrNop(log)}
}

type scope struct {
	team       *models.Team
	department *models.Department
	project    *models.Project
}

// Authorize returns a Decision for expected outcomes and an error only for
// malformed requests or a missing resource.
func (a *Authorizer) Authorize(ctx context.Context, req Request) (Decision, error) {
	const op = "Authorize"
	if req.ActorID == uuid.Nil || req.Resource.ID == uuid.Nil {
		return Decision{}, invalidInput(op, "actor and resource are required")
	}
	if !req.Action.valid() {
		return Decision{}, invalidInput(op, "unknown action %q", req.Action)
	}

	sc, err := a.resolve(ctx, req.Resource)
	if err != nil {
		return Decision{}, err
	}

	d, err := a.evaluate(ctx, sc, req)
	if err != nil {
		return Decision{}, err
	}
	if !d.Allowed {
		a.log.Debug("authorization denied",
			zap.String("actor_id", req.ActorID.String()),
			zap.String("resource", string(req.Resource.Kind)+":"+req.Resource.ID.String()),
			zap.String("action", string(req.Action)),
			zap.String("reason", string(d.Reason)),
		)
	}
	return d, nil
}

func (a *Authorizer) resolve(ctx context.Context, ref ResourceRef) (*scope, error) {
	sc := &scope{}
	var err error
	switch ref.Kind {
	case ResourceTeam:
		sc.team, err = a.team(ctx, ref.ID)
	case ResourceDepartment:
		if sc.department, err = a.department(ctx, ref.ID); err == nil {
			sc.team, err = a.team(ctx, sc.department.TeamID)
		}
	case ResourceProject:
		if sc.project, err = a.project(ctx, ref.ID); err != nil {
			break
		}
		if sc.project.TeamID != nil {
			if sc.team, err = a.team(ctx, *sc.project.TeamID); err != nil {
				break
			}
		}
		if sc.project.DepartmentID != nil {
			sc.department, err = a.department(ctx, *sc.project.DepartmentID)
		}
	default:
		return nil, invalidInput("Authorize", "unknown resource kind %q", ref.Kind)
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (a *Authorizer) evaluate(ctx context.Context, sc *scope, req Request) (Decision, error) {
	var actor, target *models.TeamMember
	var err error
	if sc.team != nil {
		if actor, err = a.teamMember(ctx, sc.team.ID, req.ActorID); err != nil {
			return Decision{}, err
		}
		if req.TargetUserID != nil {
			if target, err = a.teamMember(ctx, sc.team.ID, *req.TargetUserID); err != nil {
				return Decision{}, err
			}
		}
	}

	// Ownership is structural and overrides stored permissions.
	if actor != nil && actor.Role == roles.Owner {
		return allow(), nil
	}
	if sc.project != nil && (sc.team == nil || actor != nil) {
		pm, err := a.projectMember(ctx, sc.project.ID, req.ActorID)
		if err != nil {
			return Decision{}, err
		}
		if pm != nil && pm.Role == roles.Owner {
			return allow(), nil
		}
	}

	teamDecision := teamLevel(sc, req, actor, target)
	if teamDecision.Allowed || (sc.department == nil && sc.project == nil) {
		return teamDecision, nil
	}

	localDecision, err := a.localLevel(ctx, sc, req, actor, target)
	if err != nil {
		return Decision{}, err
	}
	if localDecision.Allowed {
		return localDecision, nil
	}
	if teamDecision.specific() || localDecision.Reason == ReasonNotAMember {
		return teamDecision, nil
	}
	return localDecision, nil
}

// teamLevel applies the team role hierarchy.
func teamLevel(sc *scope, req Request, actor, target *models.TeamMember) Decision {
	if actor == nil {
		return deny(ReasonNotAMember)
	}

	switch actor.Role {
	case roles.Admin:
		if req.Action == ActionDeleteTeam || req.Action == ActionTransferOwnership {
			return deny(ReasonInsufficientRole)
		}
		if target != nil {
			if target.Role == roles.Owner {
				return deny(ReasonCannotTargetOwner)
			}
			if target.Role == roles.Admin && req.Action.roleChanging() {
				return deny(ReasonCannotTargetPeerAdmin)
			}
		}
		if sc.project != nil && sc.project.OwnerID == sc.team.OwnerID && req.Action != ActionView {
			return deny(ReasonCannotTargetOwner)
		}
	case roles.Member:
		if target != nil && target.Role == roles.Owner {
			return deny(ReasonCannotTargetOwner)
		}
		if target != nil && target.Role == roles.Admin && req.Action != ActionView {
			return deny(ReasonInsufficientRole)
		}
	}
	return permissionCheck(req.Action, actor.Effective())
}

func permissionCheck(action Action, perms roles.PermissionSet) Decision {
	if action == ActionView {
		return allow()
	}
	p, ok := actionPermissions[action]
	if !ok || !perms.Has(p) {
		return deny(ReasonInsufficientRole)
	}
	return allow()
}

// localLevel grants department and project ADMINs authority over members of
// their own scope. Team-scoped access is re-derived, so a local role counts
// only while the actor still belongs to the team.
func (a *Authorizer) localLevel(ctx context.Context, sc *scope, req Request, actor, target *models.TeamMember) (Decision, error) {
	if sc.team != nil && actor == nil {
		return deny(ReasonNotAMember), nil
	}

	var role roles.Role
	var targetRole roles.Role
	if sc.project != nil {
		pm, err := a.projectMember(ctx, sc.project.ID, req.ActorID)
		if err != nil {
			return Decision{}, err
		}
		if pm != nil {
			role = pm.Role
		}
		if req.TargetUserID != nil {
			tm, err := a.projectMember(ctx, sc.project.ID, *req.TargetUserID)
			if err != nil {
				return Decision{}, err
			}
			if tm != nil {
				targetRole = tm.Role
			}
		}
	}
	if role != roles.Admin && sc.department != nil {
		dm, err := a.departmentMember(ctx, sc.department.ID, req.ActorID)
		if err != nil {
			return Decision{}, err
		}
		if dm != nil && (role == "" || dm.Role == roles.Admin) {
			role = dm.Role
		}
		if sc.project == nil && req.TargetUserID != nil {
			tm, err := a.departmentMember(ctx, sc.department.ID, *req.TargetUserID)
			if err != nil {
				return Decision{}, err
			}
			if tm != nil {
				targetRole = tm.Role
			}
		}
	}

	switch {
	case role == "":
		return deny(ReasonNotAMember), nil
	case req.Action == ActionView:
		return allow(), nil
	case role != roles.Admin || !req.Action.localEligible():
		return deny(ReasonInsufficientRole), nil
	}

	if target != nil && target.Role == roles.Owner {
		return deny(ReasonCannotTargetOwner), nil
	}
	if target != nil && target.Role == roles.Admin {
		return deny(ReasonInsufficientRole), nil
	}
	switch targetRole {
	case roles.Owner:
		return deny(ReasonCannotTargetOwner), nil
	case roles.Admin:
		return deny(ReasonCannotTargetPeerAdmin), nil
	}
	return allow(), nil
}

// flightTimeout bounds a shared read, which runs detached from the caller
// that started it.
const flightTimeout = 5 * time.Second

// flight collapses concurrent identical reads onto one store round trip.
// Each caller still gives up when its own ctx is done.
func flight[T any](ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (*T, error)) (*T, error) {
	ch := g.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		return fn(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*T), nil
	}
}

// optional turns not_found into a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (a *Authorizer) team(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	return flight(ctx, &a.group, "team:"+id.String(), func(ctx context.Context) (*models.Team, error) {
		return a.reader.GetTeam(ctx, id)
	})
}

func (a *Authorizer) department(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	return flight(ctx, &a.group, "department:"+id.String(), func(ctx context.Context) (*models.Department, error) {
		return a.reader.GetDepartment(ctx, id)
	})
}

func (a *Authorizer) project(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return flight(ctx, &a.group, "project:"+id.String(), func(ctx context.Context) (*models.Project, error) {
		return a.reader.GetProject(ctx, id)
	})
}

func (a *Authorizer) teamMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	return optional(flight(ctx, &a.group, "tm:"+teamID.String()+":"+userID.String(), func(ctx context.Context) (*models.TeamMember, error) {
		return a.reader.GetTeamMember(ctx, teamID, userID)
	}))
}

func (a *Authorizer) departmentMember(ctx context.Context, departmentID, userID uuid.UUID) (*models.DepartmentMember, error) {
	return optional(flight(ctx, &a.group, "dm:"+departmentID.String()+":"+userID.String(), func(ctx context.Context) (*models.DepartmentMember, error) {
		return a.reader.GetDepartmentMember(ctx, departmentID, userID)
	}))
}

func (a *Authorizer) projectMember(ctx context.Context, projectID, userID uuid.UUID) (*models.ProjectMember, error) {
	return optional(flight(ctx, &a.group, "pm:"+projectID.String()+":"+userID.String(), func(ctx context.Context) (*models.ProjectMember, error) {
		return a.reader.GetProjectMember(ctx, projectID, userID)
	}))
}
