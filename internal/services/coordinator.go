package services

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dimitrije/teamsync-api/internal/hub"
	"github.com/dimitrije/teamsync-api/internal/logger"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier receives change events after a mutation commits. Delivery is
// fire-and-forget.
type Notifier interface {
	Notify(topic, eventType string, payload any)
}

const (
	EventTeamCreated          = "team.created"
	EventTeamUpdated          = "team.updated"
	EventTeamDeleted          = "team.deleted"
	EventOwnershipTransferred = "team.ownership_transferred"
	EventMemberAdded          = "member.added"
	EventMemberUpdated        = "member.updated"
	EventMemberRemoved        = "member.removed"
	EventDepartmentUpdated    = "department.updated"
	EventDepartmentDeleted    = "department.deleted"
	EventProjectUpdated       = "project.updated"
	EventProjectDeleted       = "project.deleted"
	EventInviteUpdated        = "invite.updated"
	EventConnectionRequested  = "connection.requested"
	EventConnectionAnswered   = "connection.request_updated"
	EventConnectionCreated    = "connection.created"
	EventConnectionRemoved    = "connection.removed"
)

type CoordinatorConfig struct {
	StoreTimeout time.Duration
	MaxRetries   uint64
}

// Coordinator is the entry point for every mutation: it validates input,
// authorizes, mutates, reconciles team ownership and notifies subscribers.
type Coordinator struct {
	members     *MembershipStore
	guard       *OwnershipGuard
	connections *ConnectionService
	invites     *InviteService
	authz       *Authorizer
	notifier    Notifier
	cfg         CoordinatorConfig
	log         *zap.Logger
}

func NewCoordinator(
	members *MembershipStore,
	guard *OwnershipGuard,
	connections *ConnectionService,
	invites *InviteService,
	authz *Authorizer,
	notifier Notifier,
	cfg CoordinatorConfig,
	log *zap.Logger,
) *Coordinator {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &Coordinator{
		members:     members,
		guard:       guard,
		connections: connections,
		invites:     invites,
		authz:       authz,
		notifier:    notifier,
		cfg:         cfg,
		log:         logger.OrNop(log),
	}
}

func (c *Coordinator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.StoreTimeout)
}

func requireIDs(op string, ids ...uuid.UUID) error {
	for _, id := range ids {
		if id == uuid.Nil {
			return invalidInput(op, "missing required id")
		}
	}
	return nil
}

func (c *Coordinator) authorize(ctx context.Context, op string, req Request) error {
	d, err := c.authz.Authorize(ctx, req)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &Error{Op: op, Kind: KindUnauthorized, Reason: d.Reason}
	}
	return nil
}

// reconcile repairs team ownership and drops the report; repairs are logged
// by the guard.
func (c *Coordinator) reconcile(ctx context.Context, teamID uuid.UUID) {
	if _, err := c.guard.Reconcile(ctx, teamID); err != nil {
		c.log.Warn("ownership reconcile failed", zap.String("team_id", teamID.String()), zap.Error(err))
	}
}

func (c *Coordinator) publish(eventType string, payload any, topics ...string) {
	if c.notifier == nil {
		return
	}
	for _, topic := range topics {
		c.notifier.Notify(topic, eventType, payload)
	}
}

// retry repeats fn while it fails with a retryable error. Only idempotent
// operations go through here.
func (c *Coordinator) retry(ctx context.Context, fn func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 25 * time.Millisecond
	b := backoff.WithContext(backoff.WithMaxRetries(eb, c.cfg.MaxRetries), ctx)
	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

type TeamInput struct {
	Name        string
	Description string
	IconSeed    string
}

type TeamUpdate struct {
	Name        *string
	Description *string
	IconSeed    *string
}

func (c *Coordinator) CreateTeam(ctx context.Context, actorID uuid.UUID, in TeamInput) (*models.Team, error) {
	const op = "CreateTeam"
	if err := requireIDs(op, actorID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput(op, "name is required")
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	team, err := c.members.CreateTeam(ctx, actorID, name, in.Description, in.IconSeed)
	if err != nil {
		return nil, err
	}
	c.publish(EventTeamCreated, team, hub.UserTeamsTopic(actorID))
	return team, nil
}

// GetTeam reconciles ownership before reading so callers always see the
// corrected owner.
func (c *Coordinator) GetTeam(ctx context.Context, actorID, teamID uuid.UUID) (*models.Team, error) {
	const op = "GetTeam"
	if err := requireIDs(op, actorID, teamID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionView}); err != nil {
		return nil, err
	}
	c.reconcile(ctx, teamID)
	return c.members.GetTeam(ctx, teamID)
}

func (c *Coordinator) UpdateTeam(ctx context.Context, actorID, teamID uuid.UUID, in TeamUpdate) (*models.Team, error) {
	const op = "UpdateTeam"
	if err := requireIDs(op, actorID, teamID); err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, invalidInput(op, "name cannot be empty")
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionEditTeamSettings}); err != nil {
		return nil, err
	}
	team, err := c.members.UpdateTeam(ctx, teamID, in.Name, in.Description, in.IconSeed)
	if err != nil {
		return nil, err
	}
	c.publish(EventTeamUpdated, team, hub.TeamTopic(teamID))
	return team, nil
}

func (c *Coordinator) DeleteTeam(ctx context.Context, actorID, teamID uuid.UUID) error {
	const op = "DeleteTeam"
	if err := requireIDs(op, actorID, teamID); err != nil {
		return err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionDeleteTeam}); err != nil {
		return err
	}
	members, err := c.members.ListTeamMembers(ctx, teamID)
	if err != nil {
		return err
	}
	if err := c.members.DeleteTeam(ctx, teamID); err != nil {
		return err
	}

	payload := map[string]uuid.UUID{"team_id": teamID}
	topics := []string{hub.TeamTopic(teamID)}
	for _, m := range members {
		topics = append(topics, hub.UserTeamsTopic(m.UserID))
	}
	c.publish(EventTeamDeleted, payload, topics...)
	return nil
}

func (c *Coordinator) ListUserTeams(ctx context.Context, actorID uuid.UUID) ([]models.UserTeam, error) {
	if err := requireIDs("ListUserTeams", actorID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.members.ListUserTeams(ctx, actorID)
}

func (c *Coordinator) ListTeamMembers(ctx context.Context, actorID, teamID uuid.UUID) ([]models.TeamMember, error) {
	const op = "ListTeamMembers"
	if err := requireIDs(op, actorID, teamID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionView}); err != nil {
		return nil, err
	}
	c.reconcile(ctx, teamID)
	return c.members.ListTeamMembers(ctx, teamID)
}

func (c *Coordinator) AddTeamMember(ctx context.Context, actorID, teamID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	const op = "AddTeamMember"
	if err := requireIDs(op, actorID, teamID, userID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionAddMember, TargetUserID: &userID}); err != nil {
		return nil, err
	}
	m, err := c.members.AddTeamMember(ctx, teamID, userID, role)
	if err != nil {
		return nil, err
	}
	c.reconcile(ctx, teamID)
	c.publish(EventMemberAdded, m, hub.TeamTopic(teamID), hub.UserTeamsTopic(userID))
	return m, nil
}

func (c *Coordinator) RemoveTeamMember(ctx context.Context, actorID, teamID, userID uuid.UUID) (*models.Membership, error) {
	const op = "RemoveTeamMember"
	if err := requireIDs(op, actorID, teamID, userID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionRemoveMember, TargetUserID: &userID}); err != nil {
		return nil, err
	}
	m, err := c.members.RemoveTeamMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	c.reconcile(ctx, teamID)
	c.publish(EventMemberRemoved, m, hub.TeamTopic(teamID), hub.UserTeamsTopic(userID))
	return m, nil
}

func (c *Coordinator) ChangeTeamMemberRole(ctx context.Context, actorID, teamID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	const op = "ChangeTeamMemberRole"
	if err := requireIDs(op, actorID, teamID, userID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionChangeMemberRole, TargetUserID: &userID}); err != nil {
		return nil, err
	}
	m, err := c.members.ChangeTeamMemberRole(ctx, teamID, userID, role)
	if err != nil {
		return nil, err
	}
	c.reconcile(ctx, teamID)
	c.publish(EventMemberUpdated, m, hub.TeamTopic(teamID), hub.UserTeamsTopic(userID))
	return m, nil
}

func (c *Coordinator) SetTeamMemberTags(ctx context.Context, actorID, teamID, userID uuid.UUID, tags []string) (*models.Membership, error) {
	const op = "SetTeamMemberTags"
	if err := requireIDs(op, actorID, teamID, userID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionSetMemberTags, TargetUserID: &userID}); err != nil {
		return nil, err
	}
	m, err := c.members.SetTeamMemberTags(ctx, teamID, userID, tags)
	if err != nil {
		return nil, err
	}
	c.publish(EventMemberUpdated, m, hub.TeamTopic(teamID))
	return m, nil
}

func (c *Coordinator) LeaveTeam(ctx context.Context, actorID, teamID uuid.UUID) (*models.Membership, error) {
	const op = "LeaveTeam"
	if err := requireIDs(op, actorID, teamID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	m, err := c.members.LeaveTeam(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	c.reconcile(ctx, teamID)
	c.publish(EventMemberRemoved, m, hub.TeamTopic(teamID), hub.UserTeamsTopic(actorID))
	return m, nil
}

// TransferOwnership is authorized by the guard itself: the current-owner
// check runs under the team row lock. It is never retried.
func (c *Coordinator) TransferOwnership(ctx context.Context, actorID, teamID, newOwnerID uuid.UUID) (*models.Team, error) {
	const op = "TransferOwnership"
	if err := requireIDs(op, actorID, teamID, newOwnerID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	team, err := c.guard.TransferOwnership(ctx, teamID, actorID, newOwnerID)
	if err != nil {
		return nil, err
	}
	c.publish(EventOwnershipTransferred, team,
		hub.TeamTopic(teamID), hub.UserTeamsTopic(actorID), hub.UserTeamsTopic(newOwnerID))
	return team, nil
}
