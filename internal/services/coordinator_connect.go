package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dimitrije/teamsync-api/internal/hub"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/google/uuid"
)

type InviteInput struct {
	TTLDays int
	MaxUses *int
}

// CreateInvite reports created=false when the actor's existing usable invite
// was returned instead of a new one.
func (c *Coordinator) CreateInvite(ctx context.Context, actorID, teamID uuid.UUID, in InviteInput) (*models.TeamInvite, bool, error) {
	const op = "CreateInvite"
	if err := requireIDs(op, actorID, teamID); err != nil {
		return nil, false, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionManageInvites}); err != nil {
		return nil, false, err
	}
	inv, created, err := c.invites.CreateInvite(ctx, teamID, actorID, in.TTLDays, in.MaxUses)
	if err != nil {
		return nil, false, err
	}
	if created {
		c.publish(EventInviteUpdated, inv, hub.TeamTopic(teamID))
	}
	return inv, created, nil
}

func (c *Coordinator) ListTeamInvites(ctx context.Context, actorID, teamID uuid.UUID) ([]models.TeamInvite, error) {
	const op = "ListTeamInvites"
	if err := requireIDs(op, actorID, teamID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionManageInvites}); err != nil {
		return nil, err
	}
	return c.invites.ListTeamInvites(ctx, teamID)
}

func (c *Coordinator) RevokeInvite(ctx context.Context, actorID, teamID, inviteID uuid.UUID) error {
	const op = "RevokeInvite"
	if err := requireIDs(op, actorID, teamID, inviteID); err != nil {
		return err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.authorize(ctx, op, Request{ActorID: actorID, Resource: TeamRef(teamID), Action: ActionManageInvites}); err != nil {
		return err
	}
	if err := c.invites.RevokeInvite(ctx, teamID, inviteID); err != nil {
		return err
	}
	c.publish(EventInviteUpdated, map[string]uuid.UUID{"id": inviteID, "team_id": teamID}, hub.TeamTopic(teamID))
	return nil
}

// ResolveInvite needs no membership: anyone holding the code may preview it.
func (c *Coordinator) ResolveInvite(ctx context.Context, code string) (*models.TeamInvite, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalidInput("ResolveInvite", "invite code is required")
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.invites.ResolveInvite(ctx, code)
}

func (c *Coordinator) AcceptInvite(ctx context.Context, actorID uuid.UUID, code string) (*models.TeamInvite, error) {
	const op = "AcceptInvite"
	if err := requireIDs(op, actorID); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalidInput(op, "invite code is required")
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	var inv *models.TeamInvite
	err := c.retry(ctx, func() error {
		var err error
		inv, err = c.invites.AcceptInvite(ctx, code, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.reconcile(ctx, inv.TeamID)
	c.publish(EventMemberAdded, map[string]uuid.UUID{"team_id": inv.TeamID, "user_id": actorID},
		hub.TeamTopic(inv.TeamID), hub.UserTeamsTopic(actorID))
	return inv, nil
}

func connectionTopics(a, b uuid.UUID) []string {
	return []string{hub.UserConnectionsTopic(a), hub.UserConnectionsTopic(b)}
}

func (c *Coordinator) SendConnectionRequest(ctx context.Context, actorID, receiverID uuid.UUID) (*models.ConnectionRequest, error) {
	const op = "SendConnectionRequest"
	if err := requireIDs(op, actorID, receiverID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	var req *models.ConnectionRequest
	err := c.retry(ctx, func() error {
		var err error
		req, err = c.connections.SendRequest(ctx, actorID, receiverID)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.publish(EventConnectionRequested, req, connectionTopics(req.SenderID, req.ReceiverID)...)
	return req, nil
}

// AcceptConnectionRequest is not retried: a lost race surfaces as NOT_PENDING.
func (c *Coordinator) AcceptConnectionRequest(ctx context.Context, actorID, requestID uuid.UUID) (*models.Connection, error) {
	const op = "AcceptConnectionRequest"
	if err := requireIDs(op, actorID, requestID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	conn, req, err := c.connections.AcceptRequest(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}
	topics := connectionTopics(req.SenderID, req.ReceiverID)
	c.publish(EventConnectionAnswered, req, topics...)
	c.publish(EventConnectionCreated, conn, topics...)
	return conn, nil
}

func (c *Coordinator) RejectConnectionRequest(ctx context.Context, actorID, requestID uuid.UUID) (*models.ConnectionRequest, error) {
	const op = "RejectConnectionRequest"
	if err := requireIDs(op, actorID, requestID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	req, err := c.connections.RejectRequest(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}
	c.publish(EventConnectionAnswered, req, connectionTopics(req.SenderID, req.ReceiverID)...)
	return req, nil
}

func (c *Coordinator) CancelConnectionRequest(ctx context.Context, actorID, requestID uuid.UUID) (*models.ConnectionRequest, error) {
	const op = "CancelConnectionRequest"
	if err := requireIDs(op, actorID, requestID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	req, err := c.connections.CancelRequest(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}
	c.publish(EventConnectionAnswered, req, connectionTopics(req.SenderID, req.ReceiverID)...)
	return req, nil
}

func (c *Coordinator) RemoveConnection(ctx context.Context, actorID, connectionID uuid.UUID) (*models.Connection, error) {
	const op = "RemoveConnection"
	if err := requireIDs(op, actorID, connectionID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	conn, err := c.connections.RemoveConnection(ctx, connectionID, actorID)
	if err != nil {
		return nil, err
	}
	c.publish(EventConnectionRemoved, conn, connectionTopics(conn.UserAID, conn.UserBID)...)
	return conn, nil
}

func (c *Coordinator) ConnectionStatus(ctx context.Context, actorID, otherID uuid.UUID) (*models.ConnectionStatus, error) {
	const op = "ConnectionStatus"
	if err := requireIDs(op, actorID, otherID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.connections.QueryStatus(ctx, actorID, otherID)
}

func (c *Coordinator) ListConnections(ctx context.Context, actorID uuid.UUID) ([]models.Connection, error) {
	if err := requireIDs("ListConnections", actorID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.connections.ListConnections(ctx, actorID)
}

func (c *Coordinator) ListPendingRequests(ctx context.Context, actorID uuid.UUID) ([]models.ConnectionRequest, error) {
	if err := requireIDs("ListPendingRequests", actorID); err != nil {
		return nil, err
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.connections.ListPendingRequests(ctx, actorID)
}

// CanSubscribe decides whether actorID may receive events on topic. User
// topics belong to their user alone; team and project topics follow view
// access.
func (c *Coordinator) CanSubscribe(ctx context.Context, actorID uuid.UUID, topic string) (bool, error) {
	kind, id, err := hub.ParseTopic(topic)
	if err != nil {
		return false, invalidInput("CanSubscribe", "%v", err)
	}

	var ref ResourceRef
	switch kind {
	case hub.TopicUserTeams, hub.TopicUserConnections:
		return id == actorID, nil
	case hub.TopicTeam:
		ref = TeamRef(id)
	case hub.TopicProject:
		ref = ProjectRef(id)
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()
	d, err := c.authz.Authorize(ctx, Request{ActorID: actorID, Resource: ref, Action: ActionView})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}
