package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/dimitrije/teamsync-api/internal/logger"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type RepairKind string

const (
	RepairPromotedOwner RepairKind = "promoted_owner"
	RepairDemotedOwner  RepairKind = "demoted_extra_owner"
	RepairMovedOwnerID  RepairKind = "moved_owner_id"
)

type RepairAction struct {
	Kind   RepairKind `json:"kind"`
	UserID uuid.UUID  `json:"user_id"`
}

// RepairReport lists the corrections Reconcile applied. An empty report means
// the team was already consistent.
type RepairReport struct {
	TeamID  uuid.UUID      `json:"team_id"`
	Actions []RepairAction `json:"actions"`
}

func (r *RepairReport) Repaired() bool {
	return len(r.Actions) > 0
}

// OwnershipGuard keeps teams.owner_id and the OWNER membership in agreement.
type OwnershipGuard struct {
	db  *database.DB
	log *zap.Logger
}

func NewOwnershipGuard(db *database.DB, log *zap.Logger) *OwnershipGuard {
	return &OwnershipGuard{db: db, log: logger.OrNop(log)}
}

type ownerRow struct {
	userID      uuid.UUID
	permissions roles.PermissionSet
	joinedAt    time.Time
}

// Reconcile is idempotent. A cheap unlocked read decides whether repair is
// needed; the repair itself re-reads under row locks.
func (g *OwnershipGuard) Reconcile(ctx context.Context, teamID uuid.UUID) (*RepairReport, error) {
	const op = "Reconcile"
	report := &RepairReport{TeamID: teamID, Actions: []RepairAction{}}

	var ownerID uuid.UUID
	var owners int
	var ownerMatches bool
	err := g.db.Pool.QueryRow(ctx, `
		SELECT t.owner_id,
		       COUNT(tm.user_id) FILTER (WHERE tm.role = 'owner'),
		       COALESCE(BOOL_OR(tm.role = 'owner' AND tm.user_id = t.owner_id), false)
		FROM teams t
		LEFT JOIN team_members tm ON tm.team_id = t.id
		WHERE t.id = $1
		GROUP BY t.owner_id
	`, teamID).Scan(&ownerID, &owners, &ownerMatches)
	if err != nil {
		return nil, classify(op, err)
	}
	if owners == 1 && ownerMatches {
		return report, nil
	}

	err = g.db.InTx(ctx, func(tx pgx.Tx) error {
		return g.repair(ctx, tx, teamID, report)
	})
	if err != nil {
		return nil, classify(op, err)
	}

	if report.Repaired() {
		g.log.Warn("team ownership repaired",
			zap.String("team_id", teamID.String()),
			zap.Any("actions", report.Actions),
		)
	}
	return report, nil
}

func (g *OwnershipGuard) repair(ctx context.Context, tx pgx.Tx, teamID uuid.UUID, report *RepairReport) error {
	var ownerID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT owner_id FROM teams WHERE id = $1 FOR UPDATE`, teamID).Scan(&ownerID); err != nil {
		return err
	}

	rows, err := tx.Query(ctx, `
		SELECT user_id, permissions, joined_at FROM team_members
		WHERE team_id = $1 AND role = 'owner'
		ORDER BY joined_at, user_id
		FOR UPDATE
	`, teamID)
	if err != nil {
		return err
	}
	var owners []ownerRow
	for rows.Next() {
		var o ownerRow
		var perms []string
		if err := rows.Scan(&o.userID, &perms, &o.joinedAt); err != nil {
			rows.Close()
			return err
		}
		if o.permissions, err = roles.ParsePermissionSet(perms); err != nil {
			rows.Close()
			return fmt.Errorf("owner %s: %w", o.userID, err)
		}
		owners = append(owners, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	switch {
	case len(owners) == 0:
		if err := promoteOwner(ctx, tx, teamID, ownerID); err != nil {
			return err
		}
		report.Actions = append(report.Actions, RepairAction{Kind: RepairPromotedOwner, UserID: ownerID})

	// teams.owner_id wins when several members claim OWNER.
	case len(owners) > 1:
		kept := false
		for _, o := range owners {
			if o.userID == ownerID {
				kept = true
				continue
			}
			if _, err := tx.Exec(ctx, `
				UPDATE team_members SET role = $3, permissions = $4
				WHERE team_id = $1 AND user_id = $2
			`, teamID, o.userID, string(roles.Admin), o.permissions.Without(roles.DeleteTeam).Strings()); err != nil {
				return fmt.Errorf("failed to demote extra owner: %w", err)
			}
			report.Actions = append(report.Actions, RepairAction{Kind: RepairDemotedOwner, UserID: o.userID})
		}
		if !kept {
			if err := promoteOwner(ctx, tx, teamID, ownerID); err != nil {
				return err
			}
			report.Actions = append(report.Actions, RepairAction{Kind: RepairPromotedOwner, UserID: ownerID})
		}

	case owners[0].userID != ownerID:
		if err := moveOwnerID(ctx, tx, teamID, owners[0].userID); err != nil {
			return err
		}
		report.Actions = append(report.Actions, RepairAction{Kind: RepairMovedOwnerID, UserID: owners[0].userID})
	}
	return nil
}

func promoteOwner(ctx context.Context, tx pgx.Tx, teamID, userID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role, permissions)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, user_id) DO UPDATE SET role = EXCLUDED.role, permissions = EXCLUDED.permissions
	`, teamID, userID, string(roles.Owner), roles.All.Strings()); err != nil {
		return fmt.Errorf("failed to promote owner: %w", err)
	}
	return nil
}

func moveOwnerID(ctx context.Context, tx pgx.Tx, teamID, userID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `
		UPDATE teams SET owner_id = $2, updated_at = NOW() WHERE id = $1
	`, teamID, userID); err != nil {
		return fmt.Errorf("failed to update team owner: %w", err)
	}
	return nil
}

// ReconcileAll runs Reconcile over every team. Failures for individual teams
// are collected and do not stop the sweep.
func (g *OwnershipGuard) ReconcileAll(ctx context.Context) ([]RepairReport, error) {
	rows, err := g.db.Pool.Query(ctx, `SELECT id FROM teams ORDER BY created_at`)
	if err != nil {
		return nil, classify("ReconcileAll", err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, classify("ReconcileAll", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify("ReconcileAll", err)
	}

	var repaired []RepairReport
	var errs []error
	for _, id := range ids {
		report, err := g.Reconcile(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("team %s: %w", id, err))
			continue
		}
		if report.Repaired() {
			repaired = append(repaired, *report)
		}
	}
	return repaired, errors.Join(errs...)
}

// TransferOwnership moves team ownership from currentOwnerID to newOwnerID.
// It reconciles first, checks both parties under row locks, then applies the
// owner_id change, the promotion and the former owner's demotion to ADMIN
// through transfer_team_ownership in the same transaction. The operation is
// not idempotent; callers re-read state before retrying.
func (g *OwnershipGuard) TransferOwnership(ctx context.Context, teamID, currentOwnerID, newOwnerID uuid.UUID) (*models.Team, error) {
	const op = "TransferOwnership"

	if _, err := g.Reconcile(ctx, teamID); err != nil {
		return nil, err
	}

	var team *models.Team
	err := g.db.InTx(ctx, func(tx pgx.Tx) error {
		var ownerID uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT owner_id FROM teams WHERE id = $1 FOR UPDATE`, teamID).Scan(&ownerID); err != nil {
			return err
		}
		if ownerID != currentOwnerID {
			return newError(op, KindUnauthorized, ReasonNotOwner, "")
		}

		target, err := lockTeamMember(ctx, tx, teamID, newOwnerID)
		if database.IsNoRows(err) {
			return newError(op, KindNotFound, ReasonTargetNotMember, "")
		}
		if err != nil {
			return err
		}
		if target.Role == roles.Owner {
			return newError(op, KindInvalidTarget, ReasonTargetAlreadyOwner, "")
		}

		var moved bool
		if err := tx.QueryRow(ctx, `SELECT transfer_team_ownership($1, $2, $3, $4, $5)`,
			teamID, newOwnerID, currentOwnerID,
			roles.All.Strings(), roles.DefaultPermissions(roles.Admin).Strings(),
		).Scan(&moved); err != nil {
			return fmt.Errorf("failed to transfer ownership: %w", err)
		}
		if !moved {
			return newError(op, KindUnauthorized, ReasonNotOwner, "")
		}

		team, err = scanTeam(tx.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, teamID))
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}

	g.log.Info("team ownership transferred",
		zap.String("team_id", teamID.String()),
		zap.String("from", currentOwnerID.String()),
		zap.String("to", newOwnerID.String()),
	)
	return team, nil
}
