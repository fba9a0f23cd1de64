package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/dimitrije/teamsync-api/internal/logger"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const inviteColumns = `id, team_id, created_by, invite_code, expires_at, uses_left, created_at`

type InviteConfig struct {
	DefaultTTLDays int
	MaxTTLDays     int
}

// InviteService issues and redeems reusable team invite codes.
type InviteService struct {
	db  *database.DB
	log *zap.Logger
	cfg InviteConfig
	now func() time.Time
}

func NewInviteService(db *database.DB, cfg InviteConfig, log *zap.Logger) *InviteService {
	if cfg.DefaultTTLDays <= 0 {
		cfg.DefaultTTLDays = 7
	}
	if cfg.MaxTTLDays < cfg.DefaultTTLDays {
		cfg.MaxTTLDays = cfg.DefaultTTLDays
	}
	return &InviteService{db: db, log: logger.OrNop(log), cfg: cfg, now: time.Now}
}

func scanInvite(row rowScanner) (*models.TeamInvite, error) {
	var inv models.TeamInvite
	if err := row.Scan(&inv.ID, &inv.TeamID, &inv.CreatedBy, &inv.Code, &inv.ExpiresAt, &inv.UsesLeft, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

func generateInviteCode() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateInvite returns the actor's existing usable invite for the team when
// there is one, otherwise issues a new code. The bool reports whether a new
// invite was created.
func (s *InviteService) CreateInvite(ctx context.Context, teamID, actorID uuid.UUID, ttlDays int, maxUses *int) (*models.TeamInvite, bool, error) {
	const op = "CreateInvite"
	if ttlDays == 0 {
		ttlDays = s.cfg.DefaultTTLDays
	}
	if ttlDays < 0 || ttlDays > s.cfg.MaxTTLDays {
		return nil, false, invalidInput(op, "ttl must be between 1 and %d days", s.cfg.MaxTTLDays)
	}
	if maxUses != nil && *maxUses <= 0 {
		return nil, false, invalidInput(op, "max uses must be positive")
	}

	now := s.now()
	var invite *models.TeamInvite
	created := false
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "invite:"+teamID.String()+":"+actorID.String()); err != nil {
			return err
		}

		existing, err := scanInvite(tx.QueryRow(ctx, `
			SELECT `+inviteColumns+` FROM team_invites
			WHERE team_id = $1 AND created_by = $2 AND expires_at > $3
			  AND (uses_left IS NULL OR uses_left > 0)
			ORDER BY created_at DESC
			LIMIT 1
		`, teamID, actorID, now))
		if err == nil {
			invite = existing
			return nil
		}
		if !database.IsNoRows(err) {
			return err
		}

		code, err := generateInviteCode()
		if err != nil {
			return err
		}
		invite, err = scanInvite(tx.QueryRow(ctx, `
			INSERT INTO team_invites (team_id, created_by, invite_code, expires_at, uses_left)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+inviteColumns,
			teamID, actorID, code, now.Add(time.Duration(ttlDays)*24*time.Hour), maxUses))
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, classify(op, err)
	}
	return invite, created, nil
}

// ResolveInvite looks an invite up by code without requiring membership.
func (s *InviteService) ResolveInvite(ctx context.Context, code string) (*models.TeamInvite, error) {
	const op = "ResolveInvite"
	var inv models.TeamInvite
	var team models.Team
	err := s.db.Pool.QueryRow(ctx, `
		SELECT i.id, i.team_id, i.created_by, i.invite_code, i.expires_at, i.uses_left, i.created_at,
		       t.id, t.name, t.description, t.icon_seed, t.owner_id, t.created_at, t.updated_at
		FROM team_invites i
		JOIN teams t ON t.id = i.team_id
		WHERE i.invite_code = $1
	`, code).Scan(
		&inv.ID, &inv.TeamID, &inv.CreatedBy, &inv.Code, &inv.ExpiresAt, &inv.UsesLeft, &inv.CreatedAt,
		&team.ID, &team.Name, &team.Description, &team.IconSeed, &team.OwnerID, &team.CreatedAt, &team.UpdatedAt,
	)
	if database.IsNoRows(err) {
		return nil, newError(op, KindNotFound, "", "invite not found")
	}
	if err != nil {
		return nil, classify(op, err)
	}
	inv.Team = &team

	if inv.Expired(s.now()) {
		return nil, newError(op, KindExpired, "", "invite has expired")
	}
	if inv.Exhausted() {
		return nil, newError(op, KindExhausted, "", "invite has no uses left")
	}
	return &inv, nil
}

// AcceptInvite redeems code for userID through the accept_team_invite
// procedure, which inserts the membership and decrements uses under a row
// lock on the invite.
func (s *InviteService) AcceptInvite(ctx context.Context, code string, userID uuid.UUID) (*models.TeamInvite, error) {
	const op = "AcceptInvite"
	inv, err := s.ResolveInvite(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotMember(ctx, op, inv.TeamID, userID); err != nil {
		return nil, err
	}

	var ok bool
	if err := s.db.Pool.QueryRow(ctx, `SELECT accept_team_invite($1, $2)`, code, userID).Scan(&ok); err != nil {
		return nil, classify(op, err)
	}
	if ok {
		return inv, nil
	}

	// The procedure refused; find out which condition changed underneath us.
	if _, err := s.ResolveInvite(ctx, code); err != nil {
		return nil, err
	}
	if err := s.ensureNotMember(ctx, op, inv.TeamID, userID); err != nil {
		return nil, err
	}
	return nil, &Error{Op: op, Kind: KindConflict, Message: "invite acceptance raced", Retryable: true}
}

func (s *InviteService) ensureNotMember(ctx context.Context, op string, teamID, userID uuid.UUID) error {
	var member bool
	if err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)
	`, teamID, userID).Scan(&member); err != nil {
		return classify(op, err)
	}
	if member {
		return newError(op, KindConflict, ReasonAlreadyMember, "already a member of this team")
	}
	return nil
}

func (s *InviteService) ListTeamInvites(ctx context.Context, teamID uuid.UUID) ([]models.TeamInvite, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+inviteColumns+` FROM team_invites
		WHERE team_id = $1
		ORDER BY created_at DESC
	`, teamID)
	if err != nil {
		return nil, classify("ListTeamInvites", err)
	}
	defer rows.Close()

	invites := []models.TeamInvite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, classify("ListTeamInvites", err)
		}
		invites = append(invites, *inv)
	}
	return invites, classify("ListTeamInvites", rows.Err())
}

func (s *InviteService) RevokeInvite(ctx context.Context, teamID, inviteID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		DELETE FROM team_invites WHERE id = $1 AND team_id = $2
	`, inviteID, teamID)
	if err != nil {
		return classify("RevokeInvite", err)
	}
	if tag.RowsAffected() == 0 {
		return newError("RevokeInvite", KindNotFound, "", "invite not found")
	}
	return nil
}
