package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/dimitrije/teamsync-api/internal/logger"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	teamColumns       = `id, name, description, icon_seed, owner_id, created_at, updated_at`
	teamMemberColumns = `team_id, user_id, role, permissions, tags, joined_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// MembershipStore owns team, department and project membership rows and the
// cascade rules between them.
type MembershipStore struct {
	db  *database.DB
	log *zap.Logger
}

func NewMembershipStore(db *database.DB, log *zap.Logger) *MembershipStore {
	return &MembershipStore{db: db, log: logger.OrNop(log)}
}

func scanTeam(row rowScanner) (*models.Team, error) {
	var t models.Team
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.IconSeed, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTeamMember(row rowScanner) (*models.TeamMember, error) {
	var m models.TeamMember
	var role string
	var perms, tags []string
	if err := row.Scan(&m.TeamID, &m.UserID, &role, &perms, &tags, &m.JoinedAt); err != nil {
		return nil, err
	}
	return buildTeamMember(m, role, perms, tags)
}

// buildTeamMember validates raw role and permission strings read from storage.
func buildTeamMember(m models.TeamMember, role string, perms, tags []string) (*models.TeamMember, error) {
	r, err := roles.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("team member %s: %w", m.UserID, err)
	}
	p, err := roles.ParsePermissionSet(perms)
	if err != nil {
		return nil, fmt.Errorf("team member %s: %w", m.UserID, err)
	}
	if tags == nil {
		tags = []string{}
	}
	m.Role = r
	m.Permissions = p
	m.Tags = tags
	return &m, nil
}

// CreateTeam inserts the team and its owner membership in one transaction.
func (s *MembershipStore) CreateTeam(ctx context.Context, ownerID uuid.UUID, name, description, iconSeed string) (*models.Team, error) {
	var team *models.Team
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		team, err = scanTeam(tx.QueryRow(ctx, `
			INSERT INTO teams (name, description, icon_seed, owner_id)
			VALUES ($1, $2, $3, $4)
			RETURNING `+teamColumns,
			name, description, iconSeed, ownerID))
		if err != nil {
			return fmt.Errorf("failed to create team: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO team_members (team_id, user_id, role, permissions)
			VALUES ($1, $2, $3, $4)
		`, team.ID, ownerID, string(roles.Owner), roles.All.Strings())
		if err != nil {
			return fmt.Errorf("failed to add owner as member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, classify("CreateTeam", err)
	}
	return team, nil
}

func (s *MembershipStore) GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	team, err := scanTeam(s.db.Pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, teamID))
	if err != nil {
		return nil, classify("GetTeam", err)
	}
	return team, nil
}

// UpdateTeam changes the non-nil fields.
func (s *MembershipStore) UpdateTeam(ctx context.Context, teamID uuid.UUID, name, description, iconSeed *string) (*models.Team, error) {
	team, err := scanTeam(s.db.Pool.QueryRow(ctx, `
		UPDATE teams SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			icon_seed = COALESCE($4, icon_seed),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+teamColumns,
		teamID, name, description, iconSeed))
	if err != nil {
		return nil, classify("UpdateTeam", err)
	}
	return team, nil
}

func (s *MembershipStore) DeleteTeam(ctx context.Context, teamID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, teamID)
	if err != nil {
		return classify("DeleteTeam", err)
	}
	if tag.RowsAffected() == 0 {
		return newError("DeleteTeam", KindNotFound, "", "team not found")
	}
	return nil
}

func (s *MembershipStore) ListUserTeams(ctx context.Context, userID uuid.UUID) ([]models.UserTeam, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT t.id, t.name, t.description, t.icon_seed, t.owner_id, t.created_at, t.updated_at, tm.role
		FROM teams t
		JOIN team_members tm ON t.id = tm.team_id
		WHERE tm.user_id = $1
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, classify("ListUserTeams", err)
	}
	defer rows.Close()

	teams := []models.UserTeam{}
	for rows.Next() {
		var ut models.UserTeam
		var role string
		if err := rows.Scan(&ut.ID, &ut.Name, &ut.Description, &ut.IconSeed, &ut.OwnerID, &ut.CreatedAt, &ut.UpdatedAt, &role); err != nil {
			return nil, classify("ListUserTeams", err)
		}
		if ut.Role, err = roles.ParseRole(role); err != nil {
			return nil, fmt.Errorf("team %s: %w", ut.ID, err)
		}
		teams = append(teams, ut)
	}
	return teams, classify("ListUserTeams", rows.Err())
}

func (s *MembershipStore) ListTeamMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT tm.team_id, tm.user_id, tm.role, tm.permissions, tm.tags, tm.joined_at,
		       u.id, u.email, u.display_name, u.avatar_url, u.created_at
		FROM team_members tm
		JOIN users u ON tm.user_id = u.id
		WHERE tm.team_id = $1
		ORDER BY tm.joined_at
	`, teamID)
	if err != nil {
		return nil, classify("ListTeamMembers", err)
	}
	defer rows.Close()

	members := []models.TeamMember{}
	for rows.Next() {
		var m models.TeamMember
		var user models.User
		var role string
		var perms, tags []string
		if err := rows.Scan(
			&m.TeamID, &m.UserID, &role, &perms, &tags, &m.JoinedAt,
			&user.ID, &user.Email, &user.DisplayName, &user.AvatarURL, &user.CreatedAt,
		); err != nil {
			return nil, classify("ListTeamMembers", err)
		}
		member, err := buildTeamMember(m, role, perms, tags)
		if err != nil {
			return nil, err
		}
		member.User = &user
		members = append(members, *member)
	}
	return members, classify("ListTeamMembers", rows.Err())
}

func (s *MembershipStore) GetTeamMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	m, err := scanTeamMember(s.db.Pool.QueryRow(ctx, `
		SELECT `+teamMemberColumns+` FROM team_members WHERE team_id = $1 AND user_id = $2
	`, teamID, userID))
	if err != nil {
		return nil, classify("GetTeamMember", err)
	}
	return m, nil
}

func (s *MembershipStore) IsTeamMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)
	`, teamID, userID).Scan(&exists)
	return exists, classify("IsTeamMember", err)
}

func lockTeamMember(ctx context.Context, tx pgx.Tx, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	return scanTeamMember(tx.QueryRow(ctx, `
		SELECT `+teamMemberColumns+` FROM team_members
		WHERE team_id = $1 AND user_id = $2
		FOR UPDATE
	`, teamID, userID))
}

// setTeamRole clears stored permissions so the new role's defaults apply.
func setTeamRole(ctx context.Context, tx pgx.Tx, teamID, userID uuid.UUID, role roles.Role) (*models.TeamMember, error) {
	return scanTeamMember(tx.QueryRow(ctx, `
		UPDATE team_members SET role = $3, permissions = '{}'
		WHERE team_id = $1 AND user_id = $2
		RETURNING `+teamMemberColumns,
		teamID, userID, string(role)))
}

// AddTeamMember is idempotent: an existing member with the same role is
// returned as-is and a different role is applied as a role change.
func (s *MembershipStore) AddTeamMember(ctx context.Context, teamID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	const op = "AddTeamMember"
	if role == roles.Owner {
		return nil, newError(op, KindInvalidTarget, ReasonOwnerMustTransfer, "ownership is assigned by transfer")
	}

	var out *models.TeamMember
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		existing, err := lockTeamMember(ctx, tx, teamID, userID)
		switch {
		case err == nil:
			if existing.Role == role {
				out = existing
				return nil
			}
			if existing.Role == roles.Owner {
				return newError(op, KindInvalidTarget, ReasonTargetIsOwner, "")
			}
			out, err = setTeamRole(ctx, tx, teamID, userID, role)
			return err
		case database.IsNoRows(err):
			out, err = scanTeamMember(tx.QueryRow(ctx, `
				INSERT INTO team_members (team_id, user_id, role)
				VALUES ($1, $2, $3)
				RETURNING `+teamMemberColumns,
				teamID, userID, string(role)))
			return err
		default:
			return err
		}
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return out.Projection(), nil
}

func (s *MembershipStore) ChangeTeamMemberRole(ctx context.Context, teamID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	const op = "ChangeTeamMemberRole"
	if role == roles.Owner {
		return nil, newError(op, KindInvalidTarget, ReasonOwnerMustTransfer, "ownership is assigned by transfer")
	}

	var out *models.TeamMember
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		existing, err := lockTeamMember(ctx, tx, teamID, userID)
		if database.IsNoRows(err) {
			return newError(op, KindNotFound, ReasonTargetNotMember, "")
		}
		if err != nil {
			return err
		}
		if existing.Role == roles.Owner {
			return newError(op, KindInvalidTarget, ReasonTargetIsOwner, "")
		}
		if existing.Role == role {
			out = existing
			return nil
		}
		out, err = setTeamRole(ctx, tx, teamID, userID, role)
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return out.Projection(), nil
}

// RemoveTeamMember deletes the membership and the user's department
// memberships in the team. Project memberships are kept.
func (s *MembershipStore) RemoveTeamMember(ctx context.Context, teamID, userID uuid.UUID) (*models.Membership, error) {
	return s.removeTeamMember(ctx, "RemoveTeamMember", teamID, userID, ReasonTargetIsOwner)
}

// LeaveTeam is RemoveTeamMember for the caller's own membership.
func (s *MembershipStore) LeaveTeam(ctx context.Context, teamID, userID uuid.UUID) (*models.Membership, error) {
	return s.removeTeamMember(ctx, "LeaveTeam", teamID, userID, ReasonOwnerMustTransfer)
}

func (s *MembershipStore) removeTeamMember(ctx context.Context, op string, teamID, userID uuid.UUID, ownerReason Reason) (*models.Membership, error) {
	var removed *models.TeamMember
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		existing, err := lockTeamMember(ctx, tx, teamID, userID)
		if database.IsNoRows(err) {
			return newError(op, KindNotFound, ReasonTargetNotMember, "")
		}
		if err != nil {
			return err
		}
		if existing.Role == roles.Owner {
			return newError(op, KindInvalidTarget, ownerReason, "")
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM department_members
			WHERE user_id = $2 AND department_id IN (SELECT id FROM departments WHERE team_id = $1)
		`, teamID, userID); err != nil {
			return fmt.Errorf("failed to remove department memberships: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM team_members WHERE team_id = $1 AND user_id = $2
		`, teamID, userID); err != nil {
			return fmt.Errorf("failed to remove team membership: %w", err)
		}
		removed = existing
		return nil
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return removed.Projection(), nil
}

func (s *MembershipStore) SetTeamMemberTags(ctx context.Context, teamID, userID uuid.UUID, tags []string) (*models.Membership, error) {
	const op = "SetTeamMemberTags"
	m, err := scanTeamMember(s.db.Pool.QueryRow(ctx, `
		UPDATE team_members SET tags = $3
		WHERE team_id = $1 AND user_id = $2
		RETURNING `+teamMemberColumns,
		teamID, userID, normalizeTags(tags)))
	if database.IsNoRows(err) {
		return nil, newError(op, KindNotFound, ReasonTargetNotMember, "")
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return m.Projection(), nil
}

// normalizeTags trims, drops empties and removes case-insensitive duplicates, keeping first spelling.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
