package services

import (
	"context"
	"fmt"

	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	projectColumns       = `id, name, owner_id, team_id, department_id, created_at`
	projectMemberColumns = `project_id, user_id, role, joined_at`
)

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &p.TeamID, &p.DepartmentID, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProjectMember(row rowScanner) (*models.ProjectMember, error) {
	var m models.ProjectMember
	var role string
	if err := row.Scan(&m.ProjectID, &m.UserID, &role, &m.JoinedAt); err != nil {
		return nil, err
	}
	r, err := roles.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("project member %s: %w", m.UserID, err)
	}
	m.Role = r
	return &m, nil
}

// CreateProject inserts the project with its creator as OWNER. When only a
// department is given the team is taken from it.
func (s *MembershipStore) CreateProject(ctx context.Context, ownerID uuid.UUID, name string, teamID, departmentID *uuid.UUID) (*models.Project, error) {
	const op = "CreateProject"

	var project *models.Project
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		if departmentID != nil {
			var deptTeam uuid.UUID
			if err := tx.QueryRow(ctx, `SELECT team_id FROM departments WHERE id = $1`, *departmentID).Scan(&deptTeam); err != nil {
				return err
			}
			if teamID == nil {
				teamID = &deptTeam
			} else if *teamID != deptTeam {
				return newError(op, KindInvalidInput, ReasonDepartmentMismatch, "department belongs to another team")
			}
		}
		if teamID != nil {
			if err := requireTeamMember(ctx, tx, op, *teamID, ownerID); err != nil {
				return err
			}
		}

		var err error
		project, err = scanProject(tx.QueryRow(ctx, `
			INSERT INTO projects (name, owner_id, team_id, department_id)
			VALUES ($1, $2, $3, $4)
			RETURNING `+projectColumns,
			name, ownerID, teamID, departmentID))
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO project_members (project_id, user_id, role)
			VALUES ($1, $2, $3)
		`, project.ID, ownerID, string(roles.Owner)); err != nil {
			return fmt.Errorf("failed to add project owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return project, nil
}

func (s *MembershipStore) GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	p, err := scanProject(s.db.Pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, projectID))
	if err != nil {
		return nil, classify("GetProject", err)
	}
	return p, nil
}

func (s *MembershipStore) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return classify("DeleteProject", err)
	}
	if tag.RowsAffected() == 0 {
		return newError("DeleteProject", KindNotFound, "", "project not found")
	}
	return nil
}

func (s *MembershipStore) GetProjectMember(ctx context.Context, projectID, userID uuid.UUID) (*models.ProjectMember, error) {
	m, err := scanProjectMember(s.db.Pool.QueryRow(ctx, `
		SELECT `+projectMemberColumns+` FROM project_members
		WHERE project_id = $1 AND user_id = $2
	`, projectID, userID))
	if err != nil {
		return nil, classify("GetProjectMember", err)
	}
	return m, nil
}

func (s *MembershipStore) ListProjectMembers(ctx context.Context, projectID uuid.UUID) ([]models.ProjectMember, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+projectMemberColumns+` FROM project_members
		WHERE project_id = $1
		ORDER BY joined_at
	`, projectID)
	if err != nil {
		return nil, classify("ListProjectMembers", err)
	}
	defer rows.Close()

	members := []models.ProjectMember{}
	for rows.Next() {
		m, err := scanProjectMember(rows)
		if err != nil {
			return nil, classify("ListProjectMembers", err)
		}
		members = append(members, *m)
	}
	return members, classify("ListProjectMembers", rows.Err())
}

func lockProjectMember(ctx context.Context, tx pgx.Tx, projectID, userID uuid.UUID) (*models.ProjectMember, error) {
	return scanProjectMember(tx.QueryRow(ctx, `
		SELECT `+projectMemberColumns+` FROM project_members
		WHERE project_id = $1 AND user_id = $2
		FOR UPDATE
	`, projectID, userID))
}

func setProjectRole(ctx context.Context, tx pgx.Tx, projectID, userID uuid.UUID, role roles.Role) (*models.ProjectMember, error) {
	return scanProjectMember(tx.QueryRow(ctx, `
		UPDATE project_members SET role = $3
		WHERE project_id = $1 AND user_id = $2
		RETURNING `+projectMemberColumns,
		projectID, userID, string(role)))
}

// AddProjectMember requires team membership when the project belongs to a team.
func (s *MembershipStore) AddProjectMember(ctx context.Context, projectID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	const op = "AddProjectMember"
	if role == roles.Owner {
		return nil, newError(op, KindInvalidTarget, ReasonOwnerMustTransfer, "ownership is assigned by transfer")
	}

	var out *models.ProjectMember
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		var teamID *uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT team_id FROM projects WHERE id = $1`, projectID).Scan(&teamID); err != nil {
			return err
		}
		if teamID != nil {
			if err := requireTeamMember(ctx, tx, op, *teamID, userID); err != nil {
				return err
			}
		}

		existing, err := lockProjectMember(ctx, tx, projectID, userID)
		switch {
		case err == nil:
			if existing.Role == role {
				out = existing
				return nil
			}
			if existing.Role == roles.Owner {
				return newError(op, KindInvalidTarget, ReasonTargetIsOwner, "")
			}
			out, err = setProjectRole(ctx, tx, projectID, userID, role)
			return err
		case database.IsNoRows(err):
			out, err = scanProjectMember(tx.QueryRow(ctx, `
				INSERT INTO project_members (project_id, user_id, role)
				VALUES ($1, $2, $3)
				RETURNING `+projectMemberColumns,
				projectID, userID, string(role)))
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

func (s *MembershipStore) RemoveProjectMember(ctx context.Context, projectID, userID uuid.UUID) (*models.Membership, error) {
	const op = "RemoveProjectMember"

	var removed *models.ProjectMember
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		existing, err := lockProjectMember(ctx, tx, projectID, userID)
		if database.IsNoRows(err) {
			return newError(op, KindNotFound, ReasonTargetNotMember, "")
		}
		if err != nil {
			return err
		}
		if existing.Role == roles.Owner {
			return newError(op, KindInvalidTarget, ReasonTargetIsOwner, "")
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM project_members WHERE project_id = $1 AND user_id = $2
		`, projectID, userID); err != nil {
			return err
		}
		removed = existing
		return nil
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return removed.Projection(), nil
}

func (s *MembershipStore) ChangeProjectMemberRole(ctx context.Context, projectID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	const op = "ChangeProjectMemberRole"
	if role == roles.Owner {
		return nil, newError(op, KindInvalidTarget, ReasonOwnerMustTransfer, "ownership is assigned by transfer")
	}

	var out *models.ProjectMember
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		existing, err := lockProjectMember(ctx, tx, projectID, userID)
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
		out, err = setProjectRole(ctx, tx, projectID, userID, role)
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return out.Projection(), nil
}

// TransferProjectOwnership hands the project to an existing member and
// demotes the previous owner to ADMIN, all in one transaction.
func (s *MembershipStore) TransferProjectOwnership(ctx context.Context, projectID, newOwnerID uuid.UUID) (*models.Project, error) {
	const op = "TransferProjectOwnership"

	var project *models.Project
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		var currentOwner uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT owner_id FROM projects WHERE id = $1 FOR UPDATE`, projectID).Scan(&currentOwner); err != nil {
			return err
		}

		target, err := lockProjectMember(ctx, tx, projectID, newOwnerID)
		if database.IsNoRows(err) {
			return newError(op, KindNotFound, ReasonTargetNotMember, "")
		}
		if err != nil {
			return err
		}
		if target.Role == roles.Owner || newOwnerID == currentOwner {
			return newError(op, KindInvalidTarget, ReasonTargetAlreadyOwner, "")
		}

		project, err = scanProject(tx.QueryRow(ctx, `
			UPDATE projects SET owner_id = $2 WHERE id = $1
			RETURNING `+projectColumns,
			projectID, newOwnerID))
		if err != nil {
			return fmt.Errorf("failed to update project owner: %w", err)
		}
		if _, err := setProjectRole(ctx, tx, projectID, newOwnerID, roles.Owner); err != nil {
			return fmt.Errorf("failed to promote new project owner: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE project_members SET role = $3 WHERE project_id = $1 AND user_id = $2
		`, projectID, currentOwner, string(roles.Admin)); err != nil {
			return fmt.Errorf("failed to demote previous project owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return project, nil
}
