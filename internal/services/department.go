package services

import (
	"context"

	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	departmentColumns       = `id, team_id, name, description, created_at`
	departmentMemberColumns = `department_id, user_id, role, joined_at`
)

func scanDepartment(row rowScanner) (*models.Department, error) {
	var d models.Department
	if err := row.Scan(&d.ID, &d.TeamID, &d.Name, &d.Description, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDepartmentMember(row rowScanner) (*models.DepartmentMember, error) {
	var m models.DepartmentMember
	var role string
	if err := row.Scan(&m.DepartmentID, &m.UserID, &role, &m.JoinedAt); err != nil {
		return nil, err
	}
	r, err := roles.ParseDepartmentRole(role)
	if err != nil {
		return nil, err
	}
	m.Role = r
	return &m, nil
}

func (s *MembershipStore) CreateDepartment(ctx context.Context, teamID uuid.UUID, name, description string) (*models.Department, error) {
	d, err := scanDepartment(s.db.Pool.QueryRow(ctx, `
		INSERT INTO departments (team_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING `+departmentColumns,
		teamID, name, description))
	if err != nil {
		return nil, classify("CreateDepartment", err)
	}
	return d, nil
}

func (s *MembershipStore) GetDepartment(ctx context.Context, departmentID uuid.UUID) (*models.Department, error) {
	d, err := scanDepartment(s.db.Pool.QueryRow(ctx, `
		SELECT `+departmentColumns+` FROM departments WHERE id = $1
	`, departmentID))
	if err != nil {
		return nil, classify("GetDepartment", err)
	}
	return d, nil
}

func (s *MembershipStore) UpdateDepartment(ctx context.Context, departmentID uuid.UUID, name, description *string) (*models.Department, error) {
	d, err := scanDepartment(s.db.Pool.QueryRow(ctx, `
		UPDATE departments SET
			name = COALESCE($2, name),
			description = COALESCE($3, description)
		WHERE id = $1
		RETURNING `+departmentColumns,
		departmentID, name, description))
	if err != nil {
		return nil, classify("UpdateDepartment", err)
	}
	return d, nil
}

// DeleteDepartment removes the department; its memberships go with it.
func (s *MembershipStore) DeleteDepartment(ctx context.Context, departmentID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, departmentID)
	if err != nil {
		return classify("DeleteDepartment", err)
	}
	if tag.RowsAffected() == 0 {
		return newError("DeleteDepartment", KindNotFound, "", "department not found")
	}
	return nil
}

func (s *MembershipStore) ListDepartments(ctx context.Context, teamID uuid.UUID) ([]models.Department, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+departmentColumns+` FROM departments WHERE team_id = $1 ORDER BY created_at
	`, teamID)
	if err != nil {
		return nil, classify("ListDepartments", err)
	}
	defer rows.Close()

	departments := []models.Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, classify("ListDepartments", err)
		}
		departments = append(departments, *d)
	}
	return departments, classify("ListDepartments", rows.Err())
}

func (s *MembershipStore) GetDepartmentMember(ctx context.Context, departmentID, userID uuid.UUID) (*models.DepartmentMember, error) {
	m, err := scanDepartmentMember(s.db.Pool.QueryRow(ctx, `
		SELECT `+departmentMemberColumns+` FROM department_members
		WHERE department_id = $1 AND user_id = $2
	`, departmentID, userID))
	if err != nil {
		return nil, classify("GetDepartmentMember", err)
	}
	return m, nil
}

func (s *MembershipStore) ListDepartmentMembers(ctx context.Context, departmentID uuid.UUID) ([]models.DepartmentMember, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+departmentMemberColumns+` FROM department_members
		WHERE department_id = $1
		ORDER BY joined_at
	`, departmentID)
	if err != nil {
		return nil, classify("ListDepartmentMembers", err)
	}
	defer rows.Close()

	members := []models.DepartmentMember{}
	for rows.Next() {
		m, err := scanDepartmentMember(rows)
		if err != nil {
			return nil, classify("ListDepartmentMembers", err)
		}
		members = append(members, *m)
	}
	return members, classify("ListDepartmentMembers", rows.Err())
}

// requireTeamMember share-locks the user's team membership so a concurrent
// removal cannot interleave with a scoped insert.
func requireTeamMember(ctx context.Context, tx pgx.Tx, op string, teamID, userID uuid.UUID) error {
	var role string
	err := tx.QueryRow(ctx, `
		SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2 FOR SHARE
	`, teamID, userID).Scan(&role)
	if database.IsNoRows(err) {
		return newError(op, KindNotFound, ReasonTargetNotMember, "user is not a member of the team")
	}
	return err
}

// AddDepartmentMember requires the user to already belong to the parent team.
func (s *MembershipStore) AddDepartmentMember(ctx context.Context, departmentID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	const op = "AddDepartmentMember"
	if role == roles.Owner {
		return nil, invalidInput(op, "departments have no owner role")
	}

	var out *models.DepartmentMember
	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		var teamID uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT team_id FROM departments WHERE id = $1`, departmentID).Scan(&teamID); err != nil {
			return err
		}
		if err := requireTeamMember(ctx, tx, op, teamID, userID); err != nil {
			return err
		}

		existing, err := scanDepartmentMember(tx.QueryRow(ctx, `
			SELECT `+departmentMemberColumns+` FROM department_members
			WHERE department_id = $1 AND user_id = $2
			FOR UPDATE
		`, departmentID, userID))
		switch {
		case err == nil:
			if existing.Role == role {
				out = existing
				return nil
			}
			out, err = scanDepartmentMember(tx.QueryRow(ctx, `
				UPDATE department_members SET role = $3
				WHERE department_id = $1 AND user_id = $2
				RETURNING `+departmentMemberColumns,
				departmentID, userID, string(role)))
			return err
		case database.IsNoRows(err):
			out, err = scanDepartmentMember(tx.QueryRow(ctx, `
				INSERT INTO department_members (department_id, user_id, role)
				VALUES ($1, $2, $3)
				RETURNING `+departmentMemberColumns,
				departmentID, userID, string(role)))
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

func (s *MembershipStore) RemoveDepartmentMember(ctx context.Context, departmentID, userID uuid.UUID) (*models.Membership, error) {
	const op = "RemoveDepartmentMember"
	m, err := scanDepartmentMember(s.db.Pool.QueryRow(ctx, `
		DELETE FROM department_members
		WHERE department_id = $1 AND user_id = $2
		RETURNING `+departmentMemberColumns,
		departmentID, userID))
	if database.IsNoRows(err) {
		return nil, newError(op, KindNotFound, ReasonTargetNotMember, "")
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return m.Projection(), nil
}

func (s *MembershipStore) ChangeDepartmentMemberRole(ctx context.Context, departmentID, userID uuid.UUID, role roles.Role) (*models.Membership, error) {
	const op = "ChangeDepartmentMemberRole"
	if role == roles.Owner {
		return nil, invalidInput(op, "departments have no owner role")
	}
	m, err := scanDepartmentMember(s.db.Pool.QueryRow(ctx, `
		UPDATE department_members SET role = $3
		WHERE department_id = $1 AND user_id = $2
		RETURNING `+departmentMemberColumns,
		departmentID, userID, string(role)))
	if database.IsNoRows(err) {
		return nil, newError(op, KindNotFound, ReasonTargetNotMember, "")
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return m.Projection(), nil
}
