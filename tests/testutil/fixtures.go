package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/roles"
	"github.com/google/uuid"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateUser creates a test user with default values
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		ID:          uuid.New(),
		Email:       fmt.Sprintf("user%d-%s@example.com", f.counter, uuid.NewString()[:8]),
		DisplayName: fmt.Sprintf("Test User %d", f.counter),
	}

	for _, opt := range opts {
		opt(user)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO users (id, email, display_name, avatar_url)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, user.ID, user.Email, user.DisplayName, user.AvatarURL).Scan(&user.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// UserOption configures a test user
type UserOption func(*models.User)

// WithEmail sets the user's email
func WithEmail(email string) UserOption {
	return func(u *models.User) {
		u.Email = email
	}
}

// WithDisplayName sets the user's display name
func WithDisplayName(name string) UserOption {
	return func(u *models.User) {
		u.DisplayName = name
	}
}

// CreateTeam creates a test team with the given owner as its OWNER member
func (f *Fixtures) CreateTeam(t *testing.T, owner *models.User, opts ...TeamOption) *models.Team {
	t.Helper()
	f.counter++

	team := &models.Team{
		Name:    fmt.Sprintf("Test Team %d", f.counter),
		OwnerID: owner.ID,
	}

	for _, opt := range opts {
		opt(team)
	}

	ctx := context.Background()
	tx, err := f.db.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO teams (name, description, icon_seed, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, team.Name, team.Description, team.IconSeed, team.OwnerID).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role, permissions)
		VALUES ($1, $2, $3, $4)
	`, team.ID, owner.ID, string(roles.Owner), roles.All.Strings())
	if err != nil {
		t.Fatalf("failed to add owner as member: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("failed to commit transaction: %v", err)
	}

	return team
}

// TeamOption configures a test team
type TeamOption func(*models.Team)

// WithTeamName sets the team's name
func WithTeamName(name string) TeamOption {
	return func(t *models.Team) {
		t.Name = name
	}
}

// AddTeamMember adds a member to a team with the given role
func (f *Fixtures) AddTeamMember(t *testing.T, team *models.Team, user *models.User, role roles.Role) {
	t.Helper()
	ctx := context.Background()

	_, err := f.db.Pool.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id) DO NOTHING
	`, team.ID, user.ID, string(role))
	if err != nil {
		t.Fatalf("failed to add team member: %v", err)
	}
}

// CreateDepartment creates a department inside team
func (f *Fixtures) CreateDepartment(t *testing.T, team *models.Team) *models.Department {
	t.Helper()
	f.counter++

	dept := &models.Department{TeamID: team.ID, Name: fmt.Sprintf("Department %d", f.counter)}
	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO departments (team_id, name)
		VALUES ($1, $2)
		RETURNING id, description, created_at
	`, dept.TeamID, dept.Name).Scan(&dept.ID, &dept.Description, &dept.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create department: %v", err)
	}
	return dept
}

// AddDepartmentMember adds a team member to a department
func (f *Fixtures) AddDepartmentMember(t *testing.T, dept *models.Department, user *models.User, role roles.Role) {
	t.Helper()

	_, err := f.db.Pool.Exec(context.Background(), `
		INSERT INTO department_members (department_id, user_id, role)
		VALUES ($1, $2, $3)
	`, dept.ID, user.ID, string(role))
	if err != nil {
		t.Fatalf("failed to add department member: %v", err)
	}
}

// CorruptOwnership forces an owner-invariant violation for repair tests by
// writing the rows directly.
func (f *Fixtures) CorruptOwnership(t *testing.T, team *models.Team, extraOwner *models.User) {
	t.Helper()

	_, err := f.db.Pool.Exec(context.Background(), `
		UPDATE team_members SET role = 'owner' WHERE team_id = $1 AND user_id = $2
	`, team.ID, extraOwner.ID)
	if err != nil {
		t.Fatalf("failed to corrupt ownership: %v", err)
	}
}
