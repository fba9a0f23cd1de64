package services

import (
	"context"
	"strings"

	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/google/uuid"
)

const userColumns = `id, email, display_name, avatar_url, created_at`

// UserService mirrors identities from the auth provider so memberships can
// reference them.
type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureUser upserts the mirror row for a token subject. An empty display
// name falls back to the email address.
func (s *UserService) EnsureUser(ctx context.Context, id uuid.UUID, email, displayName string) (*models.User, error) {
	const op = "EnsureUser"
	if id == uuid.Nil || strings.TrimSpace(email) == "" {
		return nil, invalidInput(op, "user id and email are required")
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = email
	}

	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (id, email, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, display_name = EXCLUDED.display_name
		RETURNING `+userColumns,
		id, email, displayName))
	if err != nil {
		return nil, classify(op, err)
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id))
	if err != nil {
		return nil, classify("GetUser", err)
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, strings.TrimSpace(email)))
	if err != nil {
		return nil, classify("GetUserByEmail", err)
	}
	return user, nil
}
