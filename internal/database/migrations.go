package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		display_name VARCHAR(255) NOT NULL,
		avatar_url VARCHAR(500),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS teams (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		icon_seed VARCHAR(64) NOT NULL DEFAULT '',
		owner_id UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS team_members (
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role VARCHAR(20) NOT NULL DEFAULT 'member',
		permissions TEXT[] NOT NULL DEFAULT '{}',
		tags TEXT[] NOT NULL DEFAULT '{}',
		joined_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (team_id, user_id),
		CHECK (role IN ('owner', 'admin', 'member'))
	)`,

	`CREATE TABLE IF NOT EXISTS departments (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS department_members (
		department_id UUID NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role VARCHAR(20) NOT NULL DEFAULT 'member',
		joined_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (department_id, user_id),
		CHECK (role IN ('admin', 'member'))
	)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		owner_id UUID NOT NULL REFERENCES users(id),
		team_id UUID REFERENCES teams(id) ON DELETE CASCADE,
		department_id UUID REFERENCES departments(id) ON DELETE SET NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS project_members (
		project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role VARCHAR(20) NOT NULL DEFAULT 'member',
		joined_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (project_id, user_id),
		CHECK (role IN ('owner', 'admin', 'member'))
	)`,

	// The core orders the pair before insert; the CHECK is a backstop.
	`CREATE TABLE IF NOT EXISTS connections (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_a_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user_b_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE (user_a_id, user_b_id),
		CHECK (user_a_id < user_b_id)
	)`,

	`CREATE TABLE IF NOT EXISTS connection_requests (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		receiver_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		CHECK (sender_id <> receiver_id),
		CHECK (status IN ('pending', 'accepted', 'rejected', 'cancelled'))
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_connection_requests_one_pending
		ON connection_requests (LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id))
		WHERE status = 'pending'`,

	`CREATE TABLE IF NOT EXISTS team_invites (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		created_by UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		invite_code VARCHAR(64) NOT NULL UNIQUE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		uses_left INTEGER,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		CHECK (uses_left IS NULL OR uses_left >= 0)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_team_members_user_id ON team_members(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_departments_team_id ON departments(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_department_members_user_id ON department_members(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_team_id ON projects(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_project_members_user_id ON project_members(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_connections_user_b_id ON connections(user_b_id)`,
	`CREATE INDEX IF NOT EXISTS idx_connection_requests_receiver_id ON connection_requests(receiver_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_invites_team_id ON team_invites(team_id)`,

	// Redeems an invite for one user. The row lock serializes concurrent redemptions of the
	// same code so uses_left never goes below zero. Returns false when nothing was granted.
	`CREATE OR REPLACE FUNCTION accept_team_invite(p_code TEXT, p_user_id UUID)
	RETURNS BOOLEAN AS $$
	DECLARE
		v_invite team_invites%ROWTYPE;
		v_inserted INTEGER;
	BEGIN
		SELECT * INTO v_invite FROM team_invites WHERE invite_code = p_code FOR UPDATE;
		IF NOT FOUND THEN
			RETURN FALSE;
		END IF;
		IF v_invite.expires_at <= NOW() THEN
			RETURN FALSE;
		END IF;
		IF v_invite.uses_left IS NOT NULL AND v_invite.uses_left <= 0 THEN
			RETURN FALSE;
		END IF;

		INSERT INTO team_members (team_id, user_id, role)
		VALUES (v_invite.team_id, p_user_id, 'member')
		ON CONFLICT (team_id, user_id) DO NOTHING;
		GET DIAGNOSTICS v_inserted = ROW_COUNT;
		IF v_inserted = 0 THEN
			RETURN FALSE;
		END IF;

		IF v_invite.uses_left IS NOT NULL THEN
			UPDATE team_invites SET uses_left = uses_left - 1 WHERE id = v_invite.id;
		END IF;
		RETURN TRUE;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION transfer_team_ownership(
		p_team_id UUID,
		p_new_owner_id UUID,
		p_current_owner_id UUID,
		p_owner_permissions TEXT[],
		p_admin_permissions TEXT[]
	)
	RETURNS BOOLEAN AS $$
	DECLARE
		v_changed INTEGER;
	BEGIN
		UPDATE teams SET owner_id = p_new_owner_id, updated_at = NOW()
		WHERE id = p_team_id AND owner_id = p_current_owner_id;
		GET DIAGNOSTICS v_changed = ROW_COUNT;
		IF v_changed = 0 THEN
			RETURN FALSE;
		END IF;

		UPDATE team_members SET role = 'owner', permissions = p_owner_permissions
		WHERE team_id = p_team_id AND user_id = p_new_owner_id;
		GET DIAGNOSTICS v_changed = ROW_COUNT;
		IF v_changed = 0 THEN
			RAISE EXCEPTION 'new owner % is not a member of team %', p_new_owner_id, p_team_id
				USING ERRCODE = 'foreign_key_violation';
		END IF;

		UPDATE team_members SET role = 'admin', permissions = p_admin_permissions
		WHERE team_id = p_team_id AND user_id = p_current_owner_id;
		RETURN TRUE;
	END;
	$$ LANGUAGE plpgsql`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
