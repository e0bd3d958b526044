package database

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    external_id VARCHAR(255) NOT NULL UNIQUE,
    email VARCHAR(255) UNIQUE,
    hashed_password TEXT,
    role VARCHAR(20) NOT NULL DEFAULT 'user',
    display_name VARCHAR(50) UNIQUE,
    total_points INTEGER NOT NULL DEFAULT 0,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_activity_at TIMESTAMPTZ,
    username_updated_at TIMESTAMPTZ,
    moderation_attempts INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_total_points CHECK (total_points >= 0)
);

CREATE TABLE IF NOT EXISTS problems (
    id UUID PRIMARY KEY,
    slug VARCHAR(120) NOT NULL UNIQUE,
    title VARCHAR(200) NOT NULL,
    module VARCHAR(100) NOT NULL DEFAULT '',
    difficulty VARCHAR(20) NOT NULL DEFAULT 'Easy',
    base_points INTEGER NOT NULL DEFAULT 100,
    is_published BOOLEAN NOT NULL DEFAULT FALSE,
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_base_points CHECK (base_points >= 0)
);

CREATE TABLE IF NOT EXISTS user_progress (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    problem_id UUID NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL DEFAULT 'in_progress',
    attempts_count INTEGER NOT NULL DEFAULT 1,
    first_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ,
    fastest_time_seconds INTEGER,
    points_earned INTEGER,

    UNIQUE (user_id, problem_id),
    CONSTRAINT valid_status CHECK (status IN ('in_progress', 'completed')),
    CONSTRAINT valid_attempts CHECK (attempts_count >= 1),
    CONSTRAINT completed_has_points CHECK (
        (status = 'completed') = (points_earned IS NOT NULL)
    )
);

CREATE INDEX IF NOT EXISTS idx_user_progress_completed_at
    ON user_progress(completed_at) WHERE status = 'completed';
CREATE INDEX IF NOT EXISTS idx_user_progress_user ON user_progress(user_id);

CREATE TABLE IF NOT EXISTS submissions (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    problem_id UUID NOT NULL REFERENCES problems(id) ON DELETE CASCADE,
    answer_text TEXT NOT NULL DEFAULT '',
    is_correct BOOLEAN NOT NULL,
    elapsed_seconds INTEGER,
    points_awarded INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_submissions_user_problem
    ON submissions(user_id, problem_id);
`

// Migrate bootstraps the schema. All statements are idempotent so running it
// on every startup is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("database.Migrate: %w", err)
	}
	return nil
}
