package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"skill_forge/internal/common"
	"skill_forge/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*model.User, error)
	// GetOrCreateByExternalID resolves an external identity to a user row,
	// inserting the given prototype if none exists yet. Concurrent first
	// sights of the same identity resolve to a single row.
	GetOrCreateByExternalID(ctx context.Context, proto *model.User) (*model.User, error)

	// AddPointsAndActivity is the single mutation path for total_points.
	AddPointsAndActivity(ctx context.Context, tx *sql.Tx, userID string, points int, now time.Time, currentStreak, longestStreak int) error
	TouchActivity(ctx context.Context, tx *sql.Tx, userID string, now time.Time) error

	UpdateDisplayName(ctx context.Context, userID, displayName string, now time.Time) error
	IncrementModerationAttempts(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string) error
}

const userColumns = `id, external_id, email, hashed_password, role, display_name,
	total_points, current_streak, longest_streak, last_activity_at,
	username_updated_at, moderation_attempts, created_at, updated_at`

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.ExternalID, &user.Email, &user.HashedPassword, &user.Role,
		&user.DisplayName, &user.TotalPoints, &user.CurrentStreak, &user.LongestStreak,
		&user.LastActivityAt, &user.UsernameUpdatedAt, &user.ModerationAttempts,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, external_id, email, hashed_password, role, display_name)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.ExternalID, user.Email, user.HashedPassword, user.Role, user.DisplayName)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given identity, email or display name already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByExternalID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) GetOrCreateByExternalID(ctx context.Context, proto *model.User) (*model.User, error) {
	// ON CONFLICT DO NOTHING returns no row when the identity already
	// exists, so a follow-up select covers both paths. The unique constraint
	// guarantees concurrent first sights collapse to one row.
	insert := `INSERT INTO users (id, external_id, role)
	           VALUES ($1, $2, $3)
	           ON CONFLICT (external_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, proto.ID, proto.ExternalID, proto.Role); err != nil {
		return nil, fmt.Errorf("pgUserRepository.GetOrCreateByExternalID insert: %w", err)
	}
	return r.FindByExternalID(ctx, proto.ExternalID)
}

func (r *pgUserRepository) AddPointsAndActivity(ctx context.Context, tx *sql.Tx, userID string, points int, now time.Time, currentStreak, longestStreak int) error {
	query := `UPDATE users SET
	            total_points = total_points + $1,
	            last_activity_at = $2,
	            current_streak = $3,
	            longest_streak = $4,
	            updated_at = NOW()
	          WHERE id = $5`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, points, now, currentStreak, longestStreak, userID)
	} else {
		_, err = r.db.ExecContext(ctx, query, points, now, currentStreak, longestStreak, userID)
	}
	if err != nil {
		return fmt.Errorf("pgUserRepository.AddPointsAndActivity: %w", err)
	}
	return nil
}

func (r *pgUserRepository) TouchActivity(ctx context.Context, tx *sql.Tx, userID string, now time.Time) error {
	query := `UPDATE users SET last_activity_at = $1, updated_at = NOW() WHERE id = $2`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, now, userID)
	} else {
		_, err = r.db.ExecContext(ctx, query, now, userID)
	}
	if err != nil {
		return fmt.Errorf("pgUserRepository.TouchActivity: %w", err)
	}
	return nil
}

func (r *pgUserRepository) UpdateDisplayName(ctx context.Context, userID, displayName string, now time.Time) error {
	query := `UPDATE users SET display_name = $1, username_updated_at = $2, updated_at = NOW() WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, displayName, now, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("display name already taken: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.UpdateDisplayName: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) IncrementModerationAttempts(ctx context.Context, userID string) error {
	query := `UPDATE users SET moderation_attempts = moderation_attempts + 1, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("pgUserRepository.IncrementModerationAttempts: %w", err)
	}
	return nil
}

func (r *pgUserRepository) Delete(ctx context.Context, userID string) error {
	// Progress and submission rows cascade via foreign keys.
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
