package service

import (
	"context"
	"fmt"
	"time"
	"skill_forge/internal/common"
	"skill_forge/internal/domain/repository"
)

// NameModerator is the profanity-moderation collaborator. Its internals are
// out of scope; the engine only consumes the verdict.
type NameModerator interface {
	Approve(ctx context.Context, name string) (bool, error)
}

// AllowAllModerator approves every name. Used when no moderation backend is
// configured.
type AllowAllModerator struct{}

func (AllowAllModerator) Approve(ctx context.Context, name string) (bool, error) {
	return true, nil
}

type UserService struct {
	userRepo  repository.UserRepository
	moderator NameModerator
	cooldown  time.Duration
	now       func() time.Time
}

func NewUserService(userRepo repository.UserRepository, moderator NameModerator, cooldownDays int) *UserService {
	if moderator == nil {
		moderator = AllowAllModerator{}
	}
	return &UserService{
		userRepo:  userRepo,
		moderator: moderator,
		cooldown:  time.Duration(cooldownDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

// UpdateDisplayName changes the user's globally unique display name,
// enforcing the change cooldown and the moderation verdict. Rejected names
// bump the user's moderation counter.
func (s *UserService) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	if displayName == "" || len(displayName) > 50 {
		return fmt.Errorf("display name must be 1-50 characters: %w", common.ErrValidation)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	now := s.now().UTC()
	if user.UsernameUpdatedAt != nil && now.Sub(*user.UsernameUpdatedAt) < s.cooldown {
		return fmt.Errorf("display name was changed recently, try again later: %w", common.ErrForbidden)
	}

	approved, err := s.moderator.Approve(ctx, displayName)
	if err != nil {
		return fmt.Errorf("moderation check failed: %w", err)
	}
	if !approved {
		if err := s.userRepo.IncrementModerationAttempts(ctx, userID); err != nil {
			return err
		}
		return fmt.Errorf("display name rejected: %w", common.ErrValidation)
	}

	return s.userRepo.UpdateDisplayName(ctx, userID, displayName, now)
}

// DeleteAccount handles an explicit identity-deletion event. Owned progress
// and submission rows cascade with the user row.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	return s.userRepo.Delete(ctx, userID)
}
