package service

import (
	"context"
	"fmt"
	"skill_forge/internal/common"
	"skill_forge/internal/domain/model"
	"skill_forge/internal/domain/repository"

	"github.com/google/uuid"
)

// IdentityResolver maps an external auth identity to the internal user
// record, creating the record with zero points and streaks on first sight.
// The rest of the engine never sees external identities, only user ids.
type IdentityResolver interface {
	Resolve(ctx context.Context, externalID string) (*model.User, error)
}

type IdentityService struct {
	userRepo repository.UserRepository
}

func NewIdentityService(userRepo repository.UserRepository) *IdentityService {
	return &IdentityService{userRepo: userRepo}
}

func (s *IdentityService) Resolve(ctx context.Context, externalID string) (*model.User, error) {
	if externalID == "" {
		return nil, fmt.Errorf("identity unavailable: %w", common.ErrUnauthorized)
	}

	proto := &model.User{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		Role:       model.RoleUser,
	}
	user, err := s.userRepo.GetOrCreateByExternalID(ctx, proto)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve external identity: %w", err)
	}
	return user, nil
}
