package service

import (
	"context"
	"fmt"
	"skill_forge/internal/common"
	"skill_forge/internal/domain/model"
	"skill_forge/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ProblemService fronts the problem catalog. The scoring engine only reads
// base points and existence; catalog writes are an admin concern.
type ProblemService struct {
	problemRepo repository.ProblemRepository
}

func NewProblemService(problemRepo repository.ProblemRepository) *ProblemService {
	return &ProblemService{problemRepo: problemRepo}
}

type CreateProblemRequest struct {
	Title       string                  `json:"title"`
	Module      string                  `json:"module"`
	Difficulty  model.ProblemDifficulty `json:"difficulty"`
	BasePoints  *int                    `json:"base_points,omitempty"`
	IsPublished bool                    `json:"is_published"`
	SortOrder   int                     `json:"sort_order"`
}

func (s *ProblemService) CreateProblem(ctx context.Context, req CreateProblemRequest) (*model.Problem, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required: %w", common.ErrValidation)
	}
	switch req.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	case "":
		req.Difficulty = model.DifficultyEasy
	default:
		return nil, fmt.Errorf("unknown difficulty %q: %w", req.Difficulty, common.ErrValidation)
	}

	basePoints := model.DefaultBasePoints(req.Difficulty)
	if req.BasePoints != nil {
		if *req.BasePoints < 0 {
			return nil, fmt.Errorf("base_points must be non-negative: %w", common.ErrValidation)
		}
		basePoints = *req.BasePoints
	}

	problem := &model.Problem{
		ID:          uuid.NewString(),
		Slug:        slug.Make(req.Title),
		Title:       req.Title,
		Module:      req.Module,
		Difficulty:  req.Difficulty,
		BasePoints:  basePoints,
		IsPublished: req.IsPublished,
		SortOrder:   req.SortOrder,
	}

	if err := s.problemRepo.CreateProblem(ctx, problem); err != nil {
		return nil, fmt.Errorf("failed to create problem: %w", err)
	}
	return problem, nil
}

func (s *ProblemService) ListProblems(ctx context.Context, page, pageSize int, userRole string) ([]model.Problem, int, error) {
	publishedOnly := userRole != model.RoleAdmin
	offset := (page - 1) * pageSize
	return s.problemRepo.ListProblems(ctx, publishedOnly, pageSize, offset)
}

func (s *ProblemService) GetProblem(ctx context.Context, problemSlug, userRole string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemBySlug(ctx, problemSlug)
	if err != nil {
		return nil, err
	}
	if !problem.IsPublished && userRole != model.RoleAdmin {
		return nil, common.ErrNotFound
	}
	return problem, nil
}
