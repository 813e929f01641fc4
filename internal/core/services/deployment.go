package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"triton-deployer/internal/core/domain"
	output "triton-deployer/internal/core/ports/output"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// DeploymentService reads deployment history
type DeploymentService struct {
	repo output.DeploymentRepository
}

// NewDeploymentService accepts a nil repo when history is disabled
func NewDeploymentService(repo output.DeploymentRepository) *DeploymentService {
	return &DeploymentService{repo: repo}
}

func (s *DeploymentService) Get(ctx context.Context, id uuid.UUID) (*domain.Deployment, error) {
	if s.repo == nil {
		return nil, domain.ErrHistoryDisabled
	}
	return s.repo.GetByID(ctx, id)
}

func (s *DeploymentService) List(ctx context.Context, filter output.DeploymentFilter) ([]*domain.Deployment, int, error) {
	if s.repo == nil {
		return nil, 0, domain.ErrHistoryDisabled
	}
	if filter.Status != "" && !domain.DeploymentStatus(filter.Status).IsValid() {
		return nil, 0, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, filter.Status)
	}
	return s.repo.List(ctx, ClampFilter(filter))
}

// ClampFilter applies the default and maximum page size and floors the offset
func ClampFilter(filter output.DeploymentFilter) output.DeploymentFilter {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}
