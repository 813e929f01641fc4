package ports

import (
	"context"

	"github.com/google/uuid"

	"triton-deployer/internal/core/domain"
)

// DeploymentFilter defines filters for listing deployments
type DeploymentFilter struct {
	ModelName string
	Status    string
	Limit     int
	Offset    int
}

// DeploymentRepository defines the contract for deployment history persistence
type DeploymentRepository interface {
	// Create inserts a new deployment record
	Create(ctx context.Context, deployment *domain.Deployment) error

	// Update stores the current state of a deployment
	Update(ctx context.Context, deployment *domain.Deployment) error

	// GetByID retrieves a deployment by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error)

	// List lists deployments newest first
	List(ctx context.Context, filter DeploymentFilter) ([]*domain.Deployment, int, error)
}
