package ports

import (
	"context"

	"triton-deployer/internal/core/domain"
)

// ServingPublication represents the result of publishing a deployment to KServe
type ServingPublication struct {
	Name       string // InferenceService name
	Namespace  string
	ExternalID string // K8s resource UID
	StorageURI string
}

// ServingPublisher defines the contract for exposing a deployed model through KServe
type ServingPublisher interface {
	// Publish creates or updates the KServe InferenceService CR for the deployment
	Publish(ctx context.Context, namespace string, deployment *domain.Deployment) (*ServingPublication, error)

	// Withdraw deletes the KServe InferenceService CR of the deployment's model
	Withdraw(ctx context.Context, namespace string, deployment *domain.Deployment) error

	// IsAvailable checks if KServe integration is enabled and configured
	IsAvailable() bool
}
