package ports

import (
	"context"

	"triton-deployer/internal/core/domain"
)

// InferenceServer defines the contract for the Triton model-control API
type InferenceServer interface {
	// LoadModel loads or reloads a model; a non-nil cfg replaces the repository config
	LoadModel(ctx context.Context, name string, cfg domain.ModelConfig) error

	// UnloadModel unloads a model
	UnloadModel(ctx context.Context, name string) error

	// GetModelConfig returns the config Triton is serving the model with
	GetModelConfig(ctx context.Context, name string) (domain.ModelConfig, error)

	// IsModelReady reports whether the model can serve requests
	IsModelReady(ctx context.Context, name string) (bool, error)

	// IsServerLive reports whether the server answers health checks
	IsServerLive(ctx context.Context) (bool, error)

	// Close releases connections held by the client
	Close() error
}

// InferenceServerDialer opens a client for a server URL
type InferenceServerDialer func(url string) (InferenceServer, error)
