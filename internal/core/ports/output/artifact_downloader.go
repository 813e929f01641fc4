package ports

import (
	"context"

	"triton-deployer/internal/core/domain"
)

// ArtifactDownloader fetches a tracked artifact version to local disk
type ArtifactDownloader interface {
	// Download writes every file of the artifact under a local directory and returns its path
	Download(ctx context.Context, ref domain.ArtifactRef) (string, error)
}
