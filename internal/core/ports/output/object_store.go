package ports

import "context"

// ObjectStore defines the contract for the bucket holding the Triton model repository
type ObjectStore interface {
	// Upload copies a local file to bucket/key
	Upload(ctx context.Context, bucket, key, localPath string) error

	// List returns every key under prefix
	List(ctx context.Context, bucket, prefix string) ([]string, error)

	// Get reads an object; domain.ErrObjectNotFound when the key is missing
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}
