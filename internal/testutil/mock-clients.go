package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"triton-deployer/internal/core/domain"
	"triton-deployer/internal/core/ports/output"
)

// MockArtifactDownloader is a mock of ArtifactDownloader.
type MockArtifactDownloader struct {
	mock.Mock
}

func (m *MockArtifactDownloader) Download(ctx context.Context, ref domain.ArtifactRef) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

// MockObjectStore is a mock of ObjectStore.
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Upload(ctx context.Context, bucket, key, localPath string) error {
	args := m.Called(ctx, bucket, key, localPath)
	return args.Error(0)
}

func (m *MockObjectStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	args := m.Called(ctx, bucket, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockInferenceServer is a mock of InferenceServer.
type MockInferenceServer struct {
	mock.Mock
}

func (m *MockInferenceServer) LoadModel(ctx context.Context, name string, cfg domain.ModelConfig) error {
	args := m.Called(ctx, name, cfg)
	return args.Error(0)
}

func (m *MockInferenceServer) UnloadModel(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockInferenceServer) GetModelConfig(ctx context.Context, name string) (domain.ModelConfig, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.ModelConfig), args.Error(1)
}

func (m *MockInferenceServer) IsModelReady(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockInferenceServer) IsServerLive(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockInferenceServer) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Dialer returns an InferenceServerDialer that always hands out m
func (m *MockInferenceServer) Dialer() ports.InferenceServerDialer {
	return func(string) (ports.InferenceServer, error) {
		return m, nil
	}
}

// MockServingPublisher is a mock of ServingPublisher.
type MockServingPublisher struct {
	mock.Mock
}

func (m *MockServingPublisher) Publish(ctx context.Context, namespace string, deployment *domain.Deployment) (*ports.ServingPublication, error) {
	args := m.Called(ctx, namespace, deployment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ServingPublication), args.Error(1)
}

func (m *MockServingPublisher) Withdraw(ctx context.Context, namespace string, deployment *domain.Deployment) error {
	args := m.Called(ctx, namespace, deployment)
	return args.Error(0)
}

func (m *MockServingPublisher) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}
