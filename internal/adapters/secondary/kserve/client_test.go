package kserve

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"

	"triton-deployer/internal/config"
	"triton-deployer/internal/core/domain"
)

func newFakeDynamic() *dynamicfake.FakeDynamicClient {
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(),
		map[schema.GroupVersionResource]string{inferenceServiceGVR: "InferenceServiceList"})
}

func testDeployment() *domain.Deployment {
	return &domain.Deployment{
		ID:           uuid.MustParse("7f3c2a1e-0000-4000-8000-000000000001"),
		Artifact:     "wandb-artifact://megatruong/ptl-testing2/My_Model:v3",
		ModelName:    "My_Model",
		ModelVersion: 3,
		Framework:    domain.FrameworkTensorFlow,
		Bucket:       "triton-bucket",
		RemotePath:   "models/My_Model/3/model.savedmodel",
	}
}

func TestPublish_CreatesInferenceService(t *testing.T) {
	fake := newFakeDynamic()
	pub := NewKServeClientWithDynamic(fake, "")

	result, err := pub.Publish(context.Background(), "", testDeployment())
	require.NoError(t, err)
	assert.Equal(t, "my-model", result.Name)
	assert.Equal(t, "model-serving", result.Namespace)
	assert.Equal(t, "s3://triton-bucket/models", result.StorageURI)

	obj, err := fake.Resource(inferenceServiceGVR).Namespace("model-serving").
		Get(context.Background(), "my-model", metav1.GetOptions{})
	require.NoError(t, err)

	uri, _, _ := unstructured.NestedString(obj.Object, "spec", "predictor", "model", "storageUri")
	assert.Equal(t, "s3://triton-bucket/models", uri)
	format, _, _ := unstructured.NestedString(obj.Object, "spec", "predictor", "model", "modelFormat", "name")
	assert.Equal(t, "triton", format)
	assert.Equal(t, "3", obj.GetLabels()[labelPrefix+"model-version"])
	assert.Equal(t, "tensorflow", obj.GetLabels()[labelPrefix+"framework"])
}

func TestPublish_UpdatesExisting(t *testing.T) {
	fake := newFakeDynamic()
	pub := NewKServeClientWithDynamic(fake, "serving")

	d := testDeployment()
	_, err := pub.Publish(context.Background(), "", d)
	require.NoError(t, err)

	d.ModelVersion = 4
	d.RemotePath = "models/My_Model/4/model.savedmodel"
	_, err = pub.Publish(context.Background(), "", d)
	require.NoError(t, err)

	obj, err := fake.Resource(inferenceServiceGVR).Namespace("serving").
		Get(context.Background(), "my-model", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "4", obj.GetLabels()[labelPrefix+"model-version"])
}

func TestWithdraw(t *testing.T) {
	fake := newFakeDynamic()
	pub := NewKServeClientWithDynamic(fake, "serving")

	_, err := pub.Publish(context.Background(), "", testDeployment())
	require.NoError(t, err)

	require.NoError(t, pub.Withdraw(context.Background(), "", testDeployment()))
	_, err = fake.Resource(inferenceServiceGVR).Namespace("serving").Get(context.Background(), "my-model", metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
	// already gone
	require.NoError(t, pub.Withdraw(context.Background(), "", testDeployment()))
}

func TestDisabledPublisher(t *testing.T) {
	pub, err := NewKServeClient(&config.KubernetesConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, pub.IsAvailable())

	_, err = pub.Publish(context.Background(), "", testDeployment())
	assert.ErrorIs(t, err, domain.ErrPublisherDisabled)
	assert.ErrorIs(t, pub.Withdraw(context.Background(), "", testDeployment()), domain.ErrPublisherDisabled)
}

func TestStorageURI(t *testing.T) {
	assert.Equal(t, "s3://b/models", StorageURI("b", "models/fashion/3", "fashion"))
	assert.Equal(t, "s3://b/a/b/models", StorageURI("b", "a/b/models/fashion/3/model.savedmodel", "fashion"))
	assert.Equal(t, "s3://b", StorageURI("b", "fashion/3", "fashion"))
}

func TestResourceName(t *testing.T) {
	assert.Equal(t, "my-model", ResourceName("My_Model"))
	assert.Equal(t, "model-3d-unet", ResourceName("3d_unet"))
	assert.Equal(t, "resnet50-v1-5", ResourceName("resnet50.v1.5"))
	assert.Len(t, ResourceName(strings.Repeat("a", 80)), 63)
}
