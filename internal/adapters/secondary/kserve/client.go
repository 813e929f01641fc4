package kserve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"triton-deployer/internal/config"
	"triton-deployer/internal/core/domain"
	output "triton-deployer/internal/core/ports/output"
)

var inferenceServiceGVR = schema.GroupVersionResource{
	Group:    "serving.kserve.io",
	Version:  "v1beta1",
	Resource: "inferenceservices",
}

const labelPrefix = "triton-deployer.io/"

var invalidNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

type kserveClient struct {
	client    dynamic.Interface
	enabled   bool
	defaultNS string
}

// NewKServeClient creates a KServe publisher; disabled config yields a no-op publisher
func NewKServeClient(cfg *config.KubernetesConfig) (output.ServingPublisher, error) {
	if !cfg.Enabled {
		return &kserveClient{enabled: false}, nil
	}

	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		// Try default kubeconfig location
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}

	return NewKServeClientWithDynamic(client, cfg.DefaultNS), nil
}

// NewKServeClientWithDynamic wraps an existing dynamic client
func NewKServeClientWithDynamic(client dynamic.Interface, defaultNS string) output.ServingPublisher {
	if defaultNS == "" {
		defaultNS = "model-serving"
	}
	return &kserveClient{
		client:    client,
		enabled:   true,
		defaultNS: defaultNS,
	}
}

func (c *kserveClient) IsAvailable() bool {
	return c.enabled
}

func (c *kserveClient) Publish(
	ctx context.Context,
	namespace string,
	deployment *domain.Deployment,
) (*output.ServingPublication, error) {
	if !c.enabled {
		return nil, domain.ErrPublisherDisabled
	}
	if namespace == "" {
		namespace = c.defaultNS
	}

	storageURI := StorageURI(deployment.Bucket, deployment.RemotePath, deployment.ModelName)
	obj := buildInferenceServiceCR(deployment, storageURI)
	resource := c.client.Resource(inferenceServiceGVR).Namespace(namespace)

	result, err := resource.Create(ctx, obj, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		existing, getErr := resource.Get(ctx, obj.GetName(), metav1.GetOptions{})
		if getErr != nil {
			return nil, fmt.Errorf("get kserve inferenceservice: %w", getErr)
		}
		obj.SetResourceVersion(existing.GetResourceVersion())
		result, err = resource.Update(ctx, obj, metav1.UpdateOptions{})
		if err != nil {
			return nil, fmt.Errorf("update kserve inferenceservice: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("create kserve inferenceservice: %w", err)
	}

	return &output.ServingPublication{
		Name:       result.GetName(),
		Namespace:  namespace,
		ExternalID: string(result.GetUID()),
		StorageURI: storageURI,
	}, nil
}

func (c *kserveClient) Withdraw(ctx context.Context, namespace string, d *domain.Deployment) error {
	if !c.enabled {
		return domain.ErrPublisherDisabled
	}
	if namespace == "" {
		namespace = c.defaultNS
	}

	err := c.client.Resource(inferenceServiceGVR).
		Namespace(namespace).
		Delete(ctx, ResourceName(d.ModelName), metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete kserve inferenceservice: %w", err)
	}

	return nil
}

// StorageURI points the predictor at the model repository root, which is
// the parent of the model directory inside remotePath.
func StorageURI(bucket, remotePath, modelName string) string {
	repo := remotePath
	if i := strings.Index(remotePath, "/"+modelName+"/"); i >= 0 {
		repo = remotePath[:i]
	} else if strings.HasPrefix(remotePath, modelName+"/") {
		repo = ""
	}
	if repo == "" {
		return "s3://" + bucket
	}
	return "s3://" + bucket + "/" + repo
}

// ResourceName converts a Triton model name into a DNS-1035 label
func ResourceName(modelName string) string {
	name := invalidNameChars.ReplaceAllString(strings.ToLower(modelName), "-")
	name = strings.Trim(name, "-")
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		name = "model-" + name
	}
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-")
	}
	return name
}

func buildInferenceServiceCR(d *domain.Deployment, storageURI string) *unstructured.Unstructured {
	labels := map[string]interface{}{
		labelPrefix + "deployment-id": d.ID.String(),
		labelPrefix + "model-version": strconv.Itoa(d.ModelVersion),
		labelPrefix + "framework":     string(d.Framework),
	}

	modelSpec := map[string]interface{}{
		"modelFormat": map[string]interface{}{
			"name": "triton",
		},
		"storageUri": storageURI,
		"args": []interface{}{
			"--model-control-mode=explicit",
			"--load-model=" + d.ModelName,
		},
	}

	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "serving.kserve.io/v1beta1",
			"kind":       "InferenceService",
			"metadata": map[string]interface{}{
				"name":   ResourceName(d.ModelName),
				"labels": labels,
				"annotations": map[string]interface{}{
					labelPrefix + "artifact": d.Artifact,
				},
			},
			"spec": map[string]interface{}{
				"predictor": map[string]interface{}{
					"model": modelSpec,
				},
			},
		},
	}
}

// Ensure interface compliance
var _ output.ServingPublisher = (*kserveClient)(nil)
