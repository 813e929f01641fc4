package domain

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Value Objects
// ============================================================================

// DeploymentStatus tracks how far a deployment got through the pipeline
type DeploymentStatus string

const (
	DeploymentStatusPending  DeploymentStatus = "PENDING"
	DeploymentStatusUploaded DeploymentStatus = "UPLOADED"
	DeploymentStatusReady    DeploymentStatus = "READY"
	DeploymentStatusFailed   DeploymentStatus = "FAILED"
)

// IsValid checks if the status is valid
func (s DeploymentStatus) IsValid() bool {
	switch s {
	case DeploymentStatusPending, DeploymentStatusUploaded, DeploymentStatusReady, DeploymentStatusFailed:
		return true
	}
	return false
}

// ============================================================================
// Entities
// ============================================================================

// Deployment records one run of the artifact-to-Triton pipeline
type Deployment struct {
	ID           uuid.UUID        `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Artifact     string           `json:"artifact"`
	ModelName    string           `json:"model_name"`
	ModelVersion int              `json:"model_version"`
	Framework    Framework        `json:"framework"`
	TritonURL    string           `json:"triton_url"`
	Bucket       string           `json:"bucket"`
	RemotePath   string           `json:"remote_path"`
	Status       DeploymentStatus `json:"status"`
	Config       ModelConfig      `json:"config,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// NewDeployment creates a pending deployment for the given artifact
func NewDeployment(ref ArtifactRef, framework Framework, tritonURL, bucket string) *Deployment {
	now := time.Now()
	return &Deployment{
		ID:           uuid.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Artifact:     ref.String(),
		ModelName:    ref.ModelName(),
		ModelVersion: ref.Version,
		Framework:    framework,
		TritonURL:    tritonURL,
		Bucket:       bucket,
		Status:       DeploymentStatusPending,
	}
}

// MarkUploaded records the remote path the model files were written to
func (d *Deployment) MarkUploaded(remotePath string) {
	d.RemotePath = remotePath
	d.Status = DeploymentStatusUploaded
	d.UpdatedAt = time.Now()
}

// MarkReady records the config Triton accepted
func (d *Deployment) MarkReady(cfg ModelConfig) {
	d.Config = cfg
	d.Status = DeploymentStatusReady
	d.Error = ""
	d.UpdatedAt = time.Now()
}

// MarkFailed records the error that stopped the pipeline
func (d *Deployment) MarkFailed(errMsg string) {
	d.Status = DeploymentStatusFailed
	d.Error = errMsg
	d.UpdatedAt = time.Now()
}
