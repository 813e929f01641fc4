package dto

import (
	"time"

	"github.com/google/uuid"

	"triton-deployer/internal/core/domain"
)

// ============================================================================
// Deployment DTOs
// ============================================================================

type CreateDeploymentRequest struct {
	Artifact     string         `json:"artifact" binding:"required"`
	Framework    string         `json:"framework" binding:"required"`
	TritonURL    string         `json:"triton_url"`
	Bucket       string         `json:"triton_bucket"`
	RepoPath     string         `json:"triton_model_repo_path"`
	Overrides    map[string]any `json:"triton_model_config_overrides"`
	UploadConfig *bool          `json:"triton_upload_config"`
}

type DeploymentResponse struct {
	ID           uuid.UUID      `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Artifact     string         `json:"artifact"`
	ModelName    string         `json:"model_name"`
	ModelVersion int            `json:"model_version"`
	Framework    string         `json:"framework"`
	TritonURL    string         `json:"triton_url"`
	Bucket       string         `json:"triton_bucket"`
	RemotePath   string         `json:"remote_path,omitempty"`
	Status       string         `json:"status"`
	Config       map[string]any `json:"config,omitempty"`
	Error        string         `json:"error,omitempty"`
}

type ListDeploymentsResponse struct {
	Items      []DeploymentResponse `json:"items"`
	Total      int                  `json:"total"`
	PageSize   int                  `json:"page_size"`
	NextOffset int                  `json:"next_offset"`
}

func ToDeploymentResponse(d *domain.Deployment) DeploymentResponse {
	return DeploymentResponse{
		ID:           d.ID,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		Artifact:     d.Artifact,
		ModelName:    d.ModelName,
		ModelVersion: d.ModelVersion,
		Framework:    string(d.Framework),
		TritonURL:    d.TritonURL,
		Bucket:       d.Bucket,
		RemotePath:   d.RemotePath,
		Status:       string(d.Status),
		Config:       d.Config,
		Error:        d.Error,
	}
}
