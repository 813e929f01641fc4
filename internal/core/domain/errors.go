package domain

import "errors"

// ============================================================================
// Validation Errors
// ============================================================================

var (
	ErrInvalidArtifactRef   = errors.New("artifact reference must look like wandb-artifact://entity/project/name:vN")
	ErrInvalidModelVersion  = errors.New("triton requires model version to be an integer")
	ErrMissingTritonURL     = errors.New("`triton_url` must be specified in config")
	ErrMissingBucket        = errors.New("`triton_bucket` must be specified in config in the form of your-bucket-name")
	ErrUnsupportedFramework = errors.New("invalid framework")
	ErrInvalidModelConfig   = errors.New("invalid model config")
	ErrInvalidStatus        = errors.New("invalid deployment status")
)

// ============================================================================
// Storage Errors
// ============================================================================

var (
	ErrObjectNotFound   = errors.New("object not found")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrArtifactEmpty    = errors.New("artifact has no files")
)

// ============================================================================
// Serving Errors
// ============================================================================

var (
	ErrModelNotReady     = errors.New("model is not ready after load")
	ErrServerUnavailable = errors.New("inference server unavailable")
	ErrPublisherDisabled = errors.New("serving publisher is not configured")
)

// ============================================================================
// History Errors
// ============================================================================

var (
	ErrDeploymentNotFound = errors.New("deployment not found")
	ErrDeploymentConflict = errors.New("deployment already exists")
	ErrHistoryDisabled    = errors.New("deployment history is not enabled")
)
