package handlers

import (
	"triton-deployer/internal/core/services"

	"github.com/gin-gonic/gin"
)

// DeployDefaults fill request fields the caller leaves empty
type DeployDefaults struct {
	TritonURL    string
	Bucket       string
	RepoPath     string
	Overrides    map[string]any
	UploadConfig bool
}

type Handler struct {
	deploySvc     *services.DeployService
	deploymentSvc *services.DeploymentService
	defaults      DeployDefaults
}

func New(
	deploySvc *services.DeployService,
	deploymentSvc *services.DeploymentService,
	defaults DeployDefaults,
) *Handler {
	return &Handler{
		deploySvc:     deploySvc,
		deploymentSvc: deploymentSvc,
		defaults:      defaults,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Deployments
	r.POST("/deployments", h.CreateDeployment)
	r.GET("/deployments", h.ListDeployments)
	r.GET("/deployments/:id", h.GetDeployment)
}
