package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"triton-deployer/internal/adapters/primary/http/dto"
	output "triton-deployer/internal/core/ports/output"
	"triton-deployer/internal/core/services"
)

func (h *Handler) CreateDeployment(c *gin.Context) {
	var req dto.CreateDeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deployReq := services.DeployRequest{
		Artifact:     req.Artifact,
		Framework:    req.Framework,
		TritonURL:    req.TritonURL,
		Bucket:       req.Bucket,
		RepoPath:     req.RepoPath,
		Overrides:    req.Overrides,
		UploadConfig: h.defaults.UploadConfig,
	}
	if deployReq.TritonURL == "" {
		deployReq.TritonURL = h.defaults.TritonURL
	}
	if deployReq.Bucket == "" {
		deployReq.Bucket = h.defaults.Bucket
	}
	if deployReq.RepoPath == "" {
		deployReq.RepoPath = h.defaults.RepoPath
	}
	if deployReq.Overrides == nil {
		deployReq.Overrides = h.defaults.Overrides
	}
	if req.UploadConfig != nil {
		deployReq.UploadConfig = *req.UploadConfig
	}

	d, err := h.deploySvc.Submit(c.Request.Context(), deployReq)
	if err != nil {
		log.WithError(err).WithField("artifact", req.Artifact).Error("submit deployment failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.ToDeploymentResponse(d))
}

func (h *Handler) ListDeployments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := services.ClampFilter(output.DeploymentFilter{
		ModelName: c.Query("model_name"),
		Status:    c.Query("status"),
		Limit:     limit,
		Offset:    offset,
	})

	deployments, total, err := h.deploymentSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list deployments failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.DeploymentResponse, 0, len(deployments))
	for _, d := range deployments {
		items = append(items, dto.ToDeploymentResponse(d))
	}

	c.JSON(http.StatusOK, dto.ListDeploymentsResponse{
		Items:      items,
		Total:      total,
		PageSize:   filter.Limit,
		NextOffset: filter.Offset + len(items),
	})
}

func (h *Handler) GetDeployment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	d, err := h.deploymentSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDeploymentResponse(d))
}
