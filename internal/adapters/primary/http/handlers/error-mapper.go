package handlers

import (
	"errors"
	"net/http"

	"triton-deployer/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrDeploymentNotFound),
		errors.Is(err, domain.ErrArtifactNotFound),
		errors.Is(err, domain.ErrObjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrDeploymentConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidArtifactRef),
		errors.Is(err, domain.ErrInvalidModelVersion),
		errors.Is(err, domain.ErrMissingTritonURL),
		errors.Is(err, domain.ErrMissingBucket),
		errors.Is(err, domain.ErrUnsupportedFramework),
		errors.Is(err, domain.ErrInvalidModelConfig),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrArtifactEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Upstream errors
	case errors.Is(err, domain.ErrModelNotReady):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrHistoryDisabled),
		errors.Is(err, domain.ErrPublisherDisabled),
		errors.Is(err, domain.ErrServerUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
