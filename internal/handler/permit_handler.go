package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/permit-map-backend-go/internal/models"
	"github.com/jengzang/permit-map-backend-go/internal/service"
	"github.com/jengzang/permit-map-backend-go/pkg/response"
)

// PermitHandler handles HTTP requests for permit imports and cluster metadata
type PermitHandler struct {
	service *service.PermitService
}

// NewPermitHandler creates a new permit handler
func NewPermitHandler(service *service.PermitService) *PermitHandler {
	return &PermitHandler{service: service}
}

// ImportPermits handles POST /api/v1/permits
func (h *PermitHandler) ImportPermits(c *gin.Context) {
	var req models.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	result, err := h.service.Import(c.Request.Context(), req.Records)
	if err != nil {
		response.InternalError(c, "Failed to import permits", err)
		return
	}

	response.Created(c, result)
}

// ListClusters handles GET /api/v1/clusters
func (h *PermitHandler) ListClusters(c *gin.Context) {
	clusters, err := h.service.ListClusters(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to list clusters", err)
		return
	}

	response.Success(c, gin.H{
		"data":  clusters,
		"count": len(clusters),
	})
}

// UpdateCluster handles PUT /api/v1/clusters/:id
func (h *PermitHandler) UpdateCluster(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid cluster ID", err)
		return
	}

	var req models.ClusterUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	info, err := h.service.UpdateCluster(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCluster) {
			response.BadRequest(c, "Invalid cluster", err)
			return
		}
		response.InternalError(c, "Failed to update cluster", err)
		return
	}

	response.Success(c, info)
}
