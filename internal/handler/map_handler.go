package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/permit-map-backend-go/internal/models"
	"github.com/jengzang/permit-map-backend-go/internal/service"
	"github.com/jengzang/permit-map-backend-go/pkg/response"
)

// MapHandler handles HTTP requests for one-shot map views and the raw feeds
type MapHandler struct {
	service *service.MapService
}

// NewMapHandler creates a new map handler
func NewMapHandler(service *service.MapService) *MapHandler {
	return &MapHandler{service: service}
}

// GetView handles GET /api/v1/map/view
func (h *MapHandler) GetView(c *gin.Context) {
	var filter models.MapViewFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	view, err := h.service.View(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, http.StatusBadGateway, "Failed to build map view", err)
		return
	}

	response.Success(c, view)
}

// GetSummary handles GET /api/v1/map/summary
func (h *MapHandler) GetSummary(c *gin.Context) {
	totals, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to get summary", err)
		return
	}

	response.Success(c, totals)
}

// GetPoints handles GET /api/v1/map/points
func (h *MapHandler) GetPoints(c *gin.Context) {
	var filter models.PointListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	list, err := h.service.Points(c.Request.Context(), filter)
	if err != nil {
		response.InternalError(c, "Failed to get points", err)
		return
	}

	response.Success(c, list)
}

// GetGeography handles GET /api/v1/map/geography
// format=geojson returns a FeatureCollection instead of the flat list.
func (h *MapHandler) GetGeography(c *gin.Context) {
	var filter models.GeographyFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	features, err := h.service.Geography(c.Request.Context(), filter)
	if err != nil {
		response.InternalError(c, "Failed to get geography", err)
		return
	}

	if c.Query("format") == "geojson" {
		response.Success(c, models.ToFeatureCollection(features))
		return
	}
	response.Success(c, gin.H{
		"data":  features,
		"count": len(features),
	})
}
