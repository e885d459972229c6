package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/permit-map-backend-go/internal/models"
	"github.com/jengzang/permit-map-backend-go/internal/service"
	"github.com/jengzang/permit-map-backend-go/pkg/response"
)

// SessionHandler handles HTTP requests for live map view sessions
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// CreateSession handles POST /api/v1/map/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req models.SessionFilterRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body", err)
			return
		}
	}

	id, err := h.service.Create(req)
	if err != nil {
		response.InternalError(c, "Failed to create session", err)
		return
	}

	response.Created(c, gin.H{"id": id})
}

// GetSession handles GET /api/v1/map/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	var query models.SessionViewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	view, err := h.service.View(c.Param("id"), query.Zoom, query.Simple)
	if err != nil {
		h.sessionError(c, err)
		return
	}

	response.Success(c, view)
}

// UpdateFilter handles PUT /api/v1/map/sessions/:id/filter
func (h *SessionHandler) UpdateFilter(c *gin.Context) {
	var req models.SessionFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	gen, err := h.service.UpdateFilter(c.Param("id"), req)
	if err != nil {
		h.sessionError(c, err)
		return
	}

	response.Success(c, gin.H{"generation": gen})
}

// DeleteSession handles DELETE /api/v1/map/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.service.Delete(c.Param("id")); err != nil {
		h.sessionError(c, err)
		return
	}

	response.Success(c, nil)
}

func (h *SessionHandler) sessionError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		response.NotFound(c, "Session not found")
		return
	}
	response.InternalError(c, "Session request failed", err)
}
