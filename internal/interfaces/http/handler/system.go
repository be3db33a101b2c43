package handler

import (
	"github.com/gin-gonic/gin"
)

// Pinger reports storage liveness
type Pinger interface {
	Ping() error
}

// SystemHandler serves health checks
type SystemHandler struct {
	BaseHandler
	db Pinger
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db Pinger) *SystemHandler {
	return &SystemHandler{db: db}
}

// Health handles GET /api/v1/health
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	if err := h.db.Ping(); err != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}
	h.Success(c, gin.H{"status": status, "database": dbStatus})
}
