package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the RPC dispatch endpoint
func (h *RPCHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/rpc", h.Dispatch)
}

// RegisterRoutes mounts the authentication endpoints
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
	}
}

// RegisterRoutes mounts the user management endpoints
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.GET("", h.List)
		users.POST("", h.Create)
		users.GET("/:id", h.Get)
		users.PATCH("/:id", h.Update)
		users.DELETE("/:id", h.Delete)
	}
}

// RegisterRoutes mounts the health endpoint
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}
