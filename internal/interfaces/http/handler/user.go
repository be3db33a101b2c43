package handler

import (
	identityapp "github.com/fmca/voucher-backend/internal/application/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHandler serves the ADMIN user management surface
type UserHandler struct {
	BaseHandler
	users *identityapp.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *identityapp.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List handles GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	users, err := h.users.List(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	views := make([]UserView, len(users))
	for i := range users {
		views[i] = newUserView(&users[i])
	}
	h.Success(c, views)
}

// Get handles GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	user, err := h.users.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newUserView(user))
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	var in identityapp.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BadRequest(c, "Email, name, password and role are required")
		return
	}

	user, err := h.users.Create(c.Request.Context(), actor, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, newUserView(user))
}

// Update handles PATCH /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var in identityapp.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BadRequest(c, "Malformed request body")
		return
	}

	user, err := h.users.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newUserView(user))
}

// Delete handles DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.users.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
