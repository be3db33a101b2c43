package identity

import (
	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserCreatedEvent is raised when a new user account is created
type UserCreatedEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

// EventType returns the event type name
func (e *UserCreatedEvent) EventType() string {
	return "UserCreated"
}

// NewUserCreatedEvent creates a new UserCreatedEvent
func NewUserCreatedEvent(u *User) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("UserCreated", "User", u.ID),
		UserID:          u.ID,
		Email:           u.Email,
		Role:            u.Role,
	}
}
