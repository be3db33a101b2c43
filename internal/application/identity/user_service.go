package identity

import (
	"context"
	"fmt"

	"github.com/fmca/voucher-backend/internal/domain/audit"
	"github.com/fmca/voucher-backend/internal/domain/identity"
	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService manages accounts. Every mutating operation is gated on
// the acting user holding the ADMIN role.
type UserService struct {
	users identity.UserRepository
	sink  audit.Sink
	log   *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(users identity.UserRepository, sink audit.Sink, log *zap.Logger) *UserService {
	return &UserService{users: users, sink: sink, log: log}
}

// CreateInput carries the fields for a new account
type CreateInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

// Create registers a new user account
func (s *UserService) Create(ctx context.Context, actor identity.Actor, in CreateInput) (*identity.User, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("User %s already exists", in.Email))
	}

	user, err := identity.NewUser(in.Email, in.Name, in.Password, identity.Role(in.Role))
	if err != nil {
		return nil, err
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "createUser", fmt.Sprintf("User %s created with role %s", user.Email, user.Role))

	return user, nil
}

// UpdateInput carries optional account changes; nil fields are untouched
type UpdateInput struct {
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// Update applies account changes
func (s *UserService) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, in UpdateInput) (*identity.User, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}

	user, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if err := user.Rename(*in.Name); err != nil {
			return nil, err
		}
	}
	if in.Role != nil {
		if err := user.ChangeRole(identity.Role(*in.Role)); err != nil {
			return nil, err
		}
	}
	if in.Password != nil {
		if err := user.SetPassword(*in.Password); err != nil {
			return nil, err
		}
	}
	if in.Active != nil {
		if *in.Active {
			user.Activate()
		} else {
			user.Deactivate()
		}
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, "updateUser", fmt.Sprintf("User %s updated", user.Email))

	return user, nil
}

// Delete removes a user account. An admin cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}

	user, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	if user.Email == actor.Email {
		return shared.NewDomainError("VALIDATION_ERROR", "Cannot delete your own account")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	s.audit(ctx, actor, "deleteUser", fmt.Sprintf("User %s deleted", user.Email))

	return nil
}

// Get returns one user by ID
func (s *UserService) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*identity.User, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.mustGet(ctx, id)
}

// List returns all users
func (s *UserService) List(ctx context.Context, actor identity.Actor) ([]identity.User, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.users.FindAll(ctx)
}

func (s *UserService) requireAdmin(actor identity.Actor) error {
	if !actor.Role.IsAdmin() {
		return shared.NewDomainError("UNAUTHORIZED_ACTION", "Only an administrator can manage users")
	}
	return nil
}

func (s *UserService) mustGet(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "User not found")
	}
	return user, nil
}

func (s *UserService) audit(ctx context.Context, actor identity.Actor, action, description string) {
	rec := audit.NewRecord(actor.Email, actor.Role, action, description, "", 0)
	if err := s.sink.Append(ctx, rec); err != nil {
		s.log.Error("failed to append audit record", zap.String("action", action), zap.Error(err))
	}
}
