package audit

import (
	"context"

	"github.com/fmca/voucher-backend/internal/domain/audit"
	"github.com/fmca/voucher-backend/internal/domain/identity"
	"github.com/fmca/voucher-backend/internal/domain/shared"
)

// Service is the read side of the audit trail, restricted to the
// Audit Unit and administrators.
type Service struct {
	trail audit.Trail
}

// NewService creates a new audit Service
func NewService(trail audit.Trail) *Service {
	return &Service{trail: trail}
}

// List returns a page of audit records, newest first
func (s *Service) List(ctx context.Context, actor identity.Actor, limit, offset int) ([]audit.Record, int64, error) {
	if !actor.Role.IsAdmin() && actor.Role != identity.RoleAudit {
		return nil, 0, shared.NewDomainError("UNAUTHORIZED_ACTION", "Only the Audit Unit can read the audit trail")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.trail.List(ctx, limit, offset)
}
