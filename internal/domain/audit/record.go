package audit

import (
	"context"
	"time"

	"github.com/fmca/voucher-backend/internal/domain/identity"
	"github.com/google/uuid"
)

// Record is a single append-only audit trail entry. Records are written
// by the lifecycle engine on every mutating operation and never updated.
type Record struct {
	ID          uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	Timestamp   time.Time     `gorm:"not null;index" json:"timestamp"`
	ActorEmail  string        `gorm:"type:varchar(200);not null;index" json:"actorEmail"`
	ActorRole   identity.Role `gorm:"type:varchar(30);not null" json:"actorRole"`
	Action      string        `gorm:"type:varchar(60);not null;index" json:"action"`
	Description string        `gorm:"type:text" json:"description"`
	Year        string        `gorm:"type:varchar(10);index" json:"year"`
	RowIndex    int64         `gorm:"index" json:"rowIndex"`
}

// TableName returns the table name for GORM
func (Record) TableName() string {
	return "audit_records"
}

// NewRecord creates an audit record for an action against a voucher row.
// A zero rowIndex is used for operations that do not target a single row.
func NewRecord(actorEmail string, actorRole identity.Role, action, description, year string, rowIndex int64) *Record {
	return &Record{
		ID:          uuid.New(),
		Timestamp:   time.Now(),
		ActorEmail:  actorEmail,
		ActorRole:   actorRole,
		Action:      action,
		Description: description,
		Year:        year,
		RowIndex:    rowIndex,
	}
}

// Sink receives audit records. The engine's obligation is emission only;
// implementations own storage. An Append failure must never change the
// outcome of the operation that produced the record.
type Sink interface {
	Append(ctx context.Context, record *Record) error
}

// Trail extends Sink with the ADMIN-facing read side
type Trail interface {
	Sink
	List(ctx context.Context, limit, offset int) ([]Record, int64, error)
}
