package voucher

import (
	"context"
	"time"

	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter narrows voucher listings within a year partition
type Filter struct {
	Status          *BaseStatus
	PendingDeletion *bool
	Category        string
	Released        *bool
	Search          string // matches payee, voucher number or particular
	Page            int
	PageSize        int
}

// Repository is the persistence contract for the year-partitioned voucher
// store. Implementations must serialize writes to the same (year, rowIndex)
// via the aggregate version column: Save rejects a stale version with
// CONCURRENCY_CONFLICT.
type Repository interface {
	FindByRowIndex(ctx context.Context, year string, rowIndex int64) (*Voucher, error)
	FindByRowIndexes(ctx context.Context, year string, rowIndexes []int64) ([]Voucher, error)
	FindByVoucherNumber(ctx context.Context, year, voucherNumber string) (*Voucher, error)
	FindByOldVoucherNumber(ctx context.Context, year, oldVoucherNumber string) (*Voucher, error)
	FindByControlNumber(ctx context.Context, year, controlNumber string) ([]Voucher, error)
	FindAll(ctx context.Context, year string, filter Filter) (shared.Paginated[Voucher], error)
	FindPendingDeletions(ctx context.Context, year string) ([]Voucher, error)

	// Create assigns the next RowIndex in the year partition and inserts.
	Create(ctx context.Context, v *Voucher) error
	// Save persists an existing voucher with an optimistic version check.
	Save(ctx context.Context, v *Voucher) error
	// HardDelete permanently removes the record (deletion approval only).
	HardDelete(ctx context.Context, id uuid.UUID) error
}

// Category is a read-mostly reference entry of the voucher category catalog
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	SortOrder int       `gorm:"not null;default:0" json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "voucher_categories"
}

// NewCategory creates a catalog entry
func NewCategory(name string, sortOrder int) *Category {
	return &Category{
		ID:        uuid.New(),
		Name:      name,
		SortOrder: sortOrder,
		CreatedAt: time.Now(),
	}
}

// CategoryCatalog is the reference list of valid voucher categories
type CategoryCatalog interface {
	List(ctx context.Context) ([]Category, error)
	Exists(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// IssuedControlNumber records a control number handed out for a target
// unit. The unique (target_unit, number) index is the hard backstop behind
// allocator serialization.
type IssuedControlNumber struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	TargetUnit string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_cn_unit_number,priority:1"`
	Number     string    `gorm:"type:varchar(60);not null;uniqueIndex:idx_cn_unit_number,priority:2"`
	Sequence   int64     `gorm:"not null"`
	IssuedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IssuedControlNumber) TableName() string {
	return "issued_control_numbers"
}

// ControlNumberRepository persists issued control numbers per target unit
type ControlNumberRepository interface {
	// MaxSequence returns the highest sequence issued for a target unit.
	MaxSequence(ctx context.Context, targetUnit string) (int64, error)
	// Record stores an issued number; a duplicate (unit, number) pair
	// fails with ALREADY_EXISTS.
	Record(ctx context.Context, issued *IssuedControlNumber) error
	// Exists reports whether the number was already issued for the unit.
	Exists(ctx context.Context, targetUnit, number string) (bool, error)
}
