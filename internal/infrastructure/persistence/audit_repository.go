package persistence

import (
	"context"

	"github.com/fmca/voucher-backend/internal/domain/audit"
	"gorm.io/gorm"
)

// GormAuditTrail implements audit.Trail using GORM. Records are
// append-only; nothing here updates or removes them.
type GormAuditTrail struct {
	db *gorm.DB
}

// NewGormAuditTrail creates a new GormAuditTrail
func NewGormAuditTrail(db *gorm.DB) *GormAuditTrail {
	return &GormAuditTrail{db: db}
}

// Append stores an audit record
func (r *GormAuditTrail) Append(ctx context.Context, record *audit.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// List returns a page of audit records, newest first, with the total count
func (r *GormAuditTrail) List(ctx context.Context, limit, offset int) ([]audit.Record, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&audit.Record{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []audit.Record
	if err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Ensure GormAuditTrail implements the interface
var _ audit.Trail = (*GormAuditTrail)(nil)
