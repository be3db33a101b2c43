package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/fmca/voucher-backend/internal/domain/voucher"
	"gorm.io/gorm"
)

// GormControlNumberRepository implements voucher.ControlNumberRepository using GORM
type GormControlNumberRepository struct {
	db *gorm.DB
}

// NewGormControlNumberRepository creates a new GormControlNumberRepository
func NewGormControlNumberRepository(db *gorm.DB) *GormControlNumberRepository {
	return &GormControlNumberRepository{db: db}
}

// MaxSequence returns the highest sequence issued for a target unit
func (r *GormControlNumberRepository) MaxSequence(ctx context.Context, targetUnit string) (int64, error) {
	var max int64
	if err := r.db.WithContext(ctx).
		Model(&voucher.IssuedControlNumber{}).
		Select("COALESCE(MAX(sequence), 0)").
		Where("target_unit = ?", targetUnit).
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

// Record stores an issued control number. A duplicate (unit, number)
// pair trips the unique index and surfaces as ALREADY_EXISTS.
func (r *GormControlNumberRepository) Record(ctx context.Context, issued *voucher.IssuedControlNumber) error {
	if err := r.db.WithContext(ctx).Create(issued).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return shared.NewDomainError("ALREADY_EXISTS",
				fmt.Sprintf("Control number %s was already issued for %s", issued.Number, issued.TargetUnit))
		}
		return err
	}
	return nil
}

// Exists reports whether the number was already issued for the unit
func (r *GormControlNumberRepository) Exists(ctx context.Context, targetUnit, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voucher.IssuedControlNumber{}).
		Where("target_unit = ? AND number = ?", targetUnit, number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// isUniqueViolation covers drivers that do not map unique-index errors
// onto gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// Ensure GormControlNumberRepository implements the interface
var _ voucher.ControlNumberRepository = (*GormControlNumberRepository)(nil)
