package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/fmca/voucher-backend/internal/domain/voucher"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVoucherRepository implements voucher.Repository using GORM
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GormVoucherRepository
func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// FindByRowIndex finds a voucher by its row index within a year partition
func (r *GormVoucherRepository) FindByRowIndex(ctx context.Context, year string, rowIndex int64) (*voucher.Voucher, error) {
	var v voucher.Voucher
	if err := r.db.WithContext(ctx).
		First(&v, "year = ? AND row_index = ?", year, rowIndex).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// FindByRowIndexes finds vouchers by row indexes within a year partition
func (r *GormVoucherRepository) FindByRowIndexes(ctx context.Context, year string, rowIndexes []int64) ([]voucher.Voucher, error) {
	var vouchers []voucher.Voucher
	if len(rowIndexes) == 0 {
		return vouchers, nil
	}
	if err := r.db.WithContext(ctx).
		Where("year = ? AND row_index IN ?", year, rowIndexes).
		Order("row_index ASC").
		Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

// FindByVoucherNumber finds a voucher by its voucher number within a year
func (r *GormVoucherRepository) FindByVoucherNumber(ctx context.Context, year, voucherNumber string) (*voucher.Voucher, error) {
	var v voucher.Voucher
	if err := r.db.WithContext(ctx).
		First(&v, "year = ? AND voucher_number = ?", year, voucherNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// FindByOldVoucherNumber finds a voucher carrying a revalidated number within a year
func (r *GormVoucherRepository) FindByOldVoucherNumber(ctx context.Context, year, oldVoucherNumber string) (*voucher.Voucher, error) {
	var v voucher.Voucher
	if err := r.db.WithContext(ctx).
		First(&v, "year = ? AND old_voucher_number = ?", year, oldVoucherNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// FindByControlNumber finds all vouchers released under a control number within a year
func (r *GormVoucherRepository) FindByControlNumber(ctx context.Context, year, controlNumber string) ([]voucher.Voucher, error) {
	var vouchers []voucher.Voucher
	if err := r.db.WithContext(ctx).
		Where("year = ? AND control_number = ?", year, controlNumber).
		Order("row_index ASC").
		Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

// FindAll lists vouchers in a year partition with filtering and pagination
func (r *GormVoucherRepository) FindAll(ctx context.Context, year string, filter voucher.Filter) (shared.Paginated[voucher.Voucher], error) {
	query := r.db.WithContext(ctx).Model(&voucher.Voucher{}).Where("year = ?", year)

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PendingDeletion != nil {
		query = query.Where("pending_deletion = ?", *filter.PendingDeletion)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Released != nil {
		if *filter.Released {
			query = query.Where("control_number <> ''")
		} else {
			query = query.Where("control_number = ''")
		}
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("payee LIKE ? OR voucher_number LIKE ? OR particular LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[voucher.Voucher]{}, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}

	var vouchers []voucher.Voucher
	if err := query.
		Order("row_index DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&vouchers).Error; err != nil {
		return shared.Paginated[voucher.Voucher]{}, err
	}

	return shared.NewPaginated(vouchers, total, page, pageSize), nil
}

// FindPendingDeletions lists vouchers awaiting deletion approval in a year
func (r *GormVoucherRepository) FindPendingDeletions(ctx context.Context, year string) ([]voucher.Voucher, error) {
	var vouchers []voucher.Voucher
	if err := r.db.WithContext(ctx).
		Where("year = ? AND pending_deletion = ?", year, true).
		Order("row_index ASC").
		Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

// Create assigns the next row index in the year partition and inserts.
// The insert and the index read run in one transaction; the unique
// (year, row_index) index rejects a concurrent winner.
func (r *GormVoucherRepository) Create(ctx context.Context, v *voucher.Voucher) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxRow int64
		if err := tx.Model(&voucher.Voucher{}).
			Select("COALESCE(MAX(row_index), 0)").
			Where("year = ?", v.Year).
			Scan(&maxRow).Error; err != nil {
			return err
		}
		v.RowIndex = maxRow + 1
		if err := tx.Create(v).Error; err != nil {
			return shared.NewDomainError("STORAGE_ERROR", fmt.Sprintf("Failed to insert voucher: %v", err))
		}
		return nil
	})
}

// Save persists an existing voucher with an optimistic version check
func (r *GormVoucherRepository) Save(ctx context.Context, v *voucher.Voucher) error {
	result := r.db.WithContext(ctx).
		Model(v).
		Select("*").
		Where("id = ? AND version = ?", v.ID, v.Version-1).
		Updates(v)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENCY_CONFLICT",
			fmt.Sprintf("Voucher %d was modified concurrently", v.RowIndex))
	}
	return nil
}

// HardDelete permanently removes a voucher record
func (r *GormVoucherRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&voucher.Voucher{}, "id = ?", id).Error
}

// Ensure GormVoucherRepository implements the interface
var _ voucher.Repository = (*GormVoucherRepository)(nil)
