package persistence

import (
	"context"

	"github.com/fmca/voucher-backend/internal/domain/voucher"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCategoryCatalog implements voucher.CategoryCatalog using GORM
type GormCategoryCatalog struct {
	db *gorm.DB
}

// NewGormCategoryCatalog creates a new GormCategoryCatalog
func NewGormCategoryCatalog(db *gorm.DB) *GormCategoryCatalog {
	return &GormCategoryCatalog{db: db}
}

// List returns all categories in display order
func (r *GormCategoryCatalog) List(ctx context.Context) ([]voucher.Category, error) {
	var categories []voucher.Category
	if err := r.db.WithContext(ctx).
		Order("sort_order ASC, name ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Exists reports whether a category name is in the catalog
func (r *GormCategoryCatalog) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voucher.Category{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a catalog entry
func (r *GormCategoryCatalog) Save(ctx context.Context, c *voucher.Category) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(c).Error
}

// Delete removes a catalog entry
func (r *GormCategoryCatalog) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&voucher.Category{}, "id = ?", id).Error
}

// Ensure GormCategoryCatalog implements the interface
var _ voucher.CategoryCatalog = (*GormCategoryCatalog)(nil)
