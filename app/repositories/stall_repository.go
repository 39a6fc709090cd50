package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/pkg/realtime"
)

// StallRepository stores stalls and their menus.
type StallRepository struct {
	db  *gorm.DB
	pub realtime.Publisher
}

func NewStallRepository(db *gorm.DB, pub realtime.Publisher) *StallRepository {
	return &StallRepository{db: db, pub: pub}
}

// All lists stalls by name.
func (r *StallRepository) All(ctx context.Context) ([]models.Stall, error) {
	var stalls []models.Stall
	err := r.db.WithContext(ctx).Order("name asc").Find(&stalls).Error
	return stalls, translate(err)
}

func (r *StallRepository) FindByID(ctx context.Context, id string) (models.Stall, error) {
	var s models.Stall
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	return s, translate(err)
}

func (r *StallRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Stall, error) {
	var stalls []models.Stall
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&stalls).Error
	return stalls, translate(err)
}

// FindByVendor returns the one stall a vendor runs.
func (r *StallRepository) FindByVendor(ctx context.Context, vendorID string) (models.Stall, error) {
	var s models.Stall
	err := r.db.WithContext(ctx).Where("vendor_id = ?", vendorID).First(&s).Error
	return s, translate(err)
}

// Update applies fields to a stall and publishes the change.
func (r *StallRepository) Update(ctx context.Context, id string, fields map[string]any) (models.Stall, error) {
	old, err := r.FindByID(ctx, id)
	if err != nil {
		return models.Stall{}, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Stall{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return models.Stall{}, translate(err)
	}
	updated, err := r.FindByID(ctx, id)
	if err != nil {
		return models.Stall{}, err
	}
	publish(ctx, r.pub, TableStalls, realtime.Update, updated, old)
	return updated, nil
}

// Menu lists a stall's items by category then name.
func (r *StallRepository) Menu(ctx context.Context, stallID string, onlyAvailable bool) ([]models.MenuItem, error) {
	q := r.db.WithContext(ctx).Where("stall_id = ?", stallID)
	if onlyAvailable {
		q = q.Where("is_available = ?", true)
	}
	var items []models.MenuItem
	err := q.Order("category asc").Order("name asc").Find(&items).Error
	return items, translate(err)
}

func (r *StallRepository) FindMenuItem(ctx context.Context, id string) (models.MenuItem, error) {
	var m models.MenuItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	return m, translate(err)
}

// UpdateMenuItem applies fields to one item and publishes the change.
func (r *StallRepository) UpdateMenuItem(ctx context.Context, id string, fields map[string]any) (models.MenuItem, error) {
	old, err := r.FindMenuItem(ctx, id)
	if err != nil {
		return models.MenuItem{}, err
	}
	if err := r.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return models.MenuItem{}, translate(err)
	}
	updated, err := r.FindMenuItem(ctx, id)
	if err != nil {
		return models.MenuItem{}, err
	}
	publish(ctx, r.pub, TableMenuItems, realtime.Update, updated, old)
	return updated, nil
}
