package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/pos-backend/pkg/db/models"
	"github.com/mercaline/pos-backend/pkg/pagination"
)

// Repository reads the append-only audit trail.
type Repository interface {
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.InventoryLog, error)
	ListBySale(ctx context.Context, saleID uuid.UUID) ([]models.InventoryLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory log repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.InventoryLog, error) {
	var logs []models.InventoryLog
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repository) ListBySale(ctx context.Context, saleID uuid.UUID) ([]models.InventoryLog, error) {
	var logs []models.InventoryLog
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
