package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog listing with its live price and stock level.
// Stock is only ever mutated through the inventory engine so the per-product
// inventory_logs chain stays gapless.
type Product struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string     `gorm:"column:sku;not null;uniqueIndex"`
	Name        string     `gorm:"column:name;not null"`
	Description *string    `gorm:"column:description"`
	CategoryID  *uuid.UUID `gorm:"column:category_id;type:uuid"`
	SupplierID  *uuid.UUID `gorm:"column:supplier_id;type:uuid"`
	PriceCents  int64      `gorm:"column:price_cents;not null"`
	CostCents   int64      `gorm:"column:cost_cents;not null"`
	Stock       int        `gorm:"column:stock;not null;default:0"`
	MinStock    int        `gorm:"column:min_stock;not null;default:1"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	Category    *Category  `gorm:"foreignKey:CategoryID"`
	Supplier    *Supplier  `gorm:"foreignKey:SupplierID"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
