package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/pos-backend/pkg/enums"
)

// InventoryLog is the append-only audit trail of every stock movement. Rows are
// never updated or deleted; ordered by creation they reconstruct a product's
// stock history exactly (new_stock = previous_stock + quantity_change, and each
// row's previous_stock equals the prior row's new_stock).
type InventoryLog struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID      uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	SaleID         *uuid.UUID                `gorm:"column:sale_id;type:uuid"`
	EmployeeID     *uuid.UUID                `gorm:"column:employee_id;type:uuid"`
	ChangeType     enums.InventoryChangeType `gorm:"column:change_type;type:text;not null"`
	QuantityChange int                       `gorm:"column:quantity_change;not null"`
	PreviousStock  int                       `gorm:"column:previous_stock;not null"`
	NewStock       int                       `gorm:"column:new_stock;not null"`
	Reason         *string                   `gorm:"column:reason"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
