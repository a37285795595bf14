package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleItem captures the immutable snapshot of one line in a sale. UnitPriceCents
// is fixed at sale time and never re-derived from the live product price.
type SaleItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID          uuid.UUID       `gorm:"column:sale_id;type:uuid;not null"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	UnitPriceCents  int64           `gorm:"column:unit_price_cents;not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	SubtotalCents   int64           `gorm:"column:subtotal_cents;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
