package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/pos-backend/pkg/enums"
)

// Sale is the header row of a recorded transaction. Line items are immutable
// once created; later lifecycle changes only move the status column and are
// compensated through inventory_logs, never by editing the items.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	EmployeeID    uuid.UUID           `gorm:"column:employee_id;type:uuid;not null"`
	SaleDate      time.Time           `gorm:"column:sale_date;not null"`
	SubtotalCents int64               `gorm:"column:subtotal_cents;not null"`
	TaxCents      int64               `gorm:"column:tax_cents;not null;default:0"`
	TotalCents    int64               `gorm:"column:total_cents;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cash'"`
	Status        enums.SaleStatus    `gorm:"column:status;type:text;not null;default:'completed'"`
	PointsEarned  int                 `gorm:"column:points_earned;not null;default:0"`
	Notes         *string             `gorm:"column:notes"`
	Items         []SaleItem          `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
