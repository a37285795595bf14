package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercaline/pos-backend/pkg/db/models"
	"github.com/mercaline/pos-backend/pkg/enums"
)

// SaleLineInput is one requested line of a sale. The unit price is never part
// of the input; it is snapshotted from the catalog inside the transaction.
type SaleLineInput struct {
	ProductID       uuid.UUID
	Quantity        int
	DiscountPercent decimal.Decimal
}

// RecordSaleInput carries everything needed to record a sale atomically.
type RecordSaleInput struct {
	CustomerID    uuid.UUID
	EmployeeID    uuid.UUID
	PaymentMethod enums.PaymentMethod
	Status        enums.SaleStatus
	SaleDate      time.Time
	Notes         *string
	Lines         []SaleLineInput
}

// ReverseSaleInput moves a sale to refunded or cancelled, compensating its
// side effects.
type ReverseSaleInput struct {
	SaleID     uuid.UUID
	Target     enums.SaleStatus
	EmployeeID uuid.UUID
	Reason     *string
}

// ListSalesInput filters and paginates the sale listing.
type ListSalesInput struct {
	Limit      int
	Cursor     string
	CustomerID *uuid.UUID
	Status     *enums.SaleStatus
}

// ListSalesResult is one page of sales plus the cursor for the next.
type ListSalesResult struct {
	Sales      []models.Sale
	NextCursor string
}
