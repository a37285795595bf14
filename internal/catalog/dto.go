package catalog

import (
	"github.com/google/uuid"

	"github.com/mercaline/pos-backend/pkg/db/models"
)

// CreateProductInput carries the fields a new catalog listing needs.
type CreateProductInput struct {
	SKU         string
	Name        string
	Description *string
	CategoryID  *uuid.UUID
	SupplierID  *uuid.UUID
	PriceCents  int64
	CostCents   int64
	Stock       int
	MinStock    int
}

// ListProductsInput filters and paginates the catalog listing.
type ListProductsInput struct {
	Limit      int
	Cursor     string
	ActiveOnly bool
	Search     string
}

// ListProductsResult is one page of products plus the cursor for the next.
type ListProductsResult struct {
	Products   []models.Product
	NextCursor string
}

// RestockInput adds received stock to a product.
type RestockInput struct {
	ProductID  uuid.UUID
	Quantity   int
	EmployeeID uuid.UUID
	Reason     *string
}

// AdjustStockInput applies a manual correction, positive or negative.
type AdjustStockInput struct {
	ProductID  uuid.UUID
	Delta      int
	Damage     bool
	EmployeeID uuid.UUID
	Reason     *string
}
