package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/pos-backend/api/responses"
	"github.com/mercaline/pos-backend/api/validators"
	"github.com/mercaline/pos-backend/internal/catalog"
	"github.com/mercaline/pos-backend/pkg/db/models"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
	"github.com/mercaline/pos-backend/pkg/logger"
	"github.com/mercaline/pos-backend/pkg/pagination"
)

type createProductRequest struct {
	SKU         string  `json:"sku" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	CategoryID  *string `json:"category_id,omitempty" validate:"omitempty,uuid4"`
	SupplierID  *string `json:"supplier_id,omitempty" validate:"omitempty,uuid4"`
	PriceCents  int64   `json:"price_cents" validate:"required,min=1"`
	CostCents   int64   `json:"cost_cents" validate:"required,min=1"`
	Stock       int     `json:"stock" validate:"min=0"`
	MinStock    int     `json:"min_stock" validate:"required,min=1"`
}

type restockRequest struct {
	Quantity int     `json:"quantity" validate:"required,min=1"`
	Reason   *string `json:"reason,omitempty"`
}

type adjustStockRequest struct {
	Delta  int     `json:"delta" validate:"required"`
	Damage bool    `json:"damage,omitempty"`
	Reason *string `json:"reason,omitempty"`
}

type productResponse struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CategoryID  *string   `json:"category_id,omitempty"`
	SupplierID  *string   `json:"supplier_id,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	CostCents   int64     `json:"cost_cents"`
	Stock       int       `json:"stock"`
	MinStock    int       `json:"min_stock"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type productListResponse struct {
	Products   []productResponse `json:"products"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type inventoryLogResponse struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	SaleID         *string   `json:"sale_id,omitempty"`
	EmployeeID     *string   `json:"employee_id,omitempty"`
	ChangeType     string    `json:"change_type"`
	QuantityChange int       `json:"quantity_change"`
	PreviousStock  int       `json:"previous_stock"`
	NewStock       int       `json:"new_stock"`
	Reason         *string   `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toProductResponse(product *models.Product) productResponse {
	resp := productResponse{
		ID:          product.ID.String(),
		SKU:         product.SKU,
		Name:        product.Name,
		Description: product.Description,
		PriceCents:  product.PriceCents,
		CostCents:   product.CostCents,
		Stock:       product.Stock,
		MinStock:    product.MinStock,
		IsActive:    product.IsActive,
		CreatedAt:   product.CreatedAt,
	}
	if product.CategoryID != nil {
		id := product.CategoryID.String()
		resp.CategoryID = &id
	}
	if product.SupplierID != nil {
		id := product.SupplierID.String()
		resp.SupplierID = &id
	}
	return resp
}

func toInventoryLogResponse(log *models.InventoryLog) inventoryLogResponse {
	resp := inventoryLogResponse{
		ID:             log.ID.String(),
		ProductID:      log.ProductID.String(),
		ChangeType:     log.ChangeType.String(),
		QuantityChange: log.QuantityChange,
		PreviousStock:  log.PreviousStock,
		NewStock:       log.NewStock,
		Reason:         log.Reason,
		CreatedAt:      log.CreatedAt,
	}
	if log.SaleID != nil {
		id := log.SaleID.String()
		resp.SaleID = &id
	}
	if log.EmployeeID != nil {
		id := log.EmployeeID.String()
		resp.EmployeeID = &id
	}
	return resp
}

// CreateProduct adds a catalog listing.
func CreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.CreateProductInput{
			SKU:         payload.SKU,
			Name:        payload.Name,
			Description: payload.Description,
			PriceCents:  payload.PriceCents,
			CostCents:   payload.CostCents,
			Stock:       payload.Stock,
			MinStock:    payload.MinStock,
		}
		if payload.CategoryID != nil {
			id, err := uuid.Parse(*payload.CategoryID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id"))
				return
			}
			input.CategoryID = &id
		}
		if payload.SupplierID != nil {
			id, err := uuid.Parse(*payload.SupplierID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid supplier id"))
				return
			}
			input.SupplierID = &id
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toProductResponse(product))
	}
}

// GetProduct returns one catalog listing.
func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductResponse(product))
	}
}

// ListProducts returns a cursor-paginated page of the catalog.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), catalog.ListProductsInput{
			Limit:      limit,
			Cursor:     r.URL.Query().Get("cursor"),
			ActiveOnly: r.URL.Query().Get("include_inactive") == "",
			Search:     r.URL.Query().Get("search"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := productListResponse{NextCursor: result.NextCursor}
		for i := range result.Products {
			payload.Products = append(payload.Products, toProductResponse(&result.Products[i]))
		}
		responses.WriteSuccess(w, payload)
	}
}

// LowStockProducts reports active products at or below their reorder threshold.
func LowStockProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.LowStock(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := make([]productResponse, 0, len(products))
		for i := range products {
			payload = append(payload, toProductResponse(&products[i]))
		}
		responses.WriteSuccess(w, payload)
	}
}

// RestockProduct adds received stock to a product.
func RestockProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		employeeID, err := actingEmployee(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload restockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		log, err := svc.Restock(r.Context(), catalog.RestockInput{
			ProductID:  productID,
			Quantity:   payload.Quantity,
			EmployeeID: employeeID,
			Reason:     payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toInventoryLogResponse(log))
	}
}

// AdjustProductStock applies a manual stock correction.
func AdjustProductStock(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		employeeID, err := actingEmployee(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		log, err := svc.AdjustStock(r.Context(), catalog.AdjustStockInput{
			ProductID:  productID,
			Delta:      payload.Delta,
			Damage:     payload.Damage,
			EmployeeID: employeeID,
			Reason:     payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toInventoryLogResponse(log))
	}
}

// ProductInventoryHistory lists the audit trail for one product.
func ProductInventoryHistory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logs, err := svc.InventoryHistory(r.Context(), productID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := make([]inventoryLogResponse, 0, len(logs))
		for i := range logs {
			payload = append(payload, toInventoryLogResponse(&logs[i]))
		}
		responses.WriteSuccess(w, payload)
	}
}
