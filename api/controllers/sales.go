package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercaline/pos-backend/api/middleware"
	"github.com/mercaline/pos-backend/api/responses"
	"github.com/mercaline/pos-backend/api/validators"
	salesvc "github.com/mercaline/pos-backend/internal/sales"
	"github.com/mercaline/pos-backend/pkg/db/models"
	"github.com/mercaline/pos-backend/pkg/enums"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
	"github.com/mercaline/pos-backend/pkg/logger"
	"github.com/mercaline/pos-backend/pkg/pagination"
)

type saleLineRequest struct {
	ProductID       string          `json:"product_id" validate:"required,uuid4"`
	Quantity        int             `json:"quantity" validate:"required,min=1"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type createSaleRequest struct {
	CustomerID    string            `json:"customer_id" validate:"required,uuid4"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	Status        string            `json:"status,omitempty"`
	Notes         *string           `json:"notes,omitempty"`
	Items         []saleLineRequest `json:"items" validate:"required,min=1,dive"`
}

type reverseSaleRequest struct {
	Target string  `json:"target" validate:"required"`
	Reason *string `json:"reason,omitempty"`
}

type saleItemResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPriceCents  int64           `json:"unit_price_cents"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	SubtotalCents   int64           `json:"subtotal_cents"`
}

type saleResponse struct {
	ID            string             `json:"id"`
	CustomerID    string             `json:"customer_id"`
	EmployeeID    string             `json:"employee_id"`
	SaleDate      time.Time          `json:"sale_date"`
	SubtotalCents int64              `json:"subtotal_cents"`
	TaxCents      int64              `json:"tax_cents"`
	TotalCents    int64              `json:"total_cents"`
	PaymentMethod string             `json:"payment_method"`
	Status        string             `json:"status"`
	PointsEarned  int                `json:"points_earned"`
	Notes         *string            `json:"notes,omitempty"`
	Items         []saleItemResponse `json:"items"`
}

type saleListResponse struct {
	Sales      []saleResponse `json:"sales"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func toSaleResponse(sale *models.Sale) saleResponse {
	items := make([]saleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, saleItemResponse{
			ID:              item.ID.String(),
			ProductID:       item.ProductID.String(),
			Quantity:        item.Quantity,
			UnitPriceCents:  item.UnitPriceCents,
			DiscountPercent: item.DiscountPercent,
			SubtotalCents:   item.SubtotalCents,
		})
	}
	return saleResponse{
		ID:            sale.ID.String(),
		CustomerID:    sale.CustomerID.String(),
		EmployeeID:    sale.EmployeeID.String(),
		SaleDate:      sale.SaleDate,
		SubtotalCents: sale.SubtotalCents,
		TaxCents:      sale.TaxCents,
		TotalCents:    sale.TotalCents,
		PaymentMethod: string(sale.PaymentMethod),
		Status:        string(sale.Status),
		PointsEarned:  sale.PointsEarned,
		Notes:         sale.Notes,
		Items:         items,
	}
}

func actingEmployee(r *http.Request) (uuid.UUID, error) {
	raw := middleware.EmployeeIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "employee context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid employee id")
	}
	return id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

// CreateSale records a sale on behalf of the authenticated employee.
func CreateSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		employeeID, err := actingEmployee(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(employeeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.RecordSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toSaleResponse(sale))
	}
}

func (p createSaleRequest) toInput(employeeID uuid.UUID) (salesvc.RecordSaleInput, error) {
	customerID, err := uuid.Parse(p.CustomerID)
	if err != nil {
		return salesvc.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id")
	}

	input := salesvc.RecordSaleInput{
		CustomerID: customerID,
		EmployeeID: employeeID,
		Notes:      p.Notes,
	}
	if p.PaymentMethod != "" {
		method, err := enums.ParsePaymentMethod(p.PaymentMethod)
		if err != nil {
			return salesvc.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		input.PaymentMethod = method
	}
	if p.Status != "" {
		status, err := enums.ParseSaleStatus(p.Status)
		if err != nil {
			return salesvc.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		input.Status = status
	}

	for _, item := range p.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return salesvc.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		input.Lines = append(input.Lines, salesvc.SaleLineInput{
			ProductID:       productID,
			Quantity:        item.Quantity,
			DiscountPercent: item.DiscountPercent,
		})
	}
	return input, nil
}

// ReverseSale refunds or cancels a sale, compensating its side effects.
func ReverseSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := pathUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		employeeID, err := actingEmployee(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reverseSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseSaleStatus(payload.Target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		sale, err := svc.ReverseSale(r.Context(), salesvc.ReverseSaleInput{
			SaleID:     saleID,
			Target:     target,
			EmployeeID: employeeID,
			Reason:     payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSaleResponse(sale))
	}
}

// CompleteSale settles a pending sale and awards its deferred points.
func CompleteSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := pathUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.CompleteSale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSaleResponse(sale))
	}
}

// GetSale returns a single sale with its line items.
func GetSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		saleID, err := pathUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.GetSale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSaleResponse(sale))
	}
}

// ListSales returns a cursor-paginated page of sales.
func ListSales(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := salesvc.ListSalesInput{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}
		if raw := r.URL.Query().Get("customer_id"); raw != "" {
			customerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
				return
			}
			input.CustomerID = &customerID
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseSaleStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}

		result, err := svc.ListSales(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := saleListResponse{NextCursor: result.NextCursor}
		for i := range result.Sales {
			payload.Sales = append(payload.Sales, toSaleResponse(&result.Sales[i]))
		}
		responses.WriteSuccess(w, payload)
	}
}
