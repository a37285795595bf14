package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercaline/pos-backend/internal/catalog"
	"github.com/mercaline/pos-backend/internal/customers"
	"github.com/mercaline/pos-backend/internal/employees"
	"github.com/mercaline/pos-backend/internal/inventory"
	"github.com/mercaline/pos-backend/internal/tax"
	"github.com/mercaline/pos-backend/pkg/config"
	"github.com/mercaline/pos-backend/pkg/db/models"
	"github.com/mercaline/pos-backend/pkg/enums"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
	"github.com/mercaline/pos-backend/pkg/logger"
	"github.com/mercaline/pos-backend/pkg/metrics"
	"github.com/mercaline/pos-backend/pkg/pagination"
)

// Points are earned per whole ten dollars of the sale total.
const pointsPerCents = 1000

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service implements the sale recording transaction and its lifecycle
// transitions.
type Service interface {
	RecordSale(ctx context.Context, input RecordSaleInput) (*models.Sale, error)
	ReverseSale(ctx context.Context, input ReverseSaleInput) (*models.Sale, error)
	CompleteSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
	GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
	ListSales(ctx context.Context, input ListSalesInput) (*ListSalesResult, error)
}

type service struct {
	repo      Repository
	catalog   catalog.Repository
	customers customers.Repository
	employees employees.Repository
	engine    inventory.Engine
	tax       tax.Policy
	tx        txRunner
	cfg       config.SalesConfig
	metrics   *metrics.SaleMetrics
	log       *logger.Logger
	now       func() time.Time
}

// NewService builds the sales service with the required dependencies.
func NewService(
	repo Repository,
	catalogRepo catalog.Repository,
	customerRepo customers.Repository,
	employeeRepo employees.Repository,
	engine inventory.Engine,
	taxPolicy tax.Policy,
	tx txRunner,
	cfg config.SalesConfig,
	saleMetrics *metrics.SaleMetrics,
	log *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if customerRepo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if employeeRepo == nil {
		return nil, fmt.Errorf("employee repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("inventory engine required")
	}
	if taxPolicy == nil {
		return nil, fmt.Errorf("tax policy required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cfg.TransactionTimeout <= 0 {
		cfg.TransactionTimeout = 5 * time.Second
	}
	if cfg.MaxLineItems <= 0 {
		cfg.MaxLineItems = 100
	}
	return &service{
		repo:      repo,
		catalog:   catalogRepo,
		customers: customerRepo,
		employees: employeeRepo,
		engine:    engine,
		tax:       taxPolicy,
		tx:        tx,
		cfg:       cfg,
		metrics:   saleMetrics,
		log:       log,
		now:       time.Now,
	}, nil
}

func (s *service) RecordSale(ctx context.Context, input RecordSaleInput) (*models.Sale, error) {
	started := s.now()
	sale, err := s.recordSale(ctx, input)
	s.metrics.ObserveDuration("record", s.now().Sub(started))
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			s.metrics.IncRejection(string(typed.Code()))
		}
		return nil, err
	}
	s.metrics.IncRecorded(string(sale.Status))
	return sale, nil
}

func (s *service) recordSale(ctx context.Context, input RecordSaleInput) (*models.Sale, error) {
	if err := s.validateRecordInput(&input); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TransactionTimeout)
	defer cancel()

	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customerRepo := s.customers.WithTx(tx)
		if _, err := customerRepo.FindByID(ctx, input.CustomerID); err != nil {
			return err
		}
		if _, err := s.employees.WithTx(tx).FindByID(ctx, input.EmployeeID); err != nil {
			return err
		}

		products, err := s.loadProducts(ctx, tx, input.Lines)
		if err != nil {
			return err
		}

		built, err := buildSale(input, products, s.tax, s.now())
		if err != nil {
			return err
		}

		if err := s.repo.WithTx(tx).Create(ctx, built); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert sale")
		}

		for _, line := range input.Lines {
			if _, err := s.engine.ApplyStockChange(ctx, tx, inventory.StockChange{
				ProductID:  line.ProductID,
				Delta:      -line.Quantity,
				ChangeType: enums.InventoryChangeSale,
				SaleID:     &built.ID,
				EmployeeID: &input.EmployeeID,
			}); err != nil {
				return err
			}
		}

		if built.Status == enums.SaleStatusCompleted && built.PointsEarned > 0 {
			if err := customerRepo.AwardPoints(ctx, built.CustomerID, built.PointsEarned); err != nil {
				return err
			}
		}

		sale = built
		return nil
	})
	if err != nil {
		return nil, mapTxError(err, "record sale")
	}

	if s.log != nil {
		lctx := s.log.WithSaleID(ctx, sale.ID.String())
		s.log.Info(lctx, "sale recorded")
	}
	return sale, nil
}

func (s *service) validateRecordInput(input *RecordSaleInput) error {
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.EmployeeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "employee id required")
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale requires at least one line item")
	}
	if len(input.Lines) > s.cfg.MaxLineItems {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("sale exceeds %d line items", s.cfg.MaxLineItems))
	}

	if input.PaymentMethod == "" {
		input.PaymentMethod = enums.PaymentMethodCash
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	if input.Status == "" {
		input.Status = enums.SaleStatusCompleted
	}
	if input.Status != enums.SaleStatusCompleted && input.Status != enums.SaleStatusPending {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale must be recorded as pending or completed")
	}

	hundred := decimal.NewFromInt(100)
	seen := make(map[uuid.UUID]bool, len(input.Lines))
	for i, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return lineError(i, "product id required")
		}
		if seen[line.ProductID] {
			return lineError(i, "duplicate product; merge quantities into one line")
		}
		seen[line.ProductID] = true
		if line.Quantity <= 0 {
			return lineError(i, "quantity must be positive")
		}
		if line.DiscountPercent.IsNegative() || line.DiscountPercent.GreaterThan(hundred) {
			return lineError(i, "discount must be between 0 and 100")
		}
	}
	return nil
}

func (s *service) loadProducts(ctx context.Context, tx *gorm.DB, lines []SaleLineInput) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	rows, err := s.catalog.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	products := make(map[uuid.UUID]models.Product, len(rows))
	for _, p := range rows {
		products[p.ID] = p
	}
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, pkgerrors.UnknownReference("product", line.ProductID.String())
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s is not active", product.SKU))
		}
	}
	return products, nil
}

// buildSale snapshots unit prices, computes totals with decimal arithmetic
// rounded half-up to the cent, and derives the loyalty points for the sale.
func buildSale(input RecordSaleInput, products map[uuid.UUID]models.Product, policy tax.Policy, now time.Time) (*models.Sale, error) {
	saleID := uuid.New()
	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = now
	}

	hundred := decimal.NewFromInt(100)
	var subtotal int64
	items := make([]models.SaleItem, 0, len(input.Lines))
	for _, line := range input.Lines {
		product := products[line.ProductID]

		gross := decimal.NewFromInt(product.PriceCents).Mul(decimal.NewFromInt(int64(line.Quantity)))
		multiplier := hundred.Sub(line.DiscountPercent).Div(hundred)
		lineSubtotal := gross.Mul(multiplier).Round(0).IntPart()

		subtotal += lineSubtotal
		items = append(items, models.SaleItem{
			ID:              uuid.New(),
			SaleID:          saleID,
			ProductID:       product.ID,
			Quantity:        line.Quantity,
			UnitPriceCents:  product.PriceCents,
			DiscountPercent: line.DiscountPercent,
			SubtotalCents:   lineSubtotal,
		})
	}

	taxCents := policy.TaxCents(subtotal)
	total := subtotal + taxCents

	return &models.Sale{
		ID:            saleID,
		CustomerID:    input.CustomerID,
		EmployeeID:    input.EmployeeID,
		SaleDate:      saleDate,
		SubtotalCents: subtotal,
		TaxCents:      taxCents,
		TotalCents:    total,
		PaymentMethod: input.PaymentMethod,
		Status:        input.Status,
		PointsEarned:  int(total / pointsPerCents),
		Notes:         input.Notes,
		Items:         items,
	}, nil
}

func (s *service) ReverseSale(ctx context.Context, input ReverseSaleInput) (*models.Sale, error) {
	started := s.now()
	sale, err := s.reverseSale(ctx, input)
	s.metrics.ObserveDuration("reverse", s.now().Sub(started))
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			s.metrics.IncRejection(string(typed.Code()))
		}
		return nil, err
	}
	s.metrics.IncReversed(string(sale.Status))
	return sale, nil
}

func (s *service) reverseSale(ctx context.Context, input ReverseSaleInput) (*models.Sale, error) {
	if input.SaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if input.Target != enums.SaleStatusRefunded && input.Target != enums.SaleStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reversal target must be refunded or cancelled")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TransactionTimeout)
	defer cancel()

	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, input.SaleID)
		if err != nil {
			return err
		}
		if !loaded.Status.CanTransitionTo(input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("sale in status %s cannot move to %s", loaded.Status, input.Target))
		}

		// Stock was decremented at record time for pending and completed
		// sales alike, so every reversal restocks.
		for _, item := range loaded.Items {
			if _, err := s.engine.ApplyStockChange(ctx, tx, inventory.StockChange{
				ProductID:  item.ProductID,
				Delta:      item.Quantity,
				ChangeType: enums.InventoryChangeReturn,
				SaleID:     &loaded.ID,
				EmployeeID: employeeRef(input.EmployeeID),
				Reason:     input.Reason,
			}); err != nil {
				return err
			}
		}

		// Points only exist on the customer once the sale completed.
		if loaded.Status == enums.SaleStatusCompleted && loaded.PointsEarned > 0 {
			applied, err := s.customers.WithTx(tx).DeductPoints(ctx, loaded.CustomerID, loaded.PointsEarned)
			if err != nil {
				return err
			}
			if applied < loaded.PointsEarned && s.log != nil {
				lctx := s.log.WithFields(ctx, map[string]any{
					"sale_id":       loaded.ID.String(),
					"points_earned": loaded.PointsEarned,
					"points_taken":  applied,
				})
				s.log.Warn(lctx, "point deduction clamped at zero balance")
			}
		}

		if err := repo.UpdateStatus(ctx, loaded.ID, input.Target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale status")
		}
		loaded.Status = input.Target
		sale = loaded
		return nil
	})
	if err != nil {
		return nil, mapTxError(err, "reverse sale")
	}

	if s.log != nil {
		lctx := s.log.WithSaleID(ctx, sale.ID.String())
		s.log.Info(lctx, "sale reversed")
	}
	return sale, nil
}

func (s *service) CompleteSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TransactionTimeout)
	defer cancel()

	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, saleID)
		if err != nil {
			return err
		}
		if loaded.Status != enums.SaleStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("sale in status %s cannot be completed", loaded.Status))
		}

		// Stock moved at record time; completion only settles the points.
		if loaded.PointsEarned > 0 {
			if err := s.customers.WithTx(tx).AwardPoints(ctx, loaded.CustomerID, loaded.PointsEarned); err != nil {
				return err
			}
		}
		if err := repo.UpdateStatus(ctx, loaded.ID, enums.SaleStatusCompleted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale status")
		}
		loaded.Status = enums.SaleStatusCompleted
		sale = loaded
		return nil
	})
	if err != nil {
		return nil, mapTxError(err, "complete sale")
	}
	return sale, nil
}

func (s *service) GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	return s.repo.FindByID(ctx, saleID)
}

func (s *service) ListSales(ctx context.Context, input ListSalesInput) (*ListSalesResult, error) {
	rows, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, err
	}

	limit := pagination.NormalizeLimit(input.Limit)
	result := &ListSalesResult{Sales: rows}
	if len(rows) > limit {
		result.Sales = rows[:limit]
		last := result.Sales[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func lineError(index int, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("line %d: %s", index+1, msg))
}

func employeeRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	ref := id
	return &ref
}

// mapTxError translates transaction failures into the typed taxonomy without
// double-wrapping errors that already carry a code.
func mapTxError(err error, op string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, op+" timed out")
	}
	if pkgerrors.IsConstraintViolation(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConstraint, err, op+" violated a database constraint")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+" failed")
}
