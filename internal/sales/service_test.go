package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercaline/pos-backend/internal/catalog"
	"github.com/mercaline/pos-backend/internal/customers"
	"github.com/mercaline/pos-backend/internal/employees"
	"github.com/mercaline/pos-backend/internal/inventory"
	"github.com/mercaline/pos-backend/internal/tax"
	"github.com/mercaline/pos-backend/pkg/config"
	pkgdb "github.com/mercaline/pos-backend/pkg/db"
	"github.com/mercaline/pos-backend/pkg/db/models"
	"github.com/mercaline/pos-backend/pkg/enums"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
	"github.com/mercaline/pos-backend/pkg/metrics"
)

func setupSalesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT,
  category_id TEXT,
  supplier_id TEXT,
  price_cents INTEGER NOT NULL,
  cost_cents INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  min_stock INTEGER NOT NULL DEFAULT 1,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT UNIQUE,
  phone TEXT,
  points INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS employees (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'cashier',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS sales (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  employee_id TEXT NOT NULL,
  sale_date DATETIME NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  payment_method TEXT NOT NULL DEFAULT 'cash',
  status TEXT NOT NULL DEFAULT 'completed',
  points_earned INTEGER NOT NULL DEFAULT 0,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS sale_items (
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  discount_percent NUMERIC NOT NULL DEFAULT 0,
  subtotal_cents INTEGER NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS inventory_logs (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  sale_id TEXT,
  employee_id TEXT,
  change_type TEXT NOT NULL,
  quantity_change INTEGER NOT NULL,
  previous_stock INTEGER NOT NULL,
  new_stock INTEGER NOT NULL,
  reason TEXT,
  created_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type salesFixture struct {
	db       *gorm.DB
	svc      Service
	customer *models.Customer
	employee *models.Employee
}

func newSalesFixture(t *testing.T) *salesFixture {
	t.Helper()

	db := setupSalesTestDB(t)
	svc := newSalesService(t, db, config.SalesConfig{
		TaxRatePercent:     "8",
		TransactionTimeout: 5 * time.Second,
		MaxLineItems:       100,
	})

	customer := &models.Customer{FirstName: "Iris", LastName: "Chen"}
	require.NoError(t, customers.NewRepository(db).Create(context.Background(), customer))

	employee := &models.Employee{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("cashier-%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Noel",
		LastName:     "Reyes",
		Role:         enums.EmployeeRoleCashier,
		IsActive:     true,
	}
	require.NoError(t, db.Create(employee).Error)

	return &salesFixture{db: db, svc: svc, customer: customer, employee: employee}
}

func newSalesService(t *testing.T, db *gorm.DB, cfg config.SalesConfig) Service {
	t.Helper()

	policy, err := tax.NewFlatRate(cfg.TaxRatePercent)
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(db),
		catalog.NewRepository(db),
		customers.NewRepository(db),
		employees.NewRepository(db),
		inventory.NewEngine(),
		policy,
		pkgdb.FromConn(db),
		cfg,
		metrics.NewSaleMetrics(prometheus.NewRegistry()),
		nil,
	)
	require.NoError(t, err)
	return svc
}

func (f *salesFixture) seedProduct(t *testing.T, priceCents int64, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:         uuid.New(),
		SKU:        fmt.Sprintf("SKU-%s", uuid.NewString()),
		Name:       "Test Product",
		PriceCents: priceCents,
		CostCents:  priceCents / 2,
		Stock:      stock,
		MinStock:   1,
		IsActive:   true,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *salesFixture) customerPoints(t *testing.T) int {
	t.Helper()

	customer, err := customers.NewRepository(f.db).FindByID(context.Background(), f.customer.ID)
	require.NoError(t, err)
	return customer.Points
}

func (f *salesFixture) productStock(t *testing.T, id uuid.UUID) int {
	t.Helper()

	var product models.Product
	require.NoError(t, f.db.First(&product, "id = ?", id).Error)
	return product.Stock
}

func TestRecordSaleHappyPath(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 5000, 10)
	ctx := context.Background()

	sale, err := f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID:    f.customer.ID,
		EmployeeID:    f.employee.ID,
		PaymentMethod: enums.PaymentMethodCard,
		Lines: []SaleLineInput{
			{ProductID: product.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10000), sale.SubtotalCents)
	assert.Equal(t, int64(800), sale.TaxCents)
	assert.Equal(t, int64(10800), sale.TotalCents)
	assert.Equal(t, 10, sale.PointsEarned)
	assert.Equal(t, enums.SaleStatusCompleted, sale.Status)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, int64(5000), sale.Items[0].UnitPriceCents)

	assert.Equal(t, 8, f.productStock(t, product.ID))
	assert.Equal(t, 10, f.customerPoints(t))

	logs, err := inventory.NewRepository(f.db).ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, enums.InventoryChangeSale, logs[0].ChangeType)
	assert.Equal(t, -2, logs[0].QuantityChange)
	assert.Equal(t, 10, logs[0].PreviousStock)
	assert.Equal(t, 8, logs[0].NewStock)
}

func TestRecordSalePriceSnapshotSurvivesRepricing(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 5000, 10)
	ctx := context.Background()

	sale, err := f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: f.employee.ID,
		Lines:      []SaleLineInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("price_cents", 9999).Error)

	reloaded, err := f.svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), reloaded.Items[0].UnitPriceCents)
	assert.Equal(t, int64(5000), reloaded.SubtotalCents)
}

func TestRecordSaleDiscountRounding(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 999, 10)

	sale, err := f.svc.RecordSale(context.Background(), RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: f.employee.ID,
		Lines: []SaleLineInput{
			{ProductID: product.ID, Quantity: 1, DiscountPercent: decimal.RequireFromString("12.5")},
		},
	})
	require.NoError(t, err)

	// 999 * 0.875 = 874.125 -> 874
	assert.Equal(t, int64(874), sale.Items[0].SubtotalCents)
	assert.Equal(t, int64(874), sale.SubtotalCents)
}

func TestRecordSaleInsufficientStockLeavesNoTrace(t *testing.T) {
	f := newSalesFixture(t)
	scarce := f.seedProduct(t, 1000, 1)
	plenty := f.seedProduct(t, 1000, 50)
	ctx := context.Background()

	_, err := f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: f.employee.ID,
		Lines: []SaleLineInput{
			{ProductID: plenty.ID, Quantity: 5},
			{ProductID: scarce.ID, Quantity: 3},
		},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())

	// The whole transaction must roll back, including the first line's decrement.
	assert.Equal(t, 50, f.productStock(t, plenty.ID))
	assert.Equal(t, 1, f.productStock(t, scarce.ID))
	assert.Zero(t, f.customerPoints(t))

	var saleCount, logCount int64
	require.NoError(t, f.db.Model(&models.Sale{}).Count(&saleCount).Error)
	require.NoError(t, f.db.Model(&models.InventoryLog{}).Count(&logCount).Error)
	assert.Zero(t, saleCount)
	assert.Zero(t, logCount)
}

func TestRecordSaleSequentialContention(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 2000, 5)
	ctx := context.Background()

	_, err := f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: f.employee.ID,
		Lines:      []SaleLineInput{{ProductID: product.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	_, err = f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: f.employee.ID,
		Lines:      []SaleLineInput{{ProductID: product.ID, Quantity: 4}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())
	assert.Equal(t, 1, f.productStock(t, product.ID))
}

func TestRecordSaleUnknownReferences(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 1000, 10)
	ctx := context.Background()

	_, err := f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID: uuid.New(),
		EmployeeID: f.employee.ID,
		Lines:      []SaleLineInput{{ProductID: product.ID, Quantity: 1}},
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: uuid.New(),
		Lines:      []SaleLineInput{{ProductID: product.ID, Quantity: 1}},
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: f.employee.ID,
		Lines:      []SaleLineInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRecordSaleValidation(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 1000, 10)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RecordSaleInput
	}{
		{"no lines", RecordSaleInput{CustomerID: f.customer.ID, EmployeeID: f.employee.ID}},
		{"zero quantity", RecordSaleInput{
			CustomerID: f.customer.ID, EmployeeID: f.employee.ID,
			Lines: []SaleLineInput{{ProductID: product.ID, Quantity: 0}},
		}},
		{"discount above 100", RecordSaleInput{
			CustomerID: f.customer.ID, EmployeeID: f.employee.ID,
			Lines: []SaleLineInput{{ProductID: product.ID, Quantity: 1, DiscountPercent: decimal.NewFromInt(101)}},
		}},
		{"negative discount", RecordSaleInput{
			CustomerID: f.customer.ID, EmployeeID: f.employee.ID,
			Lines: []SaleLineInput{{ProductID: product.ID, Quantity: 1, DiscountPercent: decimal.NewFromInt(-1)}},
		}},
		{"duplicate product lines", RecordSaleInput{
			CustomerID: f.customer.ID, EmployeeID: f.employee.ID,
			Lines: []SaleLineInput{
				{ProductID: product.ID, Quantity: 1},
				{ProductID: product.ID, Quantity: 2},
			},
		}},
		{"bad payment method", RecordSaleInput{
			CustomerID: f.customer.ID, EmployeeID: f.employee.ID,
			PaymentMethod: enums.PaymentMethod("barter"),
			Lines:         []SaleLineInput{{ProductID: product.ID, Quantity: 1}},
		}},
		{"bad initial status", RecordSaleInput{
			CustomerID: f.customer.ID, EmployeeID: f.employee.ID,
			Status: enums.SaleStatusRefunded,
			Lines:  []SaleLineInput{{ProductID: product.ID, Quantity: 1}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RecordSale(ctx, tc.input)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestRecordSaleRejectsInactiveProduct(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 1000, 10)
	require.NoError(t, f.db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("is_active", false).Error)

	_, err := f.svc.RecordSale(context.Background(), RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: f.employee.ID,
		Lines:      []SaleLineInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestPendingSaleDefersPoints(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 5000, 10)
	ctx := context.Background()

	sale, err := f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: f.employee.ID,
		Status:     enums.SaleStatusPending,
		Lines:      []SaleLineInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.SaleStatusPending, sale.Status)
	assert.Equal(t, 10, sale.PointsEarned)
	assert.Equal(t, 8, f.productStock(t, product.ID), "stock moves at record time")
	assert.Zero(t, f.customerPoints(t), "points wait for completion")

	completed, err := f.svc.CompleteSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusCompleted, completed.Status)
	assert.Equal(t, 10, f.customerPoints(t))

	_, err = f.svc.CompleteSale(ctx, sale.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestReverseSaleRefund(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 5000, 10)
	ctx := context.Background()

	sale, err := f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: f.employee.ID,
		Lines:      []SaleLineInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 8, f.productStock(t, product.ID))
	require.Equal(t, 10, f.customerPoints(t))

	reversed, err := f.svc.ReverseSale(ctx, ReverseSaleInput{
		SaleID:     sale.ID,
		Target:     enums.SaleStatusRefunded,
		EmployeeID: f.employee.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.SaleStatusRefunded, reversed.Status)
	assert.Equal(t, 10, f.productStock(t, product.ID))
	assert.Zero(t, f.customerPoints(t))

	// Original items stay untouched.
	fetched, err := f.svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, int64(5000), fetched.Items[0].UnitPriceCents)

	logs, err := inventory.NewRepository(f.db).ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, enums.InventoryChangeSale, logs[0].ChangeType)
	assert.Equal(t, enums.InventoryChangeReturn, logs[1].ChangeType)
	assert.Equal(t, logs[0].NewStock, logs[1].PreviousStock)
}

func TestReverseSaleClampsPointDeduction(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 5000, 10)
	ctx := context.Background()

	sale, err := f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: f.employee.ID,
		Lines:      []SaleLineInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// The customer already spent most of the earned points elsewhere.
	_, err = customers.NewRepository(f.db).DeductPoints(ctx, f.customer.ID, 7)
	require.NoError(t, err)
	require.Equal(t, 3, f.customerPoints(t))

	_, err = f.svc.ReverseSale(ctx, ReverseSaleInput{
		SaleID: sale.ID,
		Target: enums.SaleStatusRefunded,
	})
	require.NoError(t, err)
	assert.Zero(t, f.customerPoints(t), "deduction clamps at zero, never negative")
}

func TestReverseSaleStateMachine(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 1000, 20)
	ctx := context.Background()

	pending, err := f.svc.RecordSale(ctx, RecordSaleInput{
		CustomerID: f.customer.ID,
		EmployeeID: f.employee.ID,
		Status:     enums.SaleStatusPending,
		Lines:      []SaleLineInput{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// pending cannot be refunded, only cancelled.
	_, err = f.svc.ReverseSale(ctx, ReverseSaleInput{SaleID: pending.ID, Target: enums.SaleStatusRefunded})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	cancelled, err := f.svc.ReverseSale(ctx, ReverseSaleInput{SaleID: pending.ID, Target: enums.SaleStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusCancelled, cancelled.Status)
	assert.Equal(t, 20, f.productStock(t, product.ID))
	assert.Zero(t, f.customerPoints(t))

	// A reversed sale is terminal.
	_, err = f.svc.ReverseSale(ctx, ReverseSaleInput{SaleID: pending.ID, Target: enums.SaleStatusRefunded})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	_, err = f.svc.ReverseSale(ctx, ReverseSaleInput{SaleID: uuid.New(), Target: enums.SaleStatusRefunded})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = f.svc.ReverseSale(ctx, ReverseSaleInput{SaleID: pending.ID, Target: enums.SaleStatusCompleted})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListSalesFiltersAndPaginates(t *testing.T) {
	f := newSalesFixture(t)
	product := f.seedProduct(t, 1000, 100)
	ctx := context.Background()

	var lastSale *models.Sale
	for i := 0; i < 4; i++ {
		sale, err := f.svc.RecordSale(ctx, RecordSaleInput{
			CustomerID: f.customer.ID,
			EmployeeID: f.employee.ID,
			Lines:      []SaleLineInput{{ProductID: product.ID, Quantity: 1}},
		})
		require.NoError(t, err)
		lastSale = sale
	}
	_, err := f.svc.ReverseSale(ctx, ReverseSaleInput{SaleID: lastSale.ID, Target: enums.SaleStatusRefunded})
	require.NoError(t, err)

	completed := enums.SaleStatusCompleted
	page, err := f.svc.ListSales(ctx, ListSalesInput{Limit: 2, Status: &completed})
	require.NoError(t, err)
	assert.Len(t, page.Sales, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := f.svc.ListSales(ctx, ListSalesInput{Limit: 2, Cursor: page.NextCursor, Status: &completed})
	require.NoError(t, err)
	assert.Len(t, rest.Sales, 1)

	other := uuid.New()
	none, err := f.svc.ListSales(ctx, ListSalesInput{CustomerID: &other})
	require.NoError(t, err)
	assert.Empty(t, none.Sales)
}

func TestRecordSaleTimeout(t *testing.T) {
	db := setupSalesTestDB(t)
	svc := newSalesService(t, db, config.SalesConfig{
		TaxRatePercent:     "8",
		TransactionTimeout: time.Nanosecond,
		MaxLineItems:       100,
	})

	customer := &models.Customer{FirstName: "Slow", LastName: "Lane"}
	require.NoError(t, customers.NewRepository(db).Create(context.Background(), customer))

	_, err := svc.RecordSale(context.Background(), RecordSaleInput{
		CustomerID: customer.ID,
		EmployeeID: uuid.New(),
		Lines:      []SaleLineInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeTimeout, pkgerrors.As(err).Code())
}
