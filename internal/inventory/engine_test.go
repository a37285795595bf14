package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercaline/pos-backend/pkg/db/models"
	"github.com/mercaline/pos-backend/pkg/enums"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
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
);`
	logs := `
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
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(logs).Error)
	return db
}

func newProduct(t *testing.T, db *gorm.DB, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:         uuid.New(),
		SKU:        fmt.Sprintf("SKU-%s", uuid.NewString()),
		Name:       "Widget",
		PriceCents: 2599,
		CostCents:  1200,
		Stock:      stock,
		MinStock:   2,
		IsActive:   true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestApplyStockChangeDecrement(t *testing.T) {
	db := setupInventoryTestDB(t)
	product := newProduct(t, db, 10)
	eng := NewEngine()

	employeeID := uuid.New()
	log, err := eng.ApplyStockChange(context.Background(), db, StockChange{
		ProductID:  product.ID,
		Delta:      -3,
		ChangeType: enums.InventoryChangeSale,
		EmployeeID: &employeeID,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, log.PreviousStock)
	assert.Equal(t, 7, log.NewStock)
	assert.Equal(t, -3, log.QuantityChange)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 7, reloaded.Stock)
}

func TestApplyStockChangeInsufficientStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	product := newProduct(t, db, 2)
	eng := NewEngine()

	_, err := eng.ApplyStockChange(context.Background(), db, StockChange{
		ProductID:  product.ID,
		Delta:      -5,
		ChangeType: enums.InventoryChangeSale,
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	// The failed decrement must leave no trace.
	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 2, reloaded.Stock)

	var count int64
	require.NoError(t, db.Model(&models.InventoryLog{}).Where("product_id = ?", product.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApplyStockChangeUnknownProduct(t *testing.T) {
	db := setupInventoryTestDB(t)
	eng := NewEngine()

	_, err := eng.ApplyStockChange(context.Background(), db, StockChange{
		ProductID:  uuid.New(),
		Delta:      4,
		ChangeType: enums.InventoryChangeRestock,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestApplyStockChangeChainStaysContiguous(t *testing.T) {
	db := setupInventoryTestDB(t)
	product := newProduct(t, db, 5)
	eng := NewEngine()
	ctx := context.Background()

	steps := []StockChange{
		{ProductID: product.ID, Delta: -2, ChangeType: enums.InventoryChangeSale},
		{ProductID: product.ID, Delta: 10, ChangeType: enums.InventoryChangeRestock},
		{ProductID: product.ID, Delta: -1, ChangeType: enums.InventoryChangeDamage},
		{ProductID: product.ID, Delta: 2, ChangeType: enums.InventoryChangeReturn},
	}
	logs := make([]*models.InventoryLog, 0, len(steps))
	for _, step := range steps {
		log, err := eng.ApplyStockChange(ctx, db, step)
		require.NoError(t, err)
		logs = append(logs, log)
	}

	prev := 5
	for _, log := range logs {
		assert.Equal(t, prev, log.PreviousStock)
		assert.Equal(t, log.PreviousStock+log.QuantityChange, log.NewStock)
		prev = log.NewStock
	}
	assert.Equal(t, 14, prev)
}

func TestApplyStockChangeRejectsInvalidInput(t *testing.T) {
	db := setupInventoryTestDB(t)
	eng := NewEngine()
	ctx := context.Background()

	_, err := eng.ApplyStockChange(ctx, db, StockChange{ProductID: uuid.Nil, Delta: 1, ChangeType: enums.InventoryChangeRestock})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = eng.ApplyStockChange(ctx, db, StockChange{ProductID: uuid.New(), Delta: 0, ChangeType: enums.InventoryChangeRestock})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = eng.ApplyStockChange(ctx, db, StockChange{ProductID: uuid.New(), Delta: 1, ChangeType: enums.InventoryChangeType("teleport")})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRepositoryListBySale(t *testing.T) {
	db := setupInventoryTestDB(t)
	product := newProduct(t, db, 8)
	eng := NewEngine()
	repo := NewRepository(db)
	ctx := context.Background()

	saleID := uuid.New()
	_, err := eng.ApplyStockChange(ctx, db, StockChange{
		ProductID:  product.ID,
		Delta:      -4,
		ChangeType: enums.InventoryChangeSale,
		SaleID:     &saleID,
	})
	require.NoError(t, err)

	logs, err := repo.ListBySale(ctx, saleID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, product.ID, logs[0].ProductID)

	byProduct, err := repo.ListByProduct(ctx, product.ID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, byProduct)
}
