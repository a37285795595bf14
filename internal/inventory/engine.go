package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/pos-backend/pkg/db/models"
	"github.com/mercaline/pos-backend/pkg/enums"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
)

// StockChange describes one mutation to be applied through the engine.
type StockChange struct {
	ProductID  uuid.UUID
	Delta      int
	ChangeType enums.InventoryChangeType
	SaleID     *uuid.UUID
	EmployeeID *uuid.UUID
	Reason     *string
}

// Engine is the only writer of products.stock. Every mutation runs inside the
// caller's transaction and appends exactly one inventory_logs row, so the
// per-product log chain stays gapless.
type Engine interface {
	ApplyStockChange(ctx context.Context, tx *gorm.DB, change StockChange) (*models.InventoryLog, error)
}

type engine struct{}

// NewEngine returns the default stock mutation engine.
func NewEngine() Engine {
	return engine{}
}

func (engine) ApplyStockChange(ctx context.Context, tx *gorm.DB, change StockChange) (*models.InventoryLog, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock change")
	}
	if change.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if change.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock change must be non-zero")
	}
	if !change.ChangeType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory change type")
	}

	if change.Delta < 0 {
		need := -change.Delta
		res := tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock = stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND stock >= ?
		`, need, change.ProductID, need)
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
		}
		if res.RowsAffected == 0 {
			available, err := currentStock(ctx, tx, change.ProductID)
			if err != nil {
				return nil, err
			}
			return nil, pkgerrors.InsufficientStock(change.ProductID.String(), need, available)
		}
	} else {
		res := tx.WithContext(ctx).Exec(`
			UPDATE products
			SET stock = stock + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, change.Delta, change.ProductID)
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment stock")
		}
		if res.RowsAffected == 0 {
			return nil, pkgerrors.UnknownReference("product", change.ProductID.String())
		}
	}

	// Read back inside the same transaction so previous/new reflect the value
	// the guarded update actually committed against.
	newStock, err := currentStock(ctx, tx, change.ProductID)
	if err != nil {
		return nil, err
	}

	log := &models.InventoryLog{
		ID:             uuid.New(),
		ProductID:      change.ProductID,
		SaleID:         change.SaleID,
		EmployeeID:     change.EmployeeID,
		ChangeType:     change.ChangeType,
		QuantityChange: change.Delta,
		PreviousStock:  newStock - change.Delta,
		NewStock:       newStock,
		Reason:         change.Reason,
	}
	if err := tx.WithContext(ctx).Create(log).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append inventory log")
	}
	return log, nil
}

func currentStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error) {
	var product models.Product
	err := tx.WithContext(ctx).
		Select("id", "stock").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.UnknownReference("product", productID.String())
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product stock")
	}
	return product.Stock, nil
}
