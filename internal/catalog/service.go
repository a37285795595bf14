package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/pos-backend/internal/inventory"
	pkgdb "github.com/mercaline/pos-backend/pkg/db"
	"github.com/mercaline/pos-backend/pkg/db/models"
	"github.com/mercaline/pos-backend/pkg/enums"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
	"github.com/mercaline/pos-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog reads and the stock operations that do not belong
// to a sale.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ListProductsResult, error)
	LowStock(ctx context.Context, limit int) ([]models.Product, error)
	Restock(ctx context.Context, input RestockInput) (*models.InventoryLog, error)
	AdjustStock(ctx context.Context, input AdjustStockInput) (*models.InventoryLog, error)
	InventoryHistory(ctx context.Context, productID uuid.UUID, limit int) ([]models.InventoryLog, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	engine  inventory.Engine
	invRepo inventory.Repository
}

// NewService builds a catalog service with the required dependencies.
func NewService(repo Repository, tx txRunner, engine inventory.Engine, invRepo inventory.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if engine == nil {
		return nil, fmt.Errorf("inventory engine required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, tx: tx, engine: engine, invRepo: invRepo}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	input.SKU = strings.TrimSpace(input.SKU)
	input.Name = strings.TrimSpace(input.Name)

	if input.SKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.CostCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must be positive")
	}
	if input.PriceCents <= input.CostCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must exceed cost")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	if input.MinStock <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min stock must be positive")
	}

	product := &models.Product{
		ID:          uuid.New(),
		SKU:         input.SKU,
		Name:        input.Name,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		SupplierID:  input.SupplierID,
		PriceCents:  input.PriceCents,
		CostCents:   input.CostCents,
		Stock:       input.Stock,
		MinStock:    input.MinStock,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ListProductsResult, error) {
	products, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, err
	}

	limit := pagination.NormalizeLimit(input.Limit)
	result := &ListProductsResult{Products: products}
	if len(products) > limit {
		result.Products = products[:limit]
		last := result.Products[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func (s *service) LowStock(ctx context.Context, limit int) ([]models.Product, error) {
	return s.repo.ListLowStock(ctx, limit)
}

func (s *service) Restock(ctx context.Context, input RestockInput) (*models.InventoryLog, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}

	var log *models.InventoryLog
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		log, err = s.engine.ApplyStockChange(ctx, tx, inventory.StockChange{
			ProductID:  input.ProductID,
			Delta:      input.Quantity,
			ChangeType: enums.InventoryChangeRestock,
			EmployeeID: employeeRef(input.EmployeeID),
			Reason:     input.Reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

func (s *service) AdjustStock(ctx context.Context, input AdjustStockInput) (*models.InventoryLog, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment must be non-zero")
	}

	changeType := enums.InventoryChangeAdjustment
	if input.Damage {
		if input.Delta > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "damage write-offs must decrease stock")
		}
		changeType = enums.InventoryChangeDamage
	}

	var log *models.InventoryLog
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		log, err = s.engine.ApplyStockChange(ctx, tx, inventory.StockChange{
			ProductID:  input.ProductID,
			Delta:      input.Delta,
			ChangeType: changeType,
			EmployeeID: employeeRef(input.EmployeeID),
			Reason:     input.Reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

func (s *service) InventoryHistory(ctx context.Context, productID uuid.UUID, limit int) ([]models.InventoryLog, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.invRepo.ListByProduct(ctx, productID, limit)
}

func employeeRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	ref := id
	return &ref
}
