package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/pos-backend/pkg/db/models"
	"github.com/mercaline/pos-backend/pkg/enums"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
	"github.com/mercaline/pos-backend/pkg/pagination"
)

// Repository persists sale headers and their immutable line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SaleStatus) error
	List(ctx context.Context, input ListSalesInput) ([]models.Sale, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.UnknownReference("sale", id.String())
		}
		return nil, err
	}
	return &sale, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SaleStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.UnknownReference("sale", id.String())
	}
	return nil
}

func (r *repository) List(ctx context.Context, input ListSalesInput) ([]models.Sale, error) {
	query := r.db.WithContext(ctx).Model(&models.Sale{}).Preload("Items")

	if input.CustomerID != nil {
		query = query.Where("customer_id = ?", *input.CustomerID)
	}
	if input.Status != nil {
		query = query.Where("status = ?", *input.Status)
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(pagination.SQLCondition, cursor.Args()...)
	}

	var salesRows []models.Sale
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(input.Limit)).
		Find(&salesRows).Error
	if err != nil {
		return nil, err
	}
	return salesRows, nil
}
