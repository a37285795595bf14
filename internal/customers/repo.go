package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaline/pos-backend/pkg/db/models"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
)

// Repository manages customer rows and their loyalty balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	AwardPoints(ctx context.Context, id uuid.UUID, points int) error
	DeductPoints(ctx context.Context, id uuid.UUID, points int) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customer repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.UnknownReference("customer", id.String())
		}
		return nil, err
	}
	return &customer, nil
}

// AwardPoints increments the loyalty balance.
func (r *repository) AwardPoints(ctx context.Context, id uuid.UUID, points int) error {
	if points <= 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE customers
		SET points = points + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, points, id)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "award points")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.UnknownReference("customer", id.String())
	}
	return nil
}

// DeductPoints removes up to `points` from the balance, clamping at zero so a
// reversal can never drive it negative. It returns how many points were
// actually removed; the caller decides what to do with any shortfall.
func (r *repository) DeductPoints(ctx context.Context, id uuid.UUID, points int) (int, error) {
	if points <= 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE customers
		SET points = points - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND points >= ?
	`, points, id, points)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "deduct points")
	}
	if res.RowsAffected > 0 {
		return points, nil
	}

	customer, err := r.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	applied := customer.Points
	if applied == 0 {
		return 0, nil
	}
	zero := r.db.WithContext(ctx).Exec(`
		UPDATE customers
		SET points = 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id)
	if zero.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, zero.Error, "deduct points")
	}
	return applied, nil
}
