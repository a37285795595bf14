package customers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercaline/pos-backend/pkg/db/models"
	pkgerrors "github.com/mercaline/pos-backend/pkg/errors"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT UNIQUE,
  phone TEXT,
  points INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func newCustomer(t *testing.T, repo Repository, points int) *models.Customer {
	t.Helper()

	customer := &models.Customer{
		FirstName: "Ada",
		LastName:  "Palmer",
		Points:    points,
	}
	require.NoError(t, repo.Create(context.Background(), customer))
	return customer
}

func TestAwardAndDeductPoints(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	customer := newCustomer(t, repo, 0)

	require.NoError(t, repo.AwardPoints(ctx, customer.ID, 10))

	applied, err := repo.DeductPoints(ctx, customer.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, applied)

	reloaded, err := repo.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, reloaded.Points)
}

func TestDeductPointsClampsAtZero(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	customer := newCustomer(t, repo, 3)

	applied, err := repo.DeductPoints(ctx, customer.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	reloaded, err := repo.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Zero(t, reloaded.Points)

	applied, err = repo.DeductPoints(ctx, customer.ID, 5)
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestAwardPointsUnknownCustomer(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)

	err := repo.AwardPoints(context.Background(), uuid.New(), 5)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestFindByIDNotFound(t *testing.T) {
	db := setupCustomersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
