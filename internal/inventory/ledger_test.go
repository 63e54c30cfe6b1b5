package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopcore-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopcore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopcore-backend/pkg/errors"
)

func TestReserveDecrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, product, 3)
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if got := loadStock(t, db, product); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}
}

func TestReserveRejectsShortStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, product, 3)
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}

	if got := loadStock(t, db, product); got != 2 {
		t.Fatalf("stock must be untouched, got %d", got)
	}
}

func TestReserveNeverOverSellsAfterRival(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 5)

	// A rival checkout got there first and took 3 of the 5 units.
	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, product, 3)
	})
	if err != nil {
		t.Fatalf("rival reserve: %v", err)
	}

	// The guard re-evaluates against the committed stock, so a request the
	// original stock would have covered now loses.
	err = db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, product, 3)
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK after rival, got %v", err)
	}
	if got := loadStock(t, db, product); got != 2 {
		t.Fatalf("stock must never go negative, got %d", got)
	}

	// What is left is still sellable.
	err = db.Transaction(func(tx *gorm.DB) error {
		return Reserve(ctx, tx, product, 2)
	})
	if err != nil {
		t.Fatalf("reserve remainder: %v", err)
	}
	if got := loadStock(t, db, product); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
}

func TestReserveUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	err := db.Transaction(func(tx *gorm.DB) error {
		return Reserve(context.Background(), tx, uuid.New(), 1)
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	err := Reserve(context.Background(), db, uuid.New(), 0)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestReleaseRestoresExactly(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := Reserve(ctx, tx, product, 4); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return Release(ctx, tx, product, 4)
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	if got := loadStock(t, db, product); got != 5 {
		t.Fatalf("expected stock restored to 5, got %d", got)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return dbtest.Open(t, "inventory")
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:    uuid.New(),
		Name:  "widget",
		Price: decimal.NewFromFloat(9.99),
		Stock: stock,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func loadStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}
