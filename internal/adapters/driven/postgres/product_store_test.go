package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

func testFields() *domain.ProductFields {
	weight := 1500.0
	return &domain.ProductFields{
		MLID:           "MLB1",
		Name:           "Furadeira",
		Description:    "Furadeira de impacto",
		OriginalPrice:  decimal.RequireFromString("199.90"),
		DiscountPrice:  decimal.RequireFromString("199.90"),
		StockQuantity:  3,
		ImageURL:       "https://img/1.jpg",
		Specifications: map[string]string{"Marca": "Bosch"},
		Brand:          "Bosch",
		Measurements:   domain.Measurements{WeightG: &weight},
		Images:         []string{"https://img/1.jpg", "https://img/2.jpg"},
	}
}

func TestProductStore_UpsertWithImages(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewProductStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("ON CONFLICT (ml_id) DO UPDATE")).
		WithArgs("MLB1", "Furadeira", "Furadeira de impacto", sqlmock.AnyArg(), sqlmock.AnyArg(), 3,
			"https://img/1.jpg", `{"Marca":"Bosch"}`, "Bosch", nil,
			1500.0, nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectExec(q("DELETE FROM product_images")).
		WithArgs("MLB1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("INSERT INTO product_images")).
		WithArgs("MLB1", 0, "https://img/1.jpg").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO product_images")).
		WithArgs("MLB1", 1, "https://img/2.jpg").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	inserted, err := store.UpsertWithImages(context.Background(), testFields())
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductStore_UpsertRollsBackOnImageFailure(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewProductStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO products")).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))
	mock.ExpectExec(q("DELETE FROM product_images")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("INSERT INTO product_images")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	inserted, err := store.UpsertWithImages(context.Background(), testFields())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductStore_ListMarketplaceIDs(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewProductStore(db)

	mock.ExpectQuery(q("SELECT ml_id FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"ml_id"}).AddRow("MLB1").AddRow("MLB2"))

	ids, err := store.ListMarketplaceIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"MLB1", "MLB2"}, ids)
}

func TestProductStore_GetByMarketplaceID(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewProductStore(db)

	mock.ExpectQuery(q("FROM products")).
		WithArgs("MLB1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "ml_id", "name", "description", "original_price", "discount_price", "stock_quantity",
			"image_url", "specifications", "brand", "ml_family_id",
			"weight_g", "weight_kg", "width_cm", "height_cm", "length_cm", "created_at", "updated_at",
		}).AddRow(7, "MLB1", "Furadeira", nil, "199.90", "179.90", 3,
			"https://img/1.jpg", []byte(`{"Marca":"Bosch"}`), "Bosch", "FAM1",
			1500.0, 1.5, nil, nil, nil, time.Now(), time.Now()))
	mock.ExpectQuery(q("FROM product_images")).
		WithArgs("MLB1").
		WillReturnRows(sqlmock.NewRows([]string{"url"}).AddRow("https://img/1.jpg"))

	p, err := store.GetByMarketplaceID(context.Background(), "MLB1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.True(t, p.OriginalPrice.Equal(decimal.RequireFromString("199.9")))
	assert.True(t, p.DiscountPrice.Equal(decimal.RequireFromString("179.9")))
	assert.Equal(t, "Bosch", p.Specifications["Marca"])
	assert.Equal(t, "FAM1", p.MLFamilyID)
	require.NotNil(t, p.WeightKg)
	assert.Equal(t, 1.5, *p.WeightKg)
	assert.Nil(t, p.WidthCm)
	assert.Equal(t, []string{"https://img/1.jpg"}, p.Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductStore_GetByMarketplaceIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewProductStore(db)

	mock.ExpectQuery(q("FROM products")).WillReturnError(sql.ErrNoRows)

	_, err := store.GetByMarketplaceID(context.Background(), "MLB404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
