package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ProductStore = (*ProductStore)(nil)

// ProductStore implements driven.ProductStore on the catalog tables
type ProductStore struct {
	db *DB
}

// NewProductStore creates a new ProductStore
func NewProductStore(db *DB) *ProductStore {
	return &ProductStore{db: db}
}

// UpsertWithImages writes the product keyed on ml_id and replaces its image rows
// in one transaction. inserted reports whether the product row is new.
func (s *ProductStore) UpsertWithImages(ctx context.Context, fields *domain.ProductFields) (bool, error) {
	specs := fields.Specifications
	if specs == nil {
		specs = map[string]string{}
	}
	specsJSON, err := json.Marshal(specs)
	if err != nil {
		return false, fmt.Errorf("marshal specifications: %w", err)
	}

	upsert := `
		INSERT INTO products (
			ml_id, name, description, original_price, discount_price, stock_quantity,
			image_url, specifications, brand, ml_family_id,
			weight_g, weight_kg, width_cm, height_cm, length_cm, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (ml_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			original_price = EXCLUDED.original_price,
			discount_price = EXCLUDED.discount_price,
			stock_quantity = EXCLUDED.stock_quantity,
			image_url = EXCLUDED.image_url,
			specifications = EXCLUDED.specifications,
			brand = EXCLUDED.brand,
			ml_family_id = EXCLUDED.ml_family_id,
			weight_g = EXCLUDED.weight_g,
			weight_kg = EXCLUDED.weight_kg,
			width_cm = EXCLUDED.width_cm,
			height_cm = EXCLUDED.height_cm,
			length_cm = EXCLUDED.length_cm,
			updated_at = NOW()
		RETURNING (xmax = 0)
	`

	var inserted bool
	err = s.db.Transaction(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, upsert,
			fields.MLID,
			fields.Name,
			fields.Description,
			fields.OriginalPrice,
			fields.DiscountPrice,
			fields.StockQuantity,
			nullIfEmpty(fields.ImageURL),
			string(specsJSON),
			nullIfEmpty(fields.Brand),
			nullIfEmpty(fields.MLFamilyID),
			nullable(fields.WeightG),
			nullable(fields.WeightKg),
			nullable(fields.WidthCm),
			nullable(fields.HeightCm),
			nullable(fields.LengthCm),
		).Scan(&inserted)
		if err != nil {
			return fmt.Errorf("upsert product: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM product_images WHERE ml_id = $1`, fields.MLID); err != nil {
			return fmt.Errorf("clear product images: %w", err)
		}
		for _, img := range fields.ImageRows() {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO product_images (ml_id, position, url) VALUES ($1, $2, $3)`,
				img.MLID, img.Position, img.URL,
			)
			if err != nil {
				return fmt.Errorf("insert product image %d: %w", img.Position, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// ListMarketplaceIDs returns the ml_id of every product linked to the marketplace
func (s *ProductStore) ListMarketplaceIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ml_id FROM products WHERE ml_id IS NOT NULL ORDER BY ml_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetByMarketplaceID retrieves a product and its images
func (s *ProductStore) GetByMarketplaceID(ctx context.Context, mlID string) (*domain.Product, error) {
	query := `
		SELECT id, ml_id, name, description, original_price, discount_price, stock_quantity,
			   image_url, specifications, brand, ml_family_id,
			   weight_g, weight_kg, width_cm, height_cm, length_cm, created_at, updated_at
		FROM products
		WHERE ml_id = $1
	`

	var p domain.Product
	var description, imageURL, brand, familyID sql.NullString
	var specsJSON []byte
	var weightG, weightKg, widthCm, heightCm, lengthCm sql.Null[float64]

	err := s.db.QueryRowContext(ctx, query, mlID).Scan(
		&p.ID,
		&p.MLID,
		&p.Name,
		&description,
		&p.OriginalPrice,
		&p.DiscountPrice,
		&p.StockQuantity,
		&imageURL,
		&specsJSON,
		&brand,
		&familyID,
		&weightG,
		&weightKg,
		&widthCm,
		&heightCm,
		&lengthCm,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.ImageURL = imageURL.String
	p.Brand = brand.String
	p.MLFamilyID = familyID.String
	p.WeightG = ptr(weightG)
	p.WeightKg = ptr(weightKg)
	p.WidthCm = ptr(widthCm)
	p.HeightCm = ptr(heightCm)
	p.LengthCm = ptr(lengthCm)

	if len(specsJSON) > 0 {
		if err := json.Unmarshal(specsJSON, &p.Specifications); err != nil {
			return nil, fmt.Errorf("unmarshal specifications: %w", err)
		}
	}

	images, err := s.images(ctx, mlID)
	if err != nil {
		return nil, err
	}
	p.Images = images

	return &p, nil
}

func (s *ProductStore) images(ctx context.Context, mlID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM product_images WHERE ml_id = $1 ORDER BY position`, mlID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}
