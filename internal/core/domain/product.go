package domain

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

// Measurements holds weight and dimensions normalized to grams, kilograms and centimetres.
// Nil means unknown.
type Measurements struct {
	WeightG  *float64 `json:"weight_g,omitempty"`
	WeightKg *float64 `json:"weight_kg,omitempty"`
	WidthCm  *float64 `json:"width_cm,omitempty"`
	HeightCm *float64 `json:"height_cm,omitempty"`
	LengthCm *float64 `json:"length_cm,omitempty"`
}

// Override returns m with every field that is set in other replaced by other's value
func (m Measurements) Override(other Measurements) Measurements {
	if other.WeightG != nil {
		m.WeightG = other.WeightG
	}
	if other.WeightKg != nil {
		m.WeightKg = other.WeightKg
	}
	if other.WidthCm != nil {
		m.WidthCm = other.WidthCm
	}
	if other.HeightCm != nil {
		m.HeightCm = other.HeightCm
	}
	if other.LengthCm != nil {
		m.LengthCm = other.LengthCm
	}
	return m
}

// ProductFields are the local catalog fields derived from a marketplace item
type ProductFields struct {
	MLID           string            `json:"ml_id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	OriginalPrice  decimal.Decimal   `json:"original_price"`
	DiscountPrice  decimal.Decimal   `json:"discount_price"`
	StockQuantity  int               `json:"stock_quantity"`
	ImageURL       string            `json:"image_url,omitempty"`
	Specifications map[string]string `json:"specifications"`
	Brand          string            `json:"brand,omitempty"`
	MLFamilyID     string            `json:"ml_family_id,omitempty"`
	Measurements

	// Images are the ordered picture URLs mirrored into product_images
	Images []string `json:"images,omitempty"`
}

// Product is a catalog product as stored locally
type Product struct {
	ID int64 `json:"id"`
	ProductFields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductImage is one mirrored image row, keyed by marketplace id and position
type ProductImage struct {
	MLID     string `json:"ml_id"`
	Position int    `json:"position"`
	URL      string `json:"url"`
}

// ImageRows expands Images into positioned rows
func (p *ProductFields) ImageRows() []ProductImage {
	rows := make([]ProductImage, 0, len(p.Images))
	for i, url := range p.Images {
		rows = append(rows, ProductImage{MLID: p.MLID, Position: i, URL: url})
	}
	return rows
}

// FieldChange is one entry of an update diff
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Diff lists the fields that differ between before and after.
// A nil before yields nil (nothing to compare against).
func Diff(before, after *ProductFields) map[string]FieldChange {
	if before == nil || after == nil {
		return nil
	}
	changes := make(map[string]FieldChange)
	add := func(name string, changed bool, o, n any) {
		if changed {
			changes[name] = FieldChange{Old: o, New: n}
		}
	}

	add("name", before.Name != after.Name, before.Name, after.Name)
	add("description", before.Description != after.Description, before.Description, after.Description)
	add("original_price", !before.OriginalPrice.Equal(after.OriginalPrice),
		before.OriginalPrice.String(), after.OriginalPrice.String())
	add("discount_price", !before.DiscountPrice.Equal(after.DiscountPrice),
		before.DiscountPrice.String(), after.DiscountPrice.String())
	add("stock_quantity", before.StockQuantity != after.StockQuantity, before.StockQuantity, after.StockQuantity)
	add("image_url", before.ImageURL != after.ImageURL, before.ImageURL, after.ImageURL)
	add("brand", before.Brand != after.Brand, before.Brand, after.Brand)
	add("ml_family_id", before.MLFamilyID != after.MLFamilyID, before.MLFamilyID, after.MLFamilyID)
	add("specifications", !maps.Equal(before.Specifications, after.Specifications),
		before.Specifications, after.Specifications)
	add("weight_g", !floatPtrEqual(before.WeightG, after.WeightG), before.WeightG, after.WeightG)
	add("weight_kg", !floatPtrEqual(before.WeightKg, after.WeightKg), before.WeightKg, after.WeightKg)
	add("width_cm", !floatPtrEqual(before.WidthCm, after.WidthCm), before.WidthCm, after.WidthCm)
	add("height_cm", !floatPtrEqual(before.HeightCm, after.HeightCm), before.HeightCm, after.HeightCm)
	add("length_cm", !floatPtrEqual(before.LengthCm, after.LengthCm), before.LengthCm, after.LengthCm)

	return changes
}

// DiffJSON marshals Diff for storage in a sync log entry
func DiffJSON(before, after *ProductFields) []byte {
	changes := Diff(before, after)
	if changes == nil {
		return nil
	}
	b, err := json.Marshal(changes)
	if err != nil {
		return nil
	}
	return b
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
