package normalisers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// brandNames are the folded attribute names that carry the brand
var brandNames = map[string]struct{}{
	"marca": {},
	"brand": {},
}

// Map converts a marketplace item into local product fields.
// description, when non-blank, takes precedence over the item's own description.
func Map(item *domain.Item, description string) *domain.ProductFields {
	fields := &domain.ProductFields{
		MLID:           item.ID,
		Name:           mapName(item),
		Description:    mapDescription(item, description),
		StockQuantity:  mapStock(item.AvailableQuantity),
		Specifications: make(map[string]string, len(item.Attributes)),
		MLFamilyID:     firstNonEmpty(item.ParentItemID.String(), item.FamilyID.String(), item.CategoryID.String()),
	}

	price := decimal.Zero
	if item.Price != nil {
		price = *item.Price
	}
	fields.OriginalPrice = price
	fields.DiscountPrice = price

	for _, p := range item.Pictures {
		if url := p.PreferredURL(); url != "" {
			fields.Images = append(fields.Images, url)
		}
	}
	if len(fields.Images) > 0 {
		fields.ImageURL = fields.Images[0]
	}

	for _, attr := range item.Attributes {
		key := attr.Name
		if key == "" {
			key = attr.ID
		}
		if key == "" {
			continue
		}
		fields.Specifications[key] = attr.Value
		if fields.Brand == "" && isBrand(attr) {
			fields.Brand = strings.TrimSpace(attr.Value)
		}
	}

	fields.Measurements = Extract(item.Attributes).Override(NormalizeDimensions(item.Shipping, item.Package))
	return fields
}

func mapName(item *domain.Item) string {
	if name := strings.TrimSpace(item.Title); name != "" {
		return name
	}
	return fmt.Sprintf("Produto ML %s", item.ID)
}

func mapDescription(item *domain.Item, description string) string {
	if strings.TrimSpace(description) != "" {
		return description
	}
	if own := item.DescriptionText(); strings.TrimSpace(own) != "" {
		return own
	}
	return fmt.Sprintf("Produto importado do Mercado Livre (%s)", item.ID)
}

func mapStock(q domain.FlexInt) int {
	if !q.Valid || q.Value < 0 {
		return 0
	}
	return int(q.Value)
}

func isBrand(attr domain.Attribute) bool {
	if strings.EqualFold(attr.ID, "BRAND") {
		return true
	}
	_, ok := brandNames[Fold(attr.Name)]
	return ok
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
