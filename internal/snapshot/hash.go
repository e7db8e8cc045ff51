// Package snapshot computes the content digest used to decide whether a
// marketplace item changed since its last successful sync.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// record is the canonical form of the sync-relevant fields.
// Field order is fixed by the struct, so the encoding is deterministic.
type record struct {
	Title             string      `json:"title"`
	Price             string      `json:"price"`
	AvailableQuantity *int64      `json:"available_quantity"`
	Condition         string      `json:"condition"`
	Status            string      `json:"status"`
	Description       string      `json:"description"`
	Pictures          string      `json:"pictures"`
	Attributes        []attribute `json:"attributes"`
}

type attribute struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hash returns the hex SHA-256 digest of the item's sync-relevant fields.
// description, when non-blank, takes precedence over the item's own description.
func Hash(item *domain.Item, description string) string {
	sum := sha256.Sum256(canonical(item, description))
	return hex.EncodeToString(sum[:])
}

func canonical(item *domain.Item, description string) []byte {
	rec := record{
		Title:      item.Title,
		Condition:  item.Condition,
		Status:     item.Status,
		Attributes: make([]attribute, 0, len(item.Attributes)),
	}
	if item.Price != nil {
		rec.Price = item.Price.String()
	}
	if item.AvailableQuantity.Valid {
		q := item.AvailableQuantity.Value
		rec.AvailableQuantity = &q
	}

	rec.Description = description
	if strings.TrimSpace(rec.Description) == "" {
		rec.Description = item.DescriptionText()
	}

	urls := make([]string, 0, len(item.Pictures))
	for _, p := range item.Pictures {
		urls = append(urls, p.PreferredURL())
	}
	rec.Pictures = strings.Join(urls, ",")

	for _, a := range item.Attributes {
		rec.Attributes = append(rec.Attributes, attribute(a))
	}

	// record holds only strings and ints
	b, _ := json.Marshal(rec)
	return b
}
