package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Item is a marketplace listing as returned by GET /items/{id}.
// Every field is optional; consumers apply explicit fallbacks.
type Item struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Price             *decimal.Decimal   `json:"price"`
	CurrencyID        string             `json:"currency_id"`
	AvailableQuantity FlexInt            `json:"available_quantity"`
	Condition         string             `json:"condition"`
	Status            string             `json:"status"`
	RawDescription    json.RawMessage    `json:"description,omitempty"`
	Pictures          []Picture          `json:"pictures"`
	Attributes        []Attribute        `json:"attributes"`
	ParentItemID      FlexString         `json:"parent_item_id"`
	FamilyID          FlexString         `json:"family_id"`
	CategoryID        FlexString         `json:"category_id"`
	Shipping          *Shipping          `json:"shipping,omitempty"`
	Package           *PackageDimensions `json:"package,omitempty"`

	// Not sync-relevant
	SellerID     FlexString `json:"seller_id"`
	Permalink    string     `json:"permalink"`
	SoldQuantity int        `json:"sold_quantity"`
	Visits       int        `json:"visits"`
	LastUpdated  string     `json:"last_updated"`
}

// DescriptionText returns the item's own description when present, either as a
// plain string or as an object carrying plain_text.
func (i *Item) DescriptionText() string {
	raw := bytes.TrimSpace(i.RawDescription)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj ItemDescription
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Text()
	}
	return ""
}

// Picture is one listing image
type Picture struct {
	ID        string `json:"id,omitempty"`
	URL       string `json:"url,omitempty"`
	SecureURL string `json:"secure_url,omitempty"`
}

// PreferredURL returns the secure URL, falling back to the plain URL
func (p Picture) PreferredURL() string {
	if p.SecureURL != "" {
		return p.SecureURL
	}
	return p.URL
}

// Attribute is a free-text name/value pair attached to a listing
type Attribute struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Value string `json:"value_name"`
}

// Shipping carries the structured shipping data of a listing.
// Dimensions uses the marketplace format "HxWxL,weight" in cm and grams.
type Shipping struct {
	Mode       string `json:"mode,omitempty"`
	Dimensions string `json:"dimensions,omitempty"`
}

// Measure is a value paired with its unit
type Measure struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// PackageDimensions is the structured package data some listings expose
type PackageDimensions struct {
	Height *Measure `json:"height,omitempty"`
	Width  *Measure `json:"width,omitempty"`
	Length *Measure `json:"length,omitempty"`
	Weight *Measure `json:"weight,omitempty"`
}

// ItemDescription is the response of GET /items/{id}/description
type ItemDescription struct {
	PlainText string `json:"plain_text"`
	Body      string `json:"text"`
}

// Text returns plain_text, falling back to text
func (d ItemDescription) Text() string {
	if d.PlainText != "" {
		return d.PlainText
	}
	return d.Body
}

// SearchPage is the response of GET /users/{sellerId}/items/search
type SearchPage struct {
	Results []string `json:"results"`
	Paging  struct {
		Total  int `json:"total"`
		Offset int `json:"offset"`
		Limit  int `json:"limit"`
	} `json:"paging"`
}

// FlexInt decodes a number or numeric string; anything else leaves it invalid
type FlexInt struct {
	Value int64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler without ever failing
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	*f = FlexInt{}
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = FlexInt{Value: n, Valid: true}
		return nil
	}
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexInt{Value: int64(x), Valid: true}
	}
	return nil
}

// MarshalJSON renders the value or null
func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(f.Value, 10)), nil
}

// FlexString decodes a string or a bare number into a string
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var out string
		if err := json.Unmarshal(b, &out); err != nil {
			return err
		}
		*f = FlexString(out)
		return nil
	}
	*f = FlexString(s)
	return nil
}

// String returns the underlying string
func (f FlexString) String() string {
	return string(f)
}
