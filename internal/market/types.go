// Package market holds the canonical listing record, the conversions from the
// two raw retrieval shapes into it, and the per-console filtering and
// aggregation that turn listings into daily statistics.
package market

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultCurrency is used when a source does not report one. Aggregation
// assumes every listing shares it.
const DefaultCurrency = "EUR"

// Listing is one marketplace item after normalization
type Listing struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	IsSold     bool    `json:"is_sold"`
	IsReserved bool    `json:"is_reserved"`
	Currency   string  `json:"currency"`
}

// Available reports whether the listing is neither sold nor reserved
func (l Listing) Available() bool {
	return !l.IsSold && !l.IsReserved
}

// APIFlags carries the status flags of a search API item
type APIFlags struct {
	Sold     bool `json:"sold"`
	Reserved bool `json:"reserved"`
}

// APIContent is the item body of a search API result
type APIContent struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Price    APIPrice `json:"price"`
	Currency string   `json:"currency"`
	Flags    APIFlags `json:"flags"`
}

// RawAPIRecord is one element of the search API results array. Older payloads
// nest the item under "content"; newer ones are flat.
type RawAPIRecord struct {
	Content *APIContent `json:"content"`
	APIContent
}

// Item returns the nested content when present, else the flat record
func (r RawAPIRecord) Item() APIContent {
	if r.Content != nil {
		return *r.Content
	}
	return r.APIContent
}

// APIPrice accepts a bare number, a numeric string, or an
// {"amount": .., "currency": ..} object.
type APIPrice struct {
	Amount   float64
	Currency string
}

// UnmarshalJSON implements json.Unmarshaler
func (p *APIPrice) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		return nil
	}

	switch trimmed[0] {
	case '{':
		var obj struct {
			Amount   json.Number `json:"amount"`
			Currency string      `json:"currency"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		p.Currency = obj.Currency
		if obj.Amount != "" {
			f, err := obj.Amount.Float64()
			if err != nil {
				return err
			}
			p.Amount = f
		}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			// unparsable price text is treated as unknown
			return nil
		}
		p.Amount = f
		return nil
	default:
		return json.Unmarshal(data, &p.Amount)
	}
}

// RawRenderedRecord is what the rendered-page extractor pulls from one card
type RawRenderedRecord struct {
	Href       string
	Title      string
	PriceText  string
	IsSold     bool
	IsReserved bool
}

// ConsoleStats are the aggregate figures of one console for one day. Price
// fields are nil when the underlying price set is empty.
type ConsoleStats struct {
	TotalListings    int      `json:"total_listings" db:"total_listings"`
	AvailableCount   int      `json:"available_count" db:"available_count"`
	SoldCount        int      `json:"sold_count" db:"sold_count"`
	ReservedCount    int      `json:"reserved_count" db:"reserved_count"`
	AvgOfferPrice    *float64 `json:"avg_offer_price" db:"avg_offer_price"`
	MedianOfferPrice *float64 `json:"median_offer_price" db:"median_offer_price"`
	MinOfferPrice    *float64 `json:"min_offer_price" db:"min_offer_price"`
	MaxOfferPrice    *float64 `json:"max_offer_price" db:"max_offer_price"`
	AvgSoldPrice     *float64 `json:"avg_sold_price" db:"avg_sold_price"`
	MedianSoldPrice  *float64 `json:"median_sold_price" db:"median_sold_price"`
}

// DailySnapshot is the full set of console statistics captured for one date
type DailySnapshot struct {
	Date      string                  `json:"date"`
	ScrapedAt string                  `json:"scraped_at"`
	Consoles  map[string]ConsoleStats `json:"consoles"`
}

// DateLayout is the layout of DailySnapshot.Date
const DateLayout = "2006-01-02"
