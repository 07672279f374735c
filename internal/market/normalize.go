package market

import (
	"regexp"
	"strconv"
	"strings"
)

var nonPriceChars = regexp.MustCompile(`[^\d,.]`)

// NormalizeAPI maps a search API record into a Listing
func NormalizeAPI(raw RawAPIRecord) Listing {
	item := raw.Item()

	currency := item.Currency
	if currency == "" {
		currency = item.Price.Currency
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	return Listing{
		ID:         item.ID,
		Title:      item.Title,
		Price:      nonNegative(item.Price.Amount),
		IsSold:     item.Flags.Sold,
		IsReserved: item.Flags.Reserved,
		Currency:   currency,
	}
}

// NormalizeRendered maps a rendered-page card into a Listing. Cards without a
// title or a positive price are rejected.
func NormalizeRendered(raw RawRenderedRecord) (Listing, bool) {
	title := strings.TrimSpace(raw.Title)
	price := ParsePrice(raw.PriceText)
	if title == "" || price <= 0 {
		return Listing{}, false
	}

	id := ItemIDFromHref(raw.Href)
	if id == "" {
		id = SyntheticID(title, price)
	}

	return Listing{
		ID:         id,
		Title:      title,
		Price:      price,
		IsSold:     raw.IsSold,
		IsReserved: raw.IsReserved,
		Currency:   DefaultCurrency,
	}, true
}

// ParsePrice converts "1.234,50 €" style text into 1234.5. Dots are thousands
// separators and the comma is the decimal mark. Unparsable text yields 0.
func ParsePrice(text string) float64 {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return nonNegative(price)
}

// ItemIDFromHref returns the listing identifier of an ".../item/<id>?..." link
func ItemIDFromHref(href string) string {
	i := strings.LastIndex(href, "/item/")
	if i < 0 {
		return ""
	}
	rest, _, _ := strings.Cut(href[i+len("/item/"):], "?")
	rest, _, _ = strings.Cut(rest, "/")
	return rest
}

// SyntheticID builds the fallback dedup key of a card with no identifier.
// Distinct listings with equal title and price collapse into one.
func SyntheticID(title string, price float64) string {
	return title + "_" + strconv.FormatFloat(price, 'f', -1, 64)
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
