package crawler

import (
	"context"

	"sjsage522/retroconsolas/config"
	"sjsage522/retroconsolas/internal/market"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one way of retrieving the listings of a console
type Strategy interface {
	// Search returns the deduplicated listings of every query of the profile
	Search(ctx context.Context, profile config.ConsoleProfile) ([]market.Listing, error)

	// GetName returns the strategy's name for logging and identification
	GetName() string
}

// FieldHandler extracts one field from a listing card, returning "" on a miss
type FieldHandler func(*goquery.Selection) string

// ExtractorConfig lists the CSS selectors and marker words used to read
// rendered search results. Every list is tried in order.
type ExtractorConfig struct {
	// CardSelectors locate listing cards; the first selector with any match is used
	CardSelectors []string
	// TitleSelectors and PriceSelectors are searched inside a card; the first
	// non-empty text wins
	TitleSelectors []string
	PriceSelectors []string
	// SoldMarkers and ReservedMarkers are matched case-insensitively against
	// the card text
	SoldMarkers     []string
	ReservedMarkers []string
}

// DefaultExtractorConfig returns the selectors known to match the search page
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		CardSelectors: []string{
			"tsl-public-card",
			"[class*='ItemCard']",
			"a[href*='/item/']",
		},
		TitleSelectors:  []string{"[class*='title']", "p", "span"},
		PriceSelectors:  []string{"[class*='price']", "[class*='Price']"},
		SoldMarkers:     []string{"vendido"},
		ReservedMarkers: []string{"reservado"},
	}
}
