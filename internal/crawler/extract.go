package crawler

import (
	"io"
	"strings"

	"sjsage522/retroconsolas/internal/market"
	"sjsage522/retroconsolas/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

const itemLink = "a[href*='/item/']"

// Extractor reads listing cards out of a rendered search page
type Extractor struct {
	cfg           ExtractorConfig
	titleHandlers []FieldHandler
	priceHandlers []FieldHandler
	hrefHandlers  []FieldHandler
}

// NewExtractor builds the field handlers for cfg
func NewExtractor(cfg ExtractorConfig) *Extractor {
	e := &Extractor{cfg: cfg}

	for _, sel := range cfg.TitleSelectors {
		e.titleHandlers = append(e.titleHandlers, textHandler(sel))
	}
	for _, sel := range cfg.PriceSelectors {
		e.priceHandlers = append(e.priceHandlers, textHandler(sel))
	}

	// the card itself, an item link inside it, then the enclosing link
	e.hrefHandlers = []FieldHandler{
		func(s *goquery.Selection) string {
			return itemHref(s.AttrOr("href", ""))
		},
		func(s *goquery.Selection) string {
			return s.Find(itemLink).First().AttrOr("href", "")
		},
		func(s *goquery.Selection) string {
			return s.Closest(itemLink).AttrOr("href", "")
		},
	}

	return e
}

// Extract parses html and returns one record per listing card. Cards are
// located with the first card selector that matches anything.
func (e *Extractor) Extract(html io.Reader) ([]market.RawRenderedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		return nil, errors.NewParsing("browser", "failed to parse rendered page", err)
	}

	cards := e.findCards(doc)
	if cards == nil {
		return nil, nil
	}

	records := make([]market.RawRenderedRecord, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		records = append(records, e.extractCard(card))
	})
	return records, nil
}

func (e *Extractor) findCards(doc *goquery.Document) *goquery.Selection {
	for _, sel := range e.cfg.CardSelectors {
		cards := doc.Find(sel)
		if cards.Length() > 0 {
			return cards
		}
	}
	return nil
}

func (e *Extractor) extractCard(card *goquery.Selection) market.RawRenderedRecord {
	text := strings.ToLower(card.Text())

	return market.RawRenderedRecord{
		Href:       applyHandlers(card, e.hrefHandlers),
		Title:      applyHandlers(card, e.titleHandlers),
		PriceText:  applyHandlers(card, e.priceHandlers),
		IsSold:     containsAny(text, e.cfg.SoldMarkers),
		IsReserved: containsAny(text, e.cfg.ReservedMarkers),
	}
}

// applyHandlers returns the first non-empty value produced by handlers
func applyHandlers(s *goquery.Selection, handlers []FieldHandler) string {
	for _, handler := range handlers {
		if value := handler(s); value != "" {
			return value
		}
	}
	return ""
}

// textHandler reads the visible text of the first element matching sel
func textHandler(sel string) FieldHandler {
	return func(s *goquery.Selection) string {
		return collapseSpace(s.Find(sel).First().Text())
	}
}

// itemHref keeps href only when it points at a listing
func itemHref(href string) string {
	if strings.Contains(href, "/item/") {
		return href
	}
	return ""
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if marker != "" && strings.Contains(text, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
