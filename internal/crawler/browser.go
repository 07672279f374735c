package crawler

import (
	"context"
	"net/url"
	"strings"

	"sjsage522/retroconsolas/config"
	"sjsage522/retroconsolas/helpers"
	"sjsage522/retroconsolas/internal/market"
	"sjsage522/retroconsolas/logger"
	"sjsage522/retroconsolas/pkg/errors"
)

// BrowserSession renders pages in a real browser
type BrowserSession interface {
	// Render returns the HTML of pageURL after client-side rendering
	Render(ctx context.Context, pageURL string) (string, error)

	// Close releases the browser
	Close() error
}

// SessionFactory starts a browser session
type SessionFactory func(ctx context.Context) (BrowserSession, error)

// DisabledSessionFactory refuses to start any session, used where no
// browser is installed
func DisabledSessionFactory(ctx context.Context) (BrowserSession, error) {
	return nil, errors.NewSession("browser", "browser fallback disabled", nil)
}

// BrowserStrategy searches through the rendered search page
type BrowserStrategy struct {
	searchURL  string
	newSession SessionFactory
	extractor  *Extractor
	governor   *Governor
	log        *logger.Logger
}

// NewBrowserStrategy creates the fallback strategy
func NewBrowserStrategy(searchURL string, newSession SessionFactory, extractor *Extractor, governor *Governor) *BrowserStrategy {
	return &BrowserStrategy{
		searchURL:  searchURL,
		newSession: newSession,
		extractor:  extractor,
		governor:   governor,
		log:        logger.ForStrategy("browser"),
	}
}

// GetName returns the strategy's name
func (s *BrowserStrategy) GetName() string {
	return "browser"
}

// Search opens one browser session for all queries of the profile. A query
// that fails contributes nothing; a session that cannot start yields no
// listings and a session error. The session is always closed.
func (s *BrowserStrategy) Search(ctx context.Context, profile config.ConsoleProfile) ([]market.Listing, error) {
	session, err := s.newSession(ctx)
	if err != nil {
		if errors.TypeOf(err) != errors.ErrorTypeSession {
			err = errors.NewSession("browser", "failed to start browser session", err)
		}
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("Failed to close browser session")
		}
	}()

	set := market.NewListingSet()
	for _, query := range profile.SearchQueries {
		found, err := s.searchQuery(ctx, session, query, set)
		if err != nil {
			if ctx.Err() != nil {
				return set.Listings(), ctx.Err()
			}
			s.log.Warn().Str("query", query).Err(err).Msg("Query skipped")
			continue
		}

		s.log.Info().Str("query", query).Int("found", found).Msg("Query rendered")

		if err := s.governor.Pause(ctx); err != nil {
			return set.Listings(), err
		}
	}

	return set.Listings(), nil
}

// SearchURL builds the search page URL of a query
func (s *BrowserStrategy) SearchURL(query string) (string, error) {
	return helpers.BuildURL(s.searchURL, url.Values{"keywords": {query}})
}

// searchQuery renders one query and adds its listings to set, returning
// the number of valid listings found on the page
func (s *BrowserStrategy) searchQuery(ctx context.Context, session BrowserSession, query string, set *market.ListingSet) (int, error) {
	pageURL, err := s.SearchURL(query)
	if err != nil {
		return 0, errors.NewNetwork("browser", "failed to build search URL", err)
	}

	html, err := session.Render(ctx, pageURL)
	if err != nil {
		return 0, err
	}

	records, err := s.extractor.Extract(strings.NewReader(html))
	if err != nil {
		return 0, err
	}

	found := 0
	for _, record := range records {
		listing, ok := market.NormalizeRendered(record)
		if !ok {
			continue
		}
		found++
		set.Add(listing)
	}
	return found, nil
}
