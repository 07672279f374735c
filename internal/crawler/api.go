package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sjsage522/retroconsolas/config"
	"sjsage522/retroconsolas/helpers"
	"sjsage522/retroconsolas/internal/market"
	"sjsage522/retroconsolas/logger"
	"sjsage522/retroconsolas/pkg/errors"
	"sjsage522/retroconsolas/services/cache"
)

// APIConfig holds the search API parameters
type APIConfig struct {
	BaseURL    string
	Latitude   float64
	Longitude  float64
	DistanceKm int
	PageSize   int
	MaxPages   int
	Timeout    time.Duration
	CacheTTL   time.Duration
}

// APIConfigFrom builds the API parameters from the loaded configuration
func APIConfigFrom(cfg *config.Config) APIConfig {
	return APIConfig{
		BaseURL:    cfg.APIBaseURL,
		Latitude:   cfg.Latitude,
		Longitude:  cfg.Longitude,
		DistanceKm: cfg.DistanceKm,
		PageSize:   cfg.PageSize,
		MaxPages:   cfg.MaxPagesPerQry,
		Timeout:    cfg.RequestTimeout,
		CacheTTL:   cfg.APICacheTTL,
	}
}

var apiHeaders = map[string]string{
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "es-ES,es;q=0.9",
	"Origin":          "https://es.wallapop.com",
	"Referer":         "https://es.wallapop.com/",
}

// searchResponse covers both result envelopes the API has used
type searchResponse struct {
	SearchObjects []market.RawAPIRecord `json:"search_objects"`
	Items         []market.RawAPIRecord `json:"items"`
}

func (r searchResponse) records() []market.RawAPIRecord {
	if r.SearchObjects != nil {
		return r.SearchObjects
	}
	return r.Items
}

// APIStrategy queries the marketplace's JSON search endpoint
type APIStrategy struct {
	cfg      APIConfig
	client   *http.Client
	governor *Governor
	cacheSvc cache.CacheService
	log      *logger.Logger
}

// NewAPIStrategy creates the primary strategy. cacheSvc may be nil.
func NewAPIStrategy(cfg APIConfig, governor *Governor, cacheSvc cache.CacheService) *APIStrategy {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	return &APIStrategy{
		cfg:      cfg,
		client:   helpers.NewHTTPClient(cfg.Timeout),
		governor: governor,
		cacheSvc: cacheSvc,
		log:      logger.ForStrategy("api"),
	}
}

// GetName returns the strategy's name
func (s *APIStrategy) GetName() string {
	return "api"
}

// Search runs every query of the profile and returns the union of the
// results. A blocked response (403/429) aborts the whole search with a
// definitive error; any other failure only skips the query it happened in.
func (s *APIStrategy) Search(ctx context.Context, profile config.ConsoleProfile) ([]market.Listing, error) {
	set := market.NewListingSet()

	for _, query := range profile.SearchQueries {
		before := set.Len()
		if err := s.searchQuery(ctx, query, set); err != nil {
			if errors.IsDefinitive(err) {
				s.log.Warn().Str("query", query).Err(err).Msg("API blocked")
				return set.Listings(), err
			}
			if ctx.Err() != nil {
				return set.Listings(), ctx.Err()
			}
			s.log.Warn().Str("query", query).Err(err).Msg("Query skipped")
			continue
		}

		s.log.Debug().
			Str("query", query).
			Int("new", set.Len()-before).
			Msg("Query done")

		if err := s.governor.Pause(ctx); err != nil {
			return set.Listings(), err
		}
	}

	return set.Listings(), nil
}

// searchQuery pages through the results of one query. Records of pages
// fetched before a failure stay in set.
func (s *APIStrategy) searchQuery(ctx context.Context, query string, set *market.ListingSet) error {
	for page := 0; page < s.cfg.MaxPages; page++ {
		records, err := s.fetchPage(ctx, query, page*s.cfg.PageSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			break
		}

		for _, record := range records {
			set.Add(market.NormalizeAPI(record))
		}

		if len(records) < s.cfg.PageSize {
			break
		}
		if err := s.governor.Pause(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SearchURL builds the request URL of one result page
func (s *APIStrategy) SearchURL(query string, start int) (string, error) {
	params := url.Values{}
	params.Set("keywords", query)
	params.Set("latitude", strconv.FormatFloat(s.cfg.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(s.cfg.Longitude, 'f', -1, 64))
	params.Set("distance_in_km", strconv.Itoa(s.cfg.DistanceKm))
	params.Set("filters_source", "search_box")
	params.Set("order_by", "most_relevance")
	params.Set("start", strconv.Itoa(start))

	return helpers.BuildURL(s.cfg.BaseURL+"/general/search", params)
}

func (s *APIStrategy) fetchPage(ctx context.Context, query string, start int) ([]market.RawAPIRecord, error) {
	key := s.pageKey(query, start)

	body, cached := s.cachedPage(key)
	if !cached {
		pageURL, err := s.SearchURL(query, start)
		if err != nil {
			return nil, errors.NewNetwork("api", "failed to build search URL", err)
		}

		body, err = helpers.FetchWithHeaders(ctx, s.client, "api", pageURL, apiHeaders)
		if err != nil {
			return nil, err
		}
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewParsing("api", fmt.Sprintf("invalid search response at start=%d", start), err)
	}

	if !cached {
		s.storePage(key, body)
	}
	return resp.records(), nil
}

// pageKey identifies a result page by everything that shapes its content
func (s *APIStrategy) pageKey(query string, start int) string {
	return cache.Key("api",
		s.cfg.BaseURL,
		strconv.FormatFloat(s.cfg.Latitude, 'f', -1, 64),
		strconv.FormatFloat(s.cfg.Longitude, 'f', -1, 64),
		strconv.Itoa(s.cfg.DistanceKm),
		query,
		strconv.Itoa(start),
	)
}

func (s *APIStrategy) cachedPage(key string) ([]byte, bool) {
	if s.cacheSvc == nil || s.cfg.CacheTTL <= 0 {
		return nil, false
	}
	body, err := s.cacheSvc.Get(key)
	if err != nil {
		logger.ForCache().Warn().Err(errors.NewCache("api", "page lookup failed", err)).Str("key", key).Msg("Cache unavailable")
		return nil, false
	}
	if len(body) == 0 {
		return nil, false
	}
	s.log.Debug().Str("key", key).Msg("Cache hit")
	return body, true
}

func (s *APIStrategy) storePage(key string, body []byte) {
	if s.cacheSvc == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	if err := s.cacheSvc.Set(key, body, s.cfg.CacheTTL); err != nil {
		logger.ForCache().Warn().Err(errors.NewCache("api", "page store failed", err)).Str("key", key).Msg("Failed to cache search page")
	}
}
