package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents payload or markup parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeBlocked represents a search channel refusing further requests (403/429)
	ErrorTypeBlocked ErrorType = "blocked"
	// ErrorTypeSession represents browser session setup errors
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypePersistence represents snapshot storage errors
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlerError represents a retrieval-specific error
type CrawlerError struct {
	Type       ErrorType
	Provider   string
	Message    string
	StatusCode int
	Err        error
	Time       time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsDefinitive reports whether the error invalidates the whole attempt of a
// strategy for a console rather than a single query.
func (e *CrawlerError) IsDefinitive() bool {
	return e.Type == ErrorTypeBlocked
}

// New creates a new CrawlerError
func New(errType ErrorType, provider, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeNetwork, provider, message, err)
}

// NewHTTPStatus classifies a non-OK response. 403 and 429 mean the channel is
// blocked; any other status is an ordinary network error.
func NewHTTPStatus(provider string, status int) *CrawlerError {
	errType := ErrorTypeNetwork
	if status == http.StatusForbidden || status == http.StatusTooManyRequests {
		errType = ErrorTypeBlocked
	}
	e := New(errType, provider, fmt.Sprintf("unexpected status code: %d", status), nil)
	e.StatusCode = status
	return e
}

// NewParsing creates a new parsing error
func NewParsing(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, provider, message, err)
}

// NewSession creates a new browser session error
func NewSession(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeSession, provider, message, err)
}

// NewCache creates a new cache error
func NewCache(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, provider, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(provider, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, provider, message, err)
}

// NewPersistence creates a new persistence error
func NewPersistence(provider, message string, err error) *CrawlerError {
	return New(ErrorTypePersistence, provider, message, err)
}

// NewValidation creates a new validation error
func NewValidation(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeValidation, provider, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the ErrorType of the first CrawlerError in err's chain, or ""
func TypeOf(err error) ErrorType {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Type
	}
	return ""
}

// IsDefinitive reports whether err carries a definitive strategy failure
func IsDefinitive(err error) bool {
	var ce *CrawlerError
	return stderrors.As(err, &ce) && ce.IsDefinitive()
}

// StatusCode returns the HTTP status attached to err, or 0
func StatusCode(err error) int {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}
