package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHTTPStatus(t *testing.T) {
	testCases := []struct {
		status     int
		wantType   ErrorType
		definitive bool
	}{
		{http.StatusForbidden, ErrorTypeBlocked, true},
		{http.StatusTooManyRequests, ErrorTypeBlocked, true},
		{http.StatusInternalServerError, ErrorTypeNetwork, false},
		{http.StatusNotFound, ErrorTypeNetwork, false},
	}

	for _, tc := range testCases {
		err := NewHTTPStatus("api", tc.status)
		assert.Equal(t, tc.wantType, err.Type)
		assert.Equal(t, tc.definitive, err.IsDefinitive())
		assert.Equal(t, tc.status, err.StatusCode)
		assert.Contains(t, err.Error(), fmt.Sprintf("%d", tc.status))
	}
}

func TestIsDefinitiveThroughWrapping(t *testing.T) {
	blocked := NewHTTPStatus("api", http.StatusTooManyRequests)
	wrapped := fmt.Errorf("query 'consola NES': %w", blocked)

	assert.True(t, IsDefinitive(wrapped))
	assert.Equal(t, ErrorTypeBlocked, TypeOf(wrapped))
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(wrapped))

	assert.False(t, IsDefinitive(stderrors.New("plain")))
	assert.Equal(t, ErrorType(""), TypeOf(stderrors.New("plain")))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestCrawlerErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewNetwork("api", "search request failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[network] api: search request failed - connection reset", err.Error())
	assert.Equal(t, "[session] browser: chrome did not start", NewSession("browser", "chrome did not start", nil).Error())
}

func TestCacheAndValidationAreNotDefinitive(t *testing.T) {
	cacheErr := NewCache("memcache", "get failed", stderrors.New("connection refused"))
	assert.Equal(t, ErrorTypeCache, TypeOf(cacheErr))
	assert.False(t, cacheErr.IsDefinitive())
	assert.Equal(t, "[cache] memcache: get failed - connection refused", cacheErr.Error())

	invalid := NewValidation("consoles", "console \"nes\" is defined twice", nil)
	assert.Equal(t, ErrorTypeValidation, TypeOf(invalid))
	assert.False(t, IsDefinitive(invalid))
}
