package helpers

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildURL(t *testing.T) {
	u, err := BuildURL("https://es.wallapop.com/app/search", url.Values{"keywords": {"consola NES"}})
	assert.NoError(t, err)
	assert.Equal(t, "https://es.wallapop.com/app/search?keywords=consola+NES", u)

	u, err = BuildURL("https://example.com/search?lang=es", url.Values{"start": {"20"}})
	assert.NoError(t, err)
	assert.Equal(t, "https://example.com/search?lang=es&start=20", u)

	_, err = BuildURL("://bad", nil)
	assert.Error(t, err)
}
