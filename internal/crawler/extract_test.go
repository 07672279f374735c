package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/retroconsolas/internal/market"
)

const renderedCards = `<html><body>
<tsl-public-card>
  <a href="https://es.wallapop.com/item/consola-nes-111">
    <p class="ItemCard__title">  Consola NES
      completa </p>
    <span class="ItemCard__price">1.234,50 €</span>
  </a>
</tsl-public-card>
<tsl-public-card>
  <a href="/item/snes-222?from=search">
    <p class="ItemCard__title">Super Nintendo</p>
    <span class="ItemCard__price">80 €</span>
    <div class="badge">Vendido</div>
  </a>
</tsl-public-card>
<tsl-public-card>
  <p class="ItemCard__title">Game Boy</p>
  <span class="ItemCard__Price">35 €</span>
  <div class="badge">RESERVADO</div>
</tsl-public-card>
</body></html>`

func TestExtractorCards(t *testing.T) {
	extractor := NewExtractor(DefaultExtractorConfig())

	records, err := extractor.Extract(strings.NewReader(renderedCards))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, market.RawRenderedRecord{
		Href:      "https://es.wallapop.com/item/consola-nes-111",
		Title:     "Consola NES completa",
		PriceText: "1.234,50 €",
	}, records[0])

	assert.Equal(t, "/item/snes-222?from=search", records[1].Href)
	assert.True(t, records[1].IsSold)
	assert.False(t, records[1].IsReserved)

	assert.Equal(t, "", records[2].Href)
	assert.Equal(t, "35 €", records[2].PriceText)
	assert.True(t, records[2].IsReserved)
}

func TestExtractorFallsBackToLinkCards(t *testing.T) {
	html := `<html><body>
		<div class="grid">
			<a href="/item/megadrive-9"><span>Mega Drive</span><b class="price">60 €</b></a>
			<a href="/user/someone"><span>Perfil</span></a>
		</div>
	</body></html>`

	extractor := NewExtractor(DefaultExtractorConfig())
	records, err := extractor.Extract(strings.NewReader(html))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "/item/megadrive-9", records[0].Href)
	assert.Equal(t, "Mega Drive", records[0].Title)
	assert.Equal(t, "60 €", records[0].PriceText)
}

func TestExtractorCardInsideLink(t *testing.T) {
	html := `<a href="/item/gameboy-color-7"><div class="ItemCard"><p>Game Boy Color</p><span class="price">45 €</span></div></a>`

	extractor := NewExtractor(DefaultExtractorConfig())
	records, err := extractor.Extract(strings.NewReader(html))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/item/gameboy-color-7", records[0].Href)
	assert.Equal(t, "Game Boy Color", records[0].Title)
}

func TestExtractorNoCards(t *testing.T) {
	extractor := NewExtractor(DefaultExtractorConfig())
	records, err := extractor.Extract(strings.NewReader(`<html><body><p>Sin resultados</p></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExtractorCustomMarkers(t *testing.T) {
	cfg := DefaultExtractorConfig()
	cfg.SoldMarkers = []string{"Sold"}

	extractor := NewExtractor(cfg)
	records, err := extractor.Extract(strings.NewReader(
		`<tsl-public-card><p>NES</p><span class="price">10 €</span> sold out</tsl-public-card>`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsSold)
}

func TestExtractorIgnoresNonItemCardHref(t *testing.T) {
	html := `<tsl-public-card href="/app/user/vendedor-1">
		<p class="title">Master System II</p>
		<span class="price">55 €</span>
		<a href="/item/master-system-2-77">ver</a>
	</tsl-public-card>`

	extractor := NewExtractor(DefaultExtractorConfig())
	records, err := extractor.Extract(strings.NewReader(html))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/item/master-system-2-77", records[0].Href)

	listing, ok := market.NormalizeRendered(records[0])
	require.True(t, ok)
	assert.Equal(t, "master-system-2-77", listing.ID)
}

func TestItemHref(t *testing.T) {
	assert.Equal(t, "/item/nes-1", itemHref("/item/nes-1"))
	assert.Equal(t, "", itemHref("/app/user/vendedor-1"))
	assert.Equal(t, "", itemHref(""))
}
