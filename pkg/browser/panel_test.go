package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"placeharvest/pkg/config"
	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/models"
)

const loadedPanel = `
<div role="main" aria-label="Harbour Dental">
  <h1 class="DUwDvf lfPIob"> Harbour Dental </h1>
  <div class="F7nice">
    <span><span aria-hidden="true">4,6</span></span>
    <span><span aria-label="212 reviews">(212)</span></span>
  </div>
  <button class="DkEaL">Dentist</button>
  <button data-item-id="address" aria-label="Address: 1 Quay St, Leeds">
    <div class="Io6YTe">1 Quay St, Leeds</div>
  </button>
  <a data-item-id="authority" href="https://harbourdental.example"><div>harbourdental.example</div></a>
  <button data-item-id="phone:tel:+441134960000" aria-label="Phone: 0113 496 0000"></button>
</div>`

func TestParsePanel(t *testing.T) {
	fields, err := ParsePanel(loadedPanel, config.DefaultSelectors())
	require.NoError(t, err)

	assert.Equal(t, models.PanelFields{
		Title:       "Harbour Dental",
		Category:    "Dentist",
		Rating:      "4,6",
		ReviewCount: "212 reviews",
		Phone:       "+441134960000",
		Website:     "https://harbourdental.example",
		Address:     "1 Quay St, Leeds",
	}, fields)
}

func TestParsePanelOptionalFields(t *testing.T) {
	html := `<div role="main"><h1 class="DUwDvf">Corner Cafe</h1>
		<button data-item-id="address" aria-label="Address: 5 Mill Rd"></button></div>`

	fields, err := ParsePanel(html, config.DefaultSelectors())
	require.NoError(t, err)

	assert.Equal(t, "Corner Cafe", fields.Title)
	assert.Equal(t, "5 Mill Rd", fields.Address)
	assert.Empty(t, fields.Phone)
	assert.Empty(t, fields.Website)
	assert.Empty(t, fields.Rating)
}

func TestParsePanelWithoutTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"empty document", ""},
		{"list still showing", `<div role="feed"><div role="article">A</div></div>`},
		{"blank title", `<div role="main"><h1 class="DUwDvf">   </h1></div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePanel(tt.html, config.DefaultSelectors())
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrPanelNotLoaded)
		})
	}
}

func TestParsePanelCustomSelectors(t *testing.T) {
	sel := config.Selectors{Title: "h2.name", Phone: "span.tel"}
	html := `<section><h2 class="name">Ace Plumbing</h2><span class="tel">555-0100</span></section>`

	fields, err := ParsePanel(html, sel)
	require.NoError(t, err)
	assert.Equal(t, "Ace Plumbing", fields.Title)
	assert.Equal(t, "555-0100", fields.Phone)
	assert.Empty(t, fields.Category)
}

func TestJSString(t *testing.T) {
	assert.Equal(t, `"div[role=\"feed\"]"`, jsString(`div[role="feed"]`))
	assert.Equal(t, `""`, jsString(""))
}

func TestSessionNotOpen(t *testing.T) {
	s := NewSession(config.DefaultConfig().Browser, nil)

	_, err := s.CountEntries(context.Background())
	assert.ErrorIs(t, err, errs.ErrDriverUnavailable)
	assert.NoError(t, s.Close())
}
