package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"placeharvest/pkg/config"
	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/models"
)

// ParsePanel reads the detail-panel fields out of the panel's outer HTML.
// A panel without a title has not finished loading.
func ParsePanel(html string, sel config.Selectors) (models.PanelFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.PanelFields{}, errs.Wrap(errs.ErrorTypePanelNotLoaded, "unreadable panel html", err)
	}

	fields := models.PanelFields{
		Title:    text(doc, sel.Title),
		Category: text(doc, sel.Category),
		Rating:   text(doc, sel.Rating),
	}
	if fields.Title == "" {
		return models.PanelFields{}, errs.New(errs.ErrorTypePanelNotLoaded, "panel has no title")
	}

	fields.ReviewCount = attrOrText(doc, sel.Reviews, "aria-label")
	fields.Website = attr(doc, sel.Website, "href")

	fields.Phone = text(doc, sel.Phone)
	if fields.Phone == "" {
		// data-item-id="phone:tel:+441134960000"
		if id := attr(doc, sel.Phone, "data-item-id"); strings.Contains(id, "tel:") {
			fields.Phone = id[strings.Index(id, "tel:")+len("tel:"):]
		}
	}

	fields.Address = text(doc, sel.Address)
	if fields.Address == "" {
		fields.Address = strings.TrimSpace(strings.TrimPrefix(attr(doc, sel.Address, "aria-label"), "Address:"))
	}

	return fields, nil
}

func first(doc *goquery.Document, selector string) *goquery.Selection {
	if selector == "" {
		return &goquery.Selection{}
	}
	return doc.Find(selector).First()
}

func text(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(first(doc, selector).Text())
}

func attr(doc *goquery.Document, selector, name string) string {
	val, _ := first(doc, selector).Attr(name)
	return strings.TrimSpace(val)
}

func attrOrText(doc *goquery.Document, selector, name string) string {
	if val := attr(doc, selector, name); val != "" {
		return val
	}
	return text(doc, selector)
}
