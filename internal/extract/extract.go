// Package extract turns a product-listing page into normalized product
// records by applying a site's selector fallback chains per card.
package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/allendavis-developer/cg-request/internal/logger"
	"github.com/allendavis-developer/cg-request/internal/sites"
)

var (
	// currency symbol followed by digits, commas, optional decimal part
	currencyPattern = regexp.MustCompile(`[£$€]\s?[0-9][0-9,]*(?:\.[0-9]+)?`)

	decimalPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
)

// imageRejectMarkers flag decorative overlays (warranty badges, icons) that
// share markup with the product photo and must not be mistaken for it.
var imageRejectMarkers = []string{"badge", "icon", "warranty"}

// Extractor applies a SiteConfig to listing pages.
type Extractor struct {
	cfg *sites.SiteConfig
}

// New creates an extractor for one site.
func New(cfg *sites.SiteConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract parses the page HTML and returns product records in document
// order. A card with no title is dropped. Failures are isolated per card and
// per field: an unparsable page or zero matching cards yields an empty list.
func (e *Extractor) Extract(html string) []ProductRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Debug("extract: page parse failed", "site", e.cfg.Name, "error", err)
		return nil
	}

	cards := e.findCards(doc)
	if cards == nil {
		logger.Debug("extract: no card containers matched", "site", e.cfg.Name)
		return nil
	}

	var records []ProductRecord
	cards.Each(func(i int, card *goquery.Selection) {
		rec, ok := e.extractCard(card)
		if !ok {
			logger.Debug("extract: card dropped, no title", "site", e.cfg.Name, "index", i)
			return
		}
		records = append(records, rec)
	})

	logger.Debug("extract: complete", "site", e.cfg.Name, "cards", cards.Length(), "records", len(records))
	return records
}

// findCards tries the cardContainer selectors in order and returns the first
// non-empty match set. The list entries are alternatives for the same cards,
// not complementary selectors, so matches are never unioned.
func (e *Extractor) findCards(doc *goquery.Document) *goquery.Selection {
	for _, sel := range e.cfg.Selectors[sites.FieldCardContainer] {
		matched := safeFind(doc.Selection, sel)
		if matched.Length() > 0 {
			return matched
		}
	}
	return nil
}

// extractCard builds one record from a card element. Returns ok=false when
// the card has no title.
func (e *Extractor) extractCard(card *goquery.Selection) (ProductRecord, bool) {
	rec := ProductRecord{Source: e.cfg.Name}

	title, productURL := e.extractTitle(card)
	if title == "" {
		return rec, false
	}
	rec.Title = title
	rec.ProductURL = productURL

	rec.ImageURL = e.extractImage(card)
	rec.Category = e.firstText(card, sites.FieldCategory)
	rec.Grade = e.firstText(card, sites.FieldGrade)
	rec.GradeTitle = e.firstText(card, sites.FieldGradeTitle)

	if raw := e.firstText(card, sites.FieldRating); raw != "" {
		if m := decimalPattern.FindString(raw); m != "" {
			if v, err := strconv.ParseFloat(m, 64); err == nil {
				rec.Rating = v
				rec.HasRating = true
			}
		}
	}

	rec.Price = e.extractAmount(card, sites.FieldPrice)
	rec.PriceReduction = e.extractAmount(card, sites.FieldPriceReduction)
	rec.TradeInVoucher, rec.TradeInCash = e.extractTradeIn(card)
	rec.WarrantyBadge = e.firstMatch(card, sites.FieldWarrantyBadge) != nil

	return rec, true
}

// extractTitle prefers a title-as-link selector, which captures the text and
// product URL in one element, before falling back to plain title selectors
// plus a separate URL selector.
func (e *Extractor) extractTitle(card *goquery.Selection) (title, productURL string) {
	if link := e.firstMatch(card, sites.FieldTitleLink); link != nil {
		title = cleanText(link.Text())
		if href, ok := link.Attr("href"); ok {
			productURL = e.resolveURL(href)
		}
		if title != "" {
			return title, productURL
		}
	}

	title = e.firstText(card, sites.FieldTitle)
	if link := e.firstMatch(card, sites.FieldProductURL); link != nil {
		if href, ok := link.Attr("href"); ok {
			productURL = e.resolveURL(href)
		}
	}
	return title, productURL
}

// extractImage returns the first matched image whose resolved URL does not
// look like a badge or icon overlay.
func (e *Extractor) extractImage(card *goquery.Selection) string {
	for _, sel := range e.cfg.Selectors[sites.FieldImage] {
		var found string
		safeFind(card, sel).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src, ok := img.Attr("src")
			if !ok || src == "" {
				return true
			}
			resolved := e.resolveURL(src)
			if isRejectedImage(resolved) {
				return true
			}
			found = resolved
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// extractAmount returns the first currency amount found in the field's
// matched text, or empty when the text carries no recognizable amount.
func (e *Extractor) extractAmount(card *goquery.Selection, field string) string {
	raw := e.firstText(card, field)
	if raw == "" {
		return ""
	}
	return currencyPattern.FindString(raw)
}

// extractTradeIn disambiguates the voucher and cash amounts, which typically
// share one container, by scanning each amount's surrounding text for the
// literal words "Voucher" and "Cash". Either may be absent.
func (e *Extractor) extractTradeIn(card *goquery.Selection) (voucher, cash string) {
	seen := map[string]bool{}
	for _, field := range []string{sites.FieldTradeInVoucher, sites.FieldTradeInCash} {
		for _, sel := range e.cfg.Selectors[field] {
			if seen[sel] {
				continue
			}
			seen[sel] = true
			safeFind(card, sel).Each(func(_ int, s *goquery.Selection) {
				amount := currencyPattern.FindString(s.Text())
				if amount == "" {
					return
				}
				context := s.Text()
				if parent := s.Parent(); parent.Length() > 0 {
					context += " " + parent.Text()
				}
				switch {
				case strings.Contains(context, "Voucher") && voucher == "":
					voucher = amount
				case strings.Contains(context, "Cash") && cash == "":
					cash = amount
				}
			})
		}
	}
	return voucher, cash
}

// firstMatch tries the field's selector list in order, scoped to the card,
// and returns the first element that exists, or nil.
func (e *Extractor) firstMatch(card *goquery.Selection, field string) *goquery.Selection {
	for _, sel := range e.cfg.Selectors[field] {
		matched := safeFind(card, sel)
		if matched.Length() > 0 {
			return matched.First()
		}
	}
	return nil
}

// firstText returns the cleaned text of the field's first matching element.
func (e *Extractor) firstText(card *goquery.Selection, field string) string {
	if s := e.firstMatch(card, field); s != nil {
		return cleanText(s.Text())
	}
	return ""
}

// resolveURL makes relative hrefs and image sources absolute against the
// site's base URL.
func (e *Extractor) resolveURL(href string) string {
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if parsed.IsAbs() {
		return parsed.String()
	}
	base, err := url.Parse(e.cfg.BaseURL)
	if err != nil {
		return href
	}
	return base.ResolveReference(parsed).String()
}

// safeFind evaluates one selector against a scope. A selector that fails to
// compile matches nothing instead of aborting the surrounding extraction.
func safeFind(scope *goquery.Selection, selector string) (result *goquery.Selection) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("extract: selector evaluation failed", "selector", selector, "panic", r)
			result = scope.Slice(0, 0)
		}
	}()
	return scope.Find(selector)
}

func isRejectedImage(resolved string) bool {
	lower := strings.ToLower(resolved)
	for _, marker := range imageRejectMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// cleanText normalizes whitespace in extracted text.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
