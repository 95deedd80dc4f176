package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/allendavis-developer/cg-request/internal/sites"
)

func readTestdata(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read testdata %s: %v", name, err)
	}
	return string(data)
}

func webuyConfig(t *testing.T) *sites.SiteConfig {
	t.Helper()
	cfg := sites.NewRegistry().Resolve("https://uk.webuy.com")
	if cfg == nil {
		t.Fatal("built-in webuy config not registered")
	}
	return cfg
}

func TestExtract_ResultsPage(t *testing.T) {
	html := readTestdata(t, "webuy_results.html")
	records := New(webuyConfig(t)).Extract(html)

	// 4 cards on the page, 1 without a title
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	first := records[0]
	if first.Title != "Playstation 5 Console, Disc Edition, Boxed" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.ProductURL != "https://uk.webuy.com/product-detail?id=5060011" {
		t.Errorf("product url not resolved: %q", first.ProductURL)
	}
	if first.Category != "PS5 Consoles" {
		t.Errorf("unexpected category: %q", first.Category)
	}
	if first.Grade != "B" || first.GradeTitle != "Good" {
		t.Errorf("unexpected grade: %q / %q", first.Grade, first.GradeTitle)
	}
	if !first.HasRating || first.Rating != 4.5 {
		t.Errorf("unexpected rating: %v (has=%v)", first.Rating, first.HasRating)
	}
	if first.Price != "£305.00" {
		t.Errorf("unexpected price: %q", first.Price)
	}
	if first.PriceReduction != "£20.00" {
		t.Errorf("unexpected price reduction: %q", first.PriceReduction)
	}
	if !first.WarrantyBadge {
		t.Error("expected warranty badge")
	}
	if first.Source != "webuy.com" {
		t.Errorf("unexpected source: %q", first.Source)
	}
}

func TestExtract_ImageBadgeRejected(t *testing.T) {
	html := readTestdata(t, "webuy_results.html")
	records := New(webuyConfig(t)).Extract(html)

	// The first card's photo sits behind a warranty badge overlay image.
	if got := records[0].ImageURL; got != "https://uk.webuy.com/product_images/5060011.jpg" {
		t.Errorf("expected real product image, got %q", got)
	}
	// The second card's image is already absolute.
	if got := records[1].ImageURL; got != "https://uk.static.webuy.com/product_images/5060012.jpg" {
		t.Errorf("absolute image url changed: %q", got)
	}
}

func TestExtract_TradeInLabels(t *testing.T) {
	html := readTestdata(t, "webuy_results.html")
	records := New(webuyConfig(t)).Extract(html)

	first := records[0]
	if first.TradeInVoucher != "£260.00" {
		t.Errorf("unexpected voucher amount: %q", first.TradeInVoucher)
	}
	if first.TradeInCash != "£230.00" {
		t.Errorf("unexpected cash amount: %q", first.TradeInCash)
	}

	// Second card has no trade-in section at all.
	second := records[1]
	if second.TradeInVoucher != "" || second.TradeInCash != "" {
		t.Errorf("expected no trade-in amounts, got %q / %q", second.TradeInVoucher, second.TradeInCash)
	}
}

func TestExtract_NoRecognizableAmount(t *testing.T) {
	html := readTestdata(t, "webuy_results.html")
	records := New(webuyConfig(t)).Extract(html)

	// Third record's price text is "Out of stock".
	if got := records[2].Price; got != "" {
		t.Errorf("expected empty price, got %q", got)
	}
}

func TestExtract_ContainerFallback(t *testing.T) {
	// No .search-product-card present; the older variant must be found.
	html := `<div class="cx-card-product">
		<h3 class="card-title"><a href="/product-detail?id=1">Nintendo Switch OLED</a></h3>
		<div class="price-wrapper"><span class="product-main-price">£199.00</span></div>
	</div>`

	records := New(webuyConfig(t)).Extract(html)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Title != "Nintendo Switch OLED" {
		t.Errorf("unexpected title: %q", records[0].Title)
	}
	if records[0].Price != "£199.00" {
		t.Errorf("unexpected price: %q", records[0].Price)
	}
}

func TestExtract_NoCards(t *testing.T) {
	records := New(webuyConfig(t)).Extract("<html><body><p>nothing here</p></body></html>")
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestExtract_FieldFailureIsolated(t *testing.T) {
	// A card whose rating text is garbage still yields a record; only the
	// rating is absent.
	html := `<div class="search-product-card">
		<h3 class="card-title"><a href="/p">Steam Deck 512GB</a></h3>
		<div class="card-rating"><span>no reviews yet</span></div>
		<div class="price-wrapper"><span class="product-main-price">£349.00</span></div>
	</div>`

	records := New(webuyConfig(t)).Extract(html)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].HasRating {
		t.Error("expected no rating")
	}
	if records[0].Price != "£349.00" {
		t.Errorf("unexpected price: %q", records[0].Price)
	}
}

func TestCurrencyPattern(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"£305.00", "£305.00"},
		{"Save £20.00", "£20.00"},
		{"£ 1,299.99", "£ 1,299.99"},
		{"$59", "$59"},
		{"€449.50 inc. VAT", "€449.50"},
		{"Out of stock", ""},
		{"305.00", ""},
	}
	for _, tc := range cases {
		if got := currencyPattern.FindString(tc.in); got != tc.want {
			t.Errorf("currencyPattern(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
