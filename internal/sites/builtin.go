package sites

// builtinConfigs returns the site configs compiled into the binary.
func builtinConfigs() []*SiteConfig {
	return []*SiteConfig{
		webuyConfig(),
	}
}

// webuyConfig covers uk.webuy.com (CeX). Selector lists are ordered from the
// current markup to older class-name variants so a site redesign degrades a
// field instead of breaking extraction outright.
func webuyConfig() *SiteConfig {
	return &SiteConfig{
		Name:    "webuy.com",
		Domains: []string{"webuy.com", "cex.io"},
		BaseURL: "https://uk.webuy.com",
		Selectors: map[string][]string{
			FieldCardContainer: {
				".search-product-card",
				".cx-card-product",
				"[class*=\"product-card\"]",
			},
			FieldTitle: {
				".card-title a",
				".card-title",
				"h3",
				"[class*=\"title\"]",
			},
			FieldTitleLink: {
				".card-title a",
			},
			FieldProductURL: {
				".card-title a",
				"a[href*=\"product-detail\"]",
				"a[href*=\"product\"]",
			},
			FieldImage: {
				".card-img > a > img",
				".card-img a img",
				".card-img img",
				".thumbnail a img",
				".thumbnail img",
				"img[src*=\"product_images\"]",
				"img[src*=\"product\"]",
			},
			FieldCategory: {
				".card-subtitle",
				"[class*=\"subtitle\"]",
				"[class*=\"category\"]",
			},
			FieldGrade: {
				".grade-letter",
				"[class*=\"grade-letter\"]",
			},
			FieldGradeTitle: {
				".grade-title",
				"[class*=\"grade-title\"]",
			},
			FieldRating: {
				".card-rating span",
				"[class*=\"rating\"] span",
			},
			FieldPrice: {
				".price-wrapper .product-main-price",
				".product-main-price",
				"[class*=\"price\"]",
			},
			FieldPriceReduction: {
				".price-wrapper .price-reduction",
				".price-reduction",
			},
			// Voucher and cash amounts share one container; the extractor
			// tells them apart by the surrounding label text.
			FieldTradeInVoucher: {
				".tradeInPrices .product-main-price",
			},
			FieldTradeInCash: {
				".tradeInPrices .product-main-price",
			},
			FieldWarrantyBadge: {
				".cx-warranty-badge",
				"[class*=\"warranty\"]",
				"img[alt*=\"Warranty\"]",
			},
		},
		Search: SearchConfig{
			InputSelector: "#predictiveSearchText",
			SuggestionSelectors: []string{
				".predictive-search-result",
				".predictive-search-results li",
				".search-suggestions li",
				"[class*=\"suggestion\"] li",
				"[class*=\"autocomplete\"] li",
			},
			URLTemplate: "https://uk.webuy.com/search?stext=%s",
		},
	}
}
