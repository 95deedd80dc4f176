// Package sites holds declarative extraction configuration for supported
// marketplaces. A SiteConfig is pure data: adding a site means adding a
// config, not touching extraction logic.
package sites

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Well-known selector field names. Each maps to an ordered fallback list:
// the first selector that matches wins.
const (
	FieldCardContainer  = "cardContainer"
	FieldTitle          = "title"
	FieldTitleLink      = "titleLink"
	FieldProductURL     = "productUrl"
	FieldImage          = "image"
	FieldCategory       = "category"
	FieldGrade          = "grade"
	FieldGradeTitle     = "gradeTitle"
	FieldRating         = "rating"
	FieldPrice          = "price"
	FieldPriceReduction = "priceReduction"
	FieldTradeInVoucher = "tradeInVoucher"
	FieldTradeInCash    = "tradeInCash"
	FieldWarrantyBadge  = "warrantyBadge"
)

// SearchConfig describes how to drive a site's search box.
type SearchConfig struct {
	// InputSelector locates the search input element.
	InputSelector string `yaml:"inputSelector" validate:"required"`

	// SuggestionSelectors are tried in order to find an autocomplete
	// suggestion to click. Markup varies across sites and releases.
	SuggestionSelectors []string `yaml:"suggestionSelectors"`

	// URLTemplate builds a direct search-results URL, with %s replaced by
	// the escaped search term. Used when no browser engine is available.
	URLTemplate string `yaml:"urlTemplate"`
}

// SiteConfig is the declarative extraction configuration for one marketplace.
type SiteConfig struct {
	// Name identifies the site in ProductRecord.Source.
	Name string `yaml:"name" validate:"required"`

	// Domains are host-matching substrings. A URL belongs to this site if it
	// contains any of them.
	Domains []string `yaml:"domains" validate:"required,min=1"`

	// BaseURL resolves relative hrefs and image sources.
	BaseURL string `yaml:"baseUrl" validate:"required,url"`

	// Selectors maps field name to an ordered selector fallback list.
	// cardContainer is mandatory; all other fields are scoped per card.
	Selectors map[string][]string `yaml:"selectors" validate:"required"`

	// Search describes the site's search interaction.
	Search SearchConfig `yaml:"search"`
}

var validate = validator.New()

// Validate checks the config for structural problems.
func (c *SiteConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid site config %q: %w", c.Name, err)
	}
	if len(c.Selectors[FieldCardContainer]) == 0 {
		return fmt.Errorf("invalid site config %q: selectors.%s must have at least one entry", c.Name, FieldCardContainer)
	}
	return nil
}

// Matches reports whether the URL belongs to this site.
func (c *SiteConfig) Matches(url string) bool {
	for _, domain := range c.Domains {
		if domain != "" && strings.Contains(url, domain) {
			return true
		}
	}
	return false
}

// Registry resolves URLs to site configs in registration order.
type Registry struct {
	configs []*SiteConfig
}

// NewRegistry creates a registry pre-loaded with the built-in site configs.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, cfg := range builtinConfigs() {
		r.configs = append(r.configs, cfg)
	}
	return r
}

// Register appends a config. Earlier registrations win on overlap.
func (r *Registry) Register(cfg *SiteConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.configs = append(r.configs, cfg)
	return nil
}

// Resolve returns the first registered config whose domains match the URL,
// or nil if the site is unsupported. A nil result is not an error.
func (r *Registry) Resolve(url string) *SiteConfig {
	for _, cfg := range r.configs {
		if cfg.Matches(url) {
			return cfg
		}
	}
	return nil
}

// Configs returns all registered configs in registration order.
func (r *Registry) Configs() []*SiteConfig {
	return r.configs
}

// LoadFile reads additional site configs from a YAML file and registers them.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read site config file: %w", err)
	}

	var configs []*SiteConfig
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return fmt.Errorf("failed to parse site config file: %w", err)
	}

	for _, cfg := range configs {
		if err := r.Register(cfg); err != nil {
			return err
		}
	}
	return nil
}
