package extract

// ProductRecord is one extracted listing. Records are immutable value
// objects once produced; refinement filters sets of them, never mutates one.
type ProductRecord struct {
	Title          string         `json:"title" yaml:"title"`
	ImageURL       string         `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	ProductURL     string         `json:"productUrl,omitempty" yaml:"productUrl,omitempty"`
	Category       string         `json:"category,omitempty" yaml:"category,omitempty"`
	Grade          string         `json:"grade,omitempty" yaml:"grade,omitempty"`
	GradeTitle     string         `json:"gradeTitle,omitempty" yaml:"gradeTitle,omitempty"`
	Rating         float64        `json:"rating,omitempty" yaml:"rating,omitempty"`
	HasRating      bool           `json:"-" yaml:"-"`
	Price          string         `json:"price,omitempty" yaml:"price,omitempty"`
	PriceReduction string         `json:"priceReduction,omitempty" yaml:"priceReduction,omitempty"`
	TradeInVoucher string         `json:"tradeInVoucher,omitempty" yaml:"tradeInVoucher,omitempty"`
	TradeInCash    string         `json:"tradeInCash,omitempty" yaml:"tradeInCash,omitempty"`
	WarrantyBadge  bool           `json:"warrantyBadge,omitempty" yaml:"warrantyBadge,omitempty"`
	Source         string         `json:"source" yaml:"source"`
	Metadata       map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
