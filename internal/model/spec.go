package model

const (
	// DefaultItem is the only product category the extraction rules know about.
	DefaultItem = "Laptop"
	// Unknown is the tender value for a field that was not found in the text.
	Unknown = "Unknown"
)

// TenderSpec is the buyer's requirement as extracted from the tender text.
type TenderSpec struct {
	Item      string `json:"item" yaml:"item" mapstructure:"item"`
	Quantity  int    `json:"quantity" yaml:"quantity" mapstructure:"quantity"`
	Processor string `json:"processor" yaml:"processor" mapstructure:"processor"`
	RAM       string `json:"ram" yaml:"ram" mapstructure:"ram"`
	Storage   string `json:"storage" yaml:"storage" mapstructure:"storage"`
}

// BidSpec is the spec record extracted from a single bid document.
// Nil fields mean the value was not found.
type BidSpec struct {
	Filename  string  `json:"filename" yaml:"filename" mapstructure:"filename"`
	Quantity  *int    `json:"quantity" yaml:"quantity" mapstructure:"quantity"`
	Processor *string `json:"processor" yaml:"processor" mapstructure:"processor"`
	RAM       *string `json:"ram" yaml:"ram" mapstructure:"ram"`
	Storage   *string `json:"storage" yaml:"storage" mapstructure:"storage"`
	RawText   string  `json:"rawText" yaml:"rawText" mapstructure:"rawText"`
}

// EmptyBid returns a record for a bid whose document could not be read.
func EmptyBid(filename string) *BidSpec {
	return &BidSpec{Filename: filename}
}

// HasQuantity reports whether the bid quantity equals the requested one.
// A bid without a quantity never matches.
func (b *BidSpec) HasQuantity(quantity int) bool {
	return b != nil && b.Quantity != nil && *b.Quantity == quantity
}

// SelectionResult is the outcome of comparing bids against a tender.
type SelectionResult struct {
	QualifiedCount int
	// BestBid points into the slice passed to the selector.
	BestBid   *BidSpec
	Qualified []*BidSpec
}
