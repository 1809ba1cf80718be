// Package report shapes a successful run into the form returned to users.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/spigell/tender-analyzer/internal/model"
	"github.com/spigell/tender-analyzer/internal/pipeline"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml and yml in any case. An empty value means json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("unsupported output format %q", s)
	}
}

// Report is the wire shape of a successful analysis.
type Report struct {
	Requirements  model.TenderSpec `json:"requirements" yaml:"requirements" mapstructure:"requirements"`
	BestBid       *model.BidSpec   `json:"bestBid" yaml:"bestBid" mapstructure:"bestBid"`
	QualifiedBids int              `json:"qualifiedBids" yaml:"qualifiedBids" mapstructure:"qualifiedBids"`

	// Bids is only known locally and never travels over the wire.
	Bids []*model.BidSpec `json:"-" yaml:"-" mapstructure:"-"`
}

func FromSuccess(s *pipeline.Success) *Report {
	if s == nil {
		return nil
	}
	return &Report{
		Requirements:  s.Tender,
		BestBid:       s.BestBid,
		QualifiedBids: s.QualifiedBids,
		Bids:          s.Bids,
	}
}

// Render writes the report to w in the requested format.
func (r *Report) Render(w io.Writer, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "encode report as json")
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "encode report as yaml")
		}
		if err := enc.Close(); err != nil {
			return eris.Wrap(err, "flush yaml encoder")
		}
	default:
		return eris.Errorf("unsupported output format %q", format)
	}
	return nil
}

// DumpToTmpFile writes the report as indented json to a new temp file and returns its name.
func (r *Report) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "tender_report_*.json")
	if err != nil {
		return "", eris.Wrap(err, "create report file")
	}
	defer file.Close()

	if err := r.Render(file, FormatJSON); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// BidSummary is one line of the per-bid report.
type BidSummary struct {
	Filename  string `json:"filename" yaml:"filename"`
	Qualified bool   `json:"qualified" yaml:"qualified"`
	Best      bool   `json:"best" yaml:"best"`
	Quantity  string `json:"quantity" yaml:"quantity"`
	Processor string `json:"processor" yaml:"processor"`
	RAM       string `json:"ram" yaml:"ram"`
	Storage   string `json:"storage" yaml:"storage"`
}

const notFound = "-"

// ByBid summarises every parsed bid against the requirements. When the
// individual bids are unknown only the best bid is listed.
func (r *Report) ByBid() []BidSummary {
	bids := r.Bids
	if len(bids) == 0 && r.BestBid != nil {
		bids = []*model.BidSpec{r.BestBid}
	}

	summary := make([]BidSummary, 0, len(bids))
	for _, bid := range bids {
		if bid == nil {
			continue
		}
		summary = append(summary, BidSummary{
			Filename:  bid.Filename,
			Qualified: bid.HasQuantity(r.Requirements.Quantity),
			Best:      r.BestBid != nil && bid.Filename == r.BestBid.Filename,
			Quantity:  intOrDash(bid.Quantity),
			Processor: stringOrDash(bid.Processor),
			RAM:       stringOrDash(bid.RAM),
			Storage:   stringOrDash(bid.Storage),
		})
	}
	return summary
}

func intOrDash(v *int) string {
	if v == nil {
		return notFound
	}
	return fmt.Sprintf("%d", *v)
}

func stringOrDash(v *string) string {
	if v == nil {
		return notFound
	}
	return *v
}
