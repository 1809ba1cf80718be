// Package extract turns free text into a spec record using fixed pattern rules.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/spigell/tender-analyzer/internal/model"
)

// Fields holds the values found in a text. Nil means the rule did not match.
type Fields struct {
	Quantity  *int
	Processor *string
	RAM       *string
	Storage   *string
}

// Rule looks for a single field in text and records it in f.
type Rule func(text string, f *Fields)

// space matches any Unicode whitespace, including \v and the separators
// RE2's \s leaves out. digits matches decimal digits of any script.
const (
	space  = `\s\v\x{1c}-\x{1f}\x{85}\p{Z}`
	digits = `(\p{Nd}+)`
)

var (
	quantityPattern  = regexp.MustCompile(`(?i)Quantity[:` + space + `]*` + digits)
	processorPattern = regexp.MustCompile(`(?i)(i[3579])`)
	ramPattern       = regexp.MustCompile(`(?i)` + digits + `[` + space + `]*GB[` + space + `]*RAM`)
	storagePattern   = regexp.MustCompile(`(?i)` + digits + `[` + space + `]*GB[` + space + `]*SSD`)
)

// Rules is the rule set applied by Extract. Rules are independent of each other.
var Rules = []Rule{
	Quantity,
	Processor,
	RAM,
	Storage,
}

// Extract runs every rule over the text. Matched values are substrings of text.
func Extract(text string) Fields {
	var f Fields
	for _, rule := range Rules {
		rule(text, &f)
	}

	return f
}

// Quantity matches "Quantity" followed by a run of digits.
func Quantity(text string, f *Fields) {
	m := quantityPattern.FindStringSubmatch(text)
	if m == nil {
		return
	}

	n, err := strconv.Atoi(asciiDigits(m[1]))
	if err != nil {
		// out of range
		return
	}
	f.Quantity = &n
}

// Processor matches an Intel core tier such as i5 or i7.
func Processor(text string, f *Fields) {
	m := processorPattern.FindStringSubmatch(text)
	if m == nil {
		return
	}

	value := "Intel i" + m[1][1:]
	f.Processor = &value
}

// RAM keeps the matched "<n> GB RAM" text verbatim.
func RAM(text string, f *Fields) {
	f.RAM = findVerbatim(ramPattern, text)
}

// Storage keeps the matched "<n> GB SSD" text verbatim.
func Storage(text string, f *Fields) {
	f.Storage = findVerbatim(storagePattern, text)
}

func findVerbatim(re *regexp.Regexp, text string) *string {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	value := text[loc[0]:loc[1]]
	return &value
}

// Tender projects the fields onto a tender spec, using sentinels for missing values.
func (f Fields) Tender() model.TenderSpec {
	spec := model.TenderSpec{
		Item:      model.DefaultItem,
		Processor: orUnknown(f.Processor),
		RAM:       orUnknown(f.RAM),
		Storage:   orUnknown(f.Storage),
	}
	if f.Quantity != nil {
		spec.Quantity = *f.Quantity
	}
	return spec
}

// Bid projects the fields onto a bid record.
func (f Fields) Bid(filename, rawText string) *model.BidSpec {
	return &model.BidSpec{
		Filename:  filename,
		Quantity:  f.Quantity,
		Processor: f.Processor,
		RAM:       f.RAM,
		Storage:   f.Storage,
		RawText:   rawText,
	}
}

// Tender is a shortcut for Extract(text).Tender().
func Tender(text string) model.TenderSpec {
	return Extract(text).Tender()
}

// asciiDigits rewrites decimal digits of any script as 0-9.
func asciiDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteByte(byte('0' + digitValue(r)))
	}
	return b.String()
}

// digitValue relies on every Nd block being a contiguous run of 0-9 sequences.
func digitValue(r rune) int {
	if r >= '0' && r <= '9' {
		return int(r - '0')
	}
	start := r
	for unicode.IsDigit(start - 1) {
		start--
	}
	return int(r-start) % 10
}

func orUnknown(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return model.Unknown
	}
	return *v
}
