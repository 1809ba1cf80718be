package selection

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/tender-analyzer/internal/model"
)

// Filter represents a single qualification step applied to bids.
// Filters must keep the relative order of the bids they pass through.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, tender model.TenderSpec, bids []*model.BidSpec) ([]*model.BidSpec, Step, error)
}

// Step describes the result of executing a qualification step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// DefaultFilters returns the qualification steps used by Select.
func DefaultFilters() []Filter {
	return []Filter{NewQuantityMatch()}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the bids left after all of them.
func Run(ctx context.Context, logger *zap.Logger, tender model.TenderSpec, steps []Filter, bids []*model.BidSpec) ([]*model.BidSpec, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	left := bids
	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, tender, left)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		left = next
	}

	return left, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

type quantityMatchFilter struct {
	disabled bool
	reason   string
	quantity *int
}

// NewQuantityMatch creates a filter that keeps bids offering exactly the tender quantity.
func NewQuantityMatch() Filter {
	return &quantityMatchFilter{}
}

func (f *quantityMatchFilter) Name() string { return "quantity_match" }

func (f *quantityMatchFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *quantityMatchFilter) IsEnabled() bool { return !f.disabled }

func (f *quantityMatchFilter) Apply(ctx context.Context, tender model.TenderSpec, bids []*model.BidSpec) ([]*model.BidSpec, Step, error) {
	if err := ctx.Err(); err != nil {
		return nil, Step{}, err
	}

	quantity := tender.Quantity
	f.quantity = &quantity

	kept := make([]*model.BidSpec, 0, len(bids))
	for _, bid := range bids {
		if bid.HasQuantity(quantity) {
			kept = append(kept, bid)
		}
	}

	return kept, Step{Initial: len(bids), Dropped: len(bids) - len(kept), Left: len(kept)}, nil
}

func (f *quantityMatchFilter) Status() Status {
	details := map[string]string{}
	if f.quantity != nil {
		details["quantity"] = strconv.Itoa(*f.quantity)
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
