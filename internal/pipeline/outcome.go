package pipeline

import "github.com/spigell/tender-analyzer/internal/model"

// Outcome is the result of a run: either *Success or *Failure.
type Outcome interface {
	outcome()
}

// Success carries the tender spec and the winning bid.
type Success struct {
	Tender model.TenderSpec
	// BestBid points into Bids.
	BestBid       *model.BidSpec
	QualifiedBids int
	Bids          []*model.BidSpec
}

// Failure carries a descriptive message for a run that could not complete.
type Failure struct {
	Message string
	Err     error
}

func (*Success) outcome() {}
func (*Failure) outcome() {}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }
