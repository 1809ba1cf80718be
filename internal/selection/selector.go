// Package selection decides which bids satisfy a tender and picks the winner.
package selection

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/spigell/tender-analyzer/internal/model"
)

// Select qualifies bids with the default filters and picks the first qualified bid
// in input order. When nothing qualifies the first bid overall is returned with a
// zero qualified count.
func Select(ctx context.Context, logger *zap.Logger, tender model.TenderSpec, bids []*model.BidSpec) (*model.SelectionResult, error) {
	return SelectWith(ctx, logger, DefaultFilters(), tender, bids)
}

// SelectWith is Select with an explicit list of qualification steps.
// Ranking within the qualified set is by input position only.
func SelectWith(ctx context.Context, logger *zap.Logger, steps []Filter, tender model.TenderSpec, bids []*model.BidSpec) (*model.SelectionResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(bids) == 0 {
		return nil, eris.Wrap(model.ErrNoBids, "select best bid")
	}

	logger.Info("selecting best bid using rule-based logic", zap.Int("bids", len(bids)))

	qualified, err := Run(ctx, logger, tender, steps, bids)
	if err != nil {
		return nil, eris.Wrap(err, "qualify bids")
	}

	result := &model.SelectionResult{
		QualifiedCount: len(qualified),
		Qualified:      qualified,
	}

	if len(qualified) > 0 {
		result.BestBid = qualified[0]
	} else {
		result.BestBid = bids[0]
		logger.Info("no qualified bids, falling back to the first bid", zap.String("filename", bids[0].Filename))
	}

	logger.Info("bid selection result",
		zap.Int("qualified_bids", result.QualifiedCount),
		zap.String("best_bid", result.BestBid.Filename),
	)

	return result, nil
}
