// Package pipeline runs tender extraction, bid parsing and selection as one unit.
package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/spigell/tender-analyzer/internal/extract"
	"github.com/spigell/tender-analyzer/internal/model"
	"github.com/spigell/tender-analyzer/internal/selection"
	"github.com/spigell/tender-analyzer/internal/utils"
)

// BidParser turns bid files into spec records in input order.
type BidParser interface {
	ParseAll(ctx context.Context, logger *zap.Logger, files []model.BidFile) ([]*model.BidSpec, error)
}

type Pipeline struct {
	parser    BidParser
	filters   func() []selection.Filter
	maxLogLen int
}

const defaultMaxLogLength = 200

// MessageNoBids is the user facing text for model.ErrNoBids.
const MessageNoBids = "No PDF bids found"

func New(parser BidParser, maxLogLength int) *Pipeline {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Pipeline{
		parser:    parser,
		filters:   selection.DefaultFilters,
		maxLogLen: maxLogLength,
	}
}

// ProcessBids never panics and never returns an error: every problem is reported as *Failure.
func (p *Pipeline) ProcessBids(ctx context.Context, logger *zap.Logger, tenderText string, files []model.BidFile) (out Outcome) {
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("process bids start",
		zap.Int("tender_length", utf8.RuneCountInString(tenderText)),
		zap.String("tender_preview", utils.TruncateForLog(tenderText, p.maxLogLen)),
		zap.Strings("files", model.Names(files)),
	)

	defer func() {
		if rec := recover(); rec != nil {
			out = fail(logger, eris.Errorf("internal error: %v", rec))
		}
	}()

	success, err := p.run(ctx, logger, tenderText, files)
	if err != nil {
		return fail(logger, err)
	}

	logger.Info("process bids success",
		zap.String("best_bid", success.BestBid.Filename),
		zap.Int("qualified_bids", success.QualifiedBids),
	)
	return success
}

func (p *Pipeline) run(ctx context.Context, logger *zap.Logger, tenderText string, files []model.BidFile) (*Success, error) {
	tender := extract.Tender(tenderText)
	logger.Info("tender specs extracted",
		zap.Int("quantity", tender.Quantity),
		zap.String("processor", tender.Processor),
		zap.String("ram", tender.RAM),
		zap.String("storage", tender.Storage),
	)

	if len(files) == 0 {
		return nil, model.ErrNoBids
	}

	bids, err := p.parser.ParseAll(ctx, logger, files)
	if err != nil {
		return nil, err
	}

	result, err := selection.SelectWith(ctx, logger, p.filters(), tender, bids)
	if err != nil {
		return nil, err
	}

	return &Success{
		Tender:        tender,
		BestBid:       result.BestBid,
		QualifiedBids: result.QualifiedCount,
		Bids:          bids,
	}, nil
}

func fail(logger *zap.Logger, err error) *Failure {
	f := &Failure{Message: message(err), Err: err}
	logger.Error("process bids failed", zap.String("message", f.Message), zap.Error(err))
	return f
}

// message returns the innermost description, which is what users should see.
func message(err error) string {
	if eris.Is(err, model.ErrNoBids) {
		return MessageNoBids
	}
	if eris.Is(err, context.Canceled) || eris.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("processing cancelled: %v", eris.Cause(err))
	}
	return err.Error()
}
