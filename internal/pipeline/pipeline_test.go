package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/tender-analyzer/internal/bids"
	"github.com/spigell/tender-analyzer/internal/model"
)

// textReader treats documents as plain text; anything starting with "%broken" is unreadable.
type textReader struct{}

func (textReader) ReadText(r io.ReaderAt, size int64) (string, error) {
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if strings.HasPrefix(string(buf), "%broken") {
		return "", model.ErrUnreadablePDF
	}
	return string(buf), nil
}

type panickingParser struct{}

func (panickingParser) ParseAll(context.Context, *zap.Logger, []model.BidFile) ([]*model.BidSpec, error) {
	panic("boom")
}

func newPipeline(workers int) *Pipeline {
	return New(bids.NewParser(textReader{}, bids.Config{Workers: workers}), 0)
}

func files() []model.BidFile {
	return []model.BidFile{
		model.BidFileFromBytes("alpha.pdf", []byte("Quantity: 5\ni5 8GB RAM 256GB SSD")),
		model.BidFileFromBytes("broken.pdf", []byte("%broken Quantity: 10")),
		model.BidFileFromBytes("gamma.pdf", []byte("Quantity: 10\nIntel i7, 16 GB RAM, 512GB SSD")),
		model.BidFileFromBytes("delta.pdf", []byte("Quantity: 10\ni9")),
	}
}

func TestProcessBids(t *testing.T) {
	out := newPipeline(1).ProcessBids(context.Background(), zap.NewNop(),
		"Tender: Quantity: 10 laptops, Intel i7, 16GB RAM, 512GB SSD", files())

	success, ok := out.(*Success)
	require.True(t, ok, "unexpected outcome: %#v", out)

	assert.Equal(t, model.TenderSpec{
		Item:      "Laptop",
		Quantity:  10,
		Processor: "Intel i7",
		RAM:       "16GB RAM",
		Storage:   "512GB SSD",
	}, success.Tender)
	assert.Equal(t, 2, success.QualifiedBids)
	assert.Equal(t, "gamma.pdf", success.BestBid.Filename)
	assert.Same(t, success.Bids[2], success.BestBid)

	require.Len(t, success.Bids, 4)
	broken := success.Bids[1]
	assert.Equal(t, "broken.pdf", broken.Filename)
	assert.Nil(t, broken.Quantity)
	assert.Empty(t, broken.RawText)
}

func TestProcessBidsFallback(t *testing.T) {
	out := newPipeline(1).ProcessBids(context.Background(), nil, "Quantity: 99", files())

	success, ok := out.(*Success)
	require.True(t, ok)
	assert.Equal(t, 0, success.QualifiedBids)
	assert.Equal(t, "alpha.pdf", success.BestBid.Filename)
}

func TestProcessBidsNoFiles(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	out := newPipeline(1).ProcessBids(context.Background(), zap.New(core), "Quantity: 10", nil)

	failure, ok := out.(*Failure)
	require.True(t, ok)
	assert.Equal(t, "No PDF bids found", failure.Message)
	assert.ErrorIs(t, failure, model.ErrNoBids)
	assert.Equal(t, "no PDF bids found", failure.Err.Error())

	assert.Equal(t, 1, observed.FilterMessage("process bids failed").Len())
}

func TestProcessBidsRecoversFromPanic(t *testing.T) {
	out := New(panickingParser{}, 0).ProcessBids(context.Background(), nil, "Quantity: 1",
		[]model.BidFile{model.BidFileFromBytes("a.pdf", nil)})

	failure, ok := out.(*Failure)
	require.True(t, ok)
	assert.Contains(t, failure.Message, "internal error: boom")
}

func TestProcessBidsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := newPipeline(1).ProcessBids(ctx, nil, "Quantity: 10", files())

	failure, ok := out.(*Failure)
	require.True(t, ok)
	assert.Equal(t, "processing cancelled: context canceled", failure.Message)
}

func TestProcessBidsIsIdempotent(t *testing.T) {
	first := newPipeline(1).ProcessBids(context.Background(), nil, "Quantity: 10", files())
	second := newPipeline(1).ProcessBids(context.Background(), nil, "Quantity: 10", files())
	concurrent := newPipeline(3).ProcessBids(context.Background(), nil, "Quantity: 10", files())

	assert.Equal(t, first, second)
	assert.Equal(t, first, concurrent)
}
