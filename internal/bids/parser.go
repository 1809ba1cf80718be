// Package bids turns uploaded bid documents into spec records.
package bids

import (
	"bytes"
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/tender-analyzer/internal/extract"
	"github.com/spigell/tender-analyzer/internal/model"
	"github.com/spigell/tender-analyzer/internal/utils"
)

const defaultMaxLogLength = 200

// TextReader extracts the text layer of a document.
type TextReader interface {
	ReadText(r io.ReaderAt, size int64) (string, error)
}

type Config struct {
	Workers      int   // 1 = sequential
	MaxFileSize  int64 // 0 = no limit
	MaxLogLength int
}

type Parser struct {
	reader TextReader
	cfg    Config
}

func NewParser(reader TextReader, cfg Config) *Parser {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}
	return &Parser{reader: reader, cfg: cfg}
}

// Parse never fails: a bid that cannot be read yields a record with only the filename set.
func (p *Parser) Parse(ctx context.Context, logger *zap.Logger, file model.BidFile) *model.BidSpec {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("filename", file.Name))

	text, err := p.readText(ctx, file)
	if err != nil {
		logger.Warn("failed to parse bid document", zap.Error(err))
		return model.EmptyBid(file.Name)
	}

	bid := extract.Extract(text).Bid(file.Name, text)

	logger.Info("parsed bid specs",
		zap.Bool("quantity_found", bid.Quantity != nil),
		zap.Bool("processor_found", bid.Processor != nil),
		zap.Bool("ram_found", bid.RAM != nil),
		zap.Bool("storage_found", bid.Storage != nil),
	)
	logger.Debug("bid text", zap.String("text_preview", utils.TruncateForLog(text, p.cfg.MaxLogLength)))

	return bid
}

// ParseAll parses every file and returns the records in input order.
func (p *Parser) ParseAll(ctx context.Context, logger *zap.Logger, files []model.BidFile) ([]*model.BidSpec, error) {
	result := make([]*model.BidSpec, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, file := range files {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			result[i] = p.Parse(gctx, logger, file)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "parse bids")
	}
	// Per-file failures never cancel the group, so this only reports the caller's context.
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "parse bids")
	}

	return result, nil
}

func (p *Parser) readText(ctx context.Context, file model.BidFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if file.Open == nil {
		return "", eris.New("bid file has no content")
	}

	data, err := p.readAll(file)
	if err != nil {
		return "", err
	}

	text, err := p.reader.ReadText(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrap(err, "read pdf text")
	}
	return text, nil
}

// readAll owns the handle returned by Open and closes it on every path.
func (p *Parser) readAll(file model.BidFile) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, eris.Wrap(err, "open bid file")
	}
	defer rc.Close()

	var src io.Reader = rc
	if p.cfg.MaxFileSize > 0 {
		src = io.LimitReader(rc, p.cfg.MaxFileSize+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, eris.Wrap(err, "read bid file")
	}
	if p.cfg.MaxFileSize > 0 && int64(len(data)) > p.cfg.MaxFileSize {
		return nil, eris.Errorf("bid file exceeds %d bytes", p.cfg.MaxFileSize)
	}
	return data, nil
}
