// Package pdftext reads the text layer of PDF documents.
package pdftext

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/spigell/tender-analyzer/internal/model"
)

const pageSeparator = "\n"

type Config struct {
	MaxPages int // 0 = no limit
}

type Reader struct {
	cfg    Config
	logger *zap.Logger
}

func NewReader(cfg Config, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPages < 0 {
		cfg.MaxPages = 0
	}
	return &Reader{cfg: cfg, logger: logger}
}

// ReadText returns the text of every page joined with a newline. Pages without
// a usable text layer contribute an empty string. An error is returned only
// when the document cannot be opened at all.
func (r *Reader) ReadText(src io.ReaderAt, size int64) (string, error) {
	doc, err := open(src, size)
	if err != nil {
		return "", err
	}

	pages := doc.NumPage()
	if r.cfg.MaxPages > 0 && pages > r.cfg.MaxPages {
		r.logger.Debug("limiting pages", zap.Int("pages", pages), zap.Int("max_pages", r.cfg.MaxPages))
		pages = r.cfg.MaxPages
	}

	texts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		text, err := pageText(doc, i)
		if err != nil {
			r.logger.Debug("page text is not available", zap.Int("page", i), zap.Error(err))
		}
		texts = append(texts, text)
	}

	return strings.Join(texts, pageSeparator), nil
}

func open(src io.ReaderAt, size int64) (doc *pdf.Reader, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = eris.Wrapf(model.ErrUnreadablePDF, "parser panic: %v", rec)
		}
	}()

	doc, err = pdf.NewReader(src, size)
	if err != nil {
		return nil, eris.Wrapf(model.ErrUnreadablePDF, "open document: %v", err)
	}
	return doc, nil
}

func pageText(doc *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("page %d: %v", num, rec)
		}
	}()

	page := doc.Page(num)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", num)
	}

	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return text, nil
}
