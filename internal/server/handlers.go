package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/spigell/tender-analyzer/internal/logger"
	"github.com/spigell/tender-analyzer/internal/model"
	"github.com/spigell/tender-analyzer/internal/pipeline"
	"github.com/spigell/tender-analyzer/internal/report"
)

const (
	RunIDHeader = "X-Run-ID"

	fieldRequirements = "requirements"
	fieldBids         = "bids"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool           `json:"success" mapstructure:"success"`
	Data    *report.Report `json:"data,omitempty" mapstructure:"data"`
	Message string         `json:"message,omitempty" mapstructure:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	runID := s.newRunID()
	log := logger.WithRun(s.logger, runID)
	w.Header().Set(RunIDHeader, runID)
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("upload too large", zap.Int64("limit", tooLarge.Limit))
			writeFailure(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		log.Warn("invalid form", zap.Error(err))
		writeFailure(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				log.Warn("removing multipart temp files", zap.Error(err))
			}
		}()
	}

	requirements, ok := r.PostForm[fieldRequirements]
	if !ok || len(requirements) == 0 {
		log.Info("request rejected", zap.Error(model.ErrNoRequirements))
		writeFailure(w, http.StatusBadRequest, "Tender requirements not provided")
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File[fieldBids]
	}
	if len(headers) == 0 {
		log.Info("request rejected", zap.Error(model.ErrNoBidFiles))
		writeFailure(w, http.StatusBadRequest, "No bid files uploaded")
		return
	}

	files := bidFiles(log, headers)
	log.Info("analyze request received",
		zap.Int("uploaded", len(headers)),
		zap.Strings("files", model.Names(files)),
	)

	out := s.processor.ProcessBids(r.Context(), log, requirements[0], files)
	switch o := out.(type) {
	case *pipeline.Success:
		writeJSON(w, http.StatusOK, Envelope{Success: true, Data: report.FromSuccess(o)})
		log.Info("analyze request completed", zap.Duration("duration", time.Since(start)))
	case *pipeline.Failure:
		writeFailure(w, http.StatusBadRequest, o.Message)
		log.Info("analyze request failed", zap.String("message", o.Message), zap.Duration("duration", time.Since(start)))
	default:
		writeFailure(w, http.StatusInternalServerError, "internal error: unexpected outcome")
	}
}

// bidFiles keeps uploaded PDFs under their sanitised base names.
func bidFiles(log *zap.Logger, headers []*multipart.FileHeader) []model.BidFile {
	files := make([]model.BidFile, 0, len(headers))
	for _, header := range headers {
		if header.Filename == "" {
			continue
		}

		name := SanitizeFilename(header.Filename)
		if name == "" || !strings.EqualFold(path.Ext(name), ".pdf") {
			log.Debug("skipping non-pdf upload", zap.String(logger.FieldFilename, header.Filename))
			continue
		}

		fh := header
		files = append(files, model.BidFile{
			Name: name,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return model.DedupeBidFiles(files)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var nonASCII = runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })

// SanitizeFilename turns a client supplied name into a safe flat file name:
// accents are folded to ASCII, path separators become underscores, other
// unsafe characters are dropped. The result may be empty.
func SanitizeFilename(name string) string {
	// Chained transformers are stateful.
	fold := transform.Chain(norm.NFKD, runes.Remove(nonASCII))
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = ""
	}
	folded = strings.ReplaceAll(folded, "/", " ")
	folded = strings.Join(strings.Fields(folded), "_")
	folded = unsafeFilenameChars.ReplaceAllString(folded, "")
	return strings.Trim(folded, "._")
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
