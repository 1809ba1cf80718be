package client

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/tender-analyzer/internal/model"
	"github.com/spigell/tender-analyzer/internal/pipeline"
	"github.com/spigell/tender-analyzer/internal/server"
)

type fakeProcessor struct {
	outcome pipeline.Outcome
	tender  string
	names   []string
}

func (p *fakeProcessor) ProcessBids(_ context.Context, _ *zap.Logger, tenderText string, files []model.BidFile) pipeline.Outcome {
	p.tender = tenderText
	p.names = model.Names(files)
	return p.outcome
}

func ptr[T any](v T) *T { return &v }

func noWait(context.Context, time.Duration) error { return nil }

func TestAnalyzeBidsAgainstServer(t *testing.T) {
	best := &model.BidSpec{Filename: "b.pdf", Quantity: ptr(10), Processor: ptr("Intel i7"), RawText: "Quantity: 10 i7"}
	processor := &fakeProcessor{outcome: &pipeline.Success{
		Tender:        model.TenderSpec{Item: model.DefaultItem, Quantity: 10, Processor: "Intel i7", RAM: model.Unknown, Storage: model.Unknown},
		BestBid:       best,
		QualifiedBids: 1,
		Bids:          []*model.BidSpec{{Filename: "a.pdf"}, best},
	}}

	srv := httptest.NewServer(server.New(server.Config{}, "token", processor, zap.NewNop(), "test").Handler())
	defer srv.Close()

	c := New(context.Background(), zap.NewNop(), srv.URL+"/", "token")
	result, err := c.AnalyzeBids("Quantity: 10", []model.BidFile{
		model.BidFileFromBytes("a.pdf", []byte("a")),
		model.BidFileFromBytes("b.pdf", []byte("b")),
	})
	require.NoError(t, err)

	assert.Equal(t, "Quantity: 10", processor.tender)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, processor.names)

	assert.Equal(t, processor.outcome.(*pipeline.Success).Tender, result.Requirements)
	assert.Equal(t, 1, result.QualifiedBids)
	require.NotNil(t, result.BestBid)
	assert.Equal(t, "b.pdf", result.BestBid.Filename)
	require.NotNil(t, result.BestBid.Quantity)
	assert.Equal(t, 10, *result.BestBid.Quantity)
	assert.Equal(t, "Intel i7", *result.BestBid.Processor)
	assert.Nil(t, result.BestBid.RAM)
	assert.Equal(t, "Quantity: 10 i7", result.BestBid.RawText)
	assert.Empty(t, result.Bids)
}

func TestAnalyzeBidsFailure(t *testing.T) {
	processor := &fakeProcessor{outcome: &pipeline.Failure{Message: "No PDF bids found"}}
	srv := httptest.NewServer(server.New(server.Config{}, "", processor, zap.NewNop(), "test").Handler())
	defer srv.Close()

	c := New(context.Background(), zap.NewNop(), srv.URL, "")
	_, err := c.AnalyzeBids("Quantity: 10", []model.BidFile{model.BidFileFromBytes("a.pdf", []byte("a"))})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "No PDF bids found", apiErr.Message)
}

func TestAnalyzeBidsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(server.New(server.Config{}, "token", &fakeProcessor{}, zap.NewNop(), "test").Handler())
	defer srv.Close()

	c := New(context.Background(), zap.NewNop(), srv.URL, "wrong")
	_, err := c.AnalyzeBids("x", []model.BidFile{model.BidFileFromBytes("a.pdf", []byte("a"))})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestAnalyzeBidsRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "x", r.PostForm.Get("requirements"))
		assert.Len(t, r.MultipartForm.File["bids"], 1)

		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"success":false,"message":"Too many requests"}`)
			return
		}

		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		_ = json.NewEncoder(gz).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"requirements":  map[string]any{"item": "Laptop", "quantity": 3},
				"bestBid":       map[string]any{"filename": "a.pdf", "quantity": nil},
				"qualifiedBids": 0,
			},
		})
	}))
	defer srv.Close()

	var delays []time.Duration
	c := New(context.Background(), zap.NewNop(), srv.URL, "")
	c.wait = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	result, err := c.AnalyzeBids("x", []model.BidFile{model.BidFileFromBytes("a.pdf", []byte("a"))})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, delays)
	assert.Equal(t, 3, result.Requirements.Quantity)
	assert.Equal(t, "a.pdf", result.BestBid.Filename)
	assert.Nil(t, result.BestBid.Quantity)
}

func TestAnalyzeBidsGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"success":false,"message":"Too many requests"}`)
	}))
	defer srv.Close()

	c := New(context.Background(), zap.NewNop(), srv.URL, "")
	c.wait = noWait
	c.MaxRetries = 1

	_, err := c.AnalyzeBids("x", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnalyzeBidsBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	}))
	defer srv.Close()

	c := New(context.Background(), zap.NewNop(), srv.URL, "")
	_, err := c.AnalyzeBids("x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad response")
}

func TestAnalyzeBidsOpenFailure(t *testing.T) {
	c := New(context.Background(), zap.NewNop(), "http://127.0.0.1:0", "")
	_, err := c.AnalyzeBids("x", []model.BidFile{{Name: "a.pdf", Open: func() (io.ReadCloser, error) {
		return nil, eris.New("gone")
	}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `open bid "a.pdf"`)
}

func TestRetryDelay(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, time.Second, retryDelay(resp, 1))
	assert.Equal(t, 4*time.Second, retryDelay(resp, 3))

	resp.Header.Set("Retry-After", "5")
	assert.Equal(t, 5*time.Second, retryDelay(resp, 3))

	resp.Header.Set("Retry-After", "Wed, 21 Oct 2026 07:28:00 GMT")
	assert.Equal(t, 2*time.Second, retryDelay(resp, 2))
}
