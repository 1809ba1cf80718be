package client

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/spigell/tender-analyzer/internal/model"
	"github.com/spigell/tender-analyzer/internal/report"
	"github.com/spigell/tender-analyzer/internal/utils"
)

const (
	analyzePath     = "/api/analyze-bids"
	acceptEncoding  = "gzip"
	fieldRequire    = "requirements"
	fieldBids       = "bids"
	runIDHeader     = "X-Run-ID"
	retryAfterLimit = 60
)

// APIError is a response the server answered with success=false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool           `mapstructure:"success"`
	Message string         `mapstructure:"message"`
	Data    map[string]any `mapstructure:"data"`
}

// AnalyzeBids uploads the tender text and bid documents and returns the server's report.
func (c *Client) AnalyzeBids(requirements string, files []model.BidFile) (*report.Report, error) {
	body, contentType, err := buildForm(requirements, files)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.BaseURL+analyzePath, bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "build request")
		}
		req = c.setHeaders(req)
		req.Header.Set("Content-Type", contentType)

		resp, err := c.request(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.MaxRetries {
			resp.Body.Close()
			delay := retryDelay(resp, attempt+1)
			c.logger.Warn("rate limited by server, retrying",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			if err := c.wait(c.ctx, delay); err != nil {
				return nil, eris.Wrap(err, "waiting for retry")
			}
			continue
		}

		return c.parseResponse(resp)
	}
}

func (c *Client) parseResponse(resp *http.Response) (*report.Report, error) {
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "open gzip body")
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}

	c.logger.Debug("got response from server",
		zap.Int("status", resp.StatusCode),
		zap.String("run_id", resp.Header.Get(runIDHeader)),
	)

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "bad response (status %s): %s", resp.Status, utils.TruncateForLog(string(data), 200))
	}

	var env envelope
	if err := mapstructure.Decode(raw, &env); err != nil {
		return nil, eris.Wrap(err, "decode envelope")
	}

	if !env.Success || resp.StatusCode != http.StatusOK {
		message := env.Message
		if message == "" {
			message = resp.Status
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	var result report.Report
	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &result,
		TagName:  "mapstructure",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "create decoder")
	}
	if err := decoder.Decode(env.Data); err != nil {
		return nil, eris.Wrap(err, "decode report")
	}

	return &result, nil
}

func buildForm(requirements string, files []model.BidFile) ([]byte, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	if err := w.WriteField(fieldRequire, requirements); err != nil {
		return nil, "", eris.Wrap(err, "write requirements")
	}

	for _, file := range files {
		if err := copyFile(w, file); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", eris.Wrap(err, "close form")
	}
	return b.Bytes(), w.FormDataContentType(), nil
}

func copyFile(w *multipart.Writer, file model.BidFile) error {
	if file.Open == nil {
		return eris.Errorf("bid %q has no content", file.Name)
	}
	rc, err := file.Open()
	if err != nil {
		return eris.Wrapf(err, "open bid %q", file.Name)
	}
	defer rc.Close()

	part, err := w.CreateFormFile(fieldBids, file.Name)
	if err != nil {
		return eris.Wrap(err, "create form file")
	}
	if _, err := io.Copy(part, rc); err != nil {
		return eris.Wrapf(err, "copy bid %q", file.Name)
	}
	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "send request")
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set("Accept", "application/json")

	return req
}

// retryDelay honours a Retry-After header in seconds and falls back to exponential backoff.
func retryDelay(resp *http.Response, attempt int) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 && secs <= retryAfterLimit {
			return time.Duration(secs) * time.Second
		}
	}
	return utils.Backoff(retryBaseDelay, retryMaxDelay, attempt)
}
