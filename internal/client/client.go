// Package client talks to a remote tender-analyzer server.
package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/tender-analyzer/internal/utils"
)

const (
	userAgent         = "spigell/tender-analyzer"
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2
	retryBaseDelay    = time.Second
	retryMaxDelay     = 30 * time.Second
)

type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
	// MaxRetries is how many times a rate limited request is repeated.
	MaxRetries int

	wait func(ctx context.Context, d time.Duration) error
}

// New creates a client for the server at baseURL. An empty token sends no Authorization header.
func New(ctx context.Context, logger *zap.Logger, baseURL, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		ctx:    ctx,
		token:  token,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		UserAgent:  userAgent,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		MaxRetries: defaultMaxRetries,
		wait:       utils.WaitFor,
	}
}
