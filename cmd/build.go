package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/tender-analyzer/internal/bids"
	"github.com/spigell/tender-analyzer/internal/client"
	"github.com/spigell/tender-analyzer/internal/model"
	"github.com/spigell/tender-analyzer/internal/pdftext"
	"github.com/spigell/tender-analyzer/internal/pipeline"
	"github.com/spigell/tender-analyzer/internal/secrets"
)

const (
	serverTokenEnv = envPrefix + "_SERVER_TOKEN"
	remoteTokenEnv = envPrefix + "_REMOTE_TOKEN"
)

func newPipeline(cfg PipelineConfig, logger *zap.Logger) *pipeline.Pipeline {
	reader := pdftext.NewReader(pdftext.Config{MaxPages: cfg.MaxPages}, logger)
	parser := bids.NewParser(reader, bids.Config{
		Workers:      cfg.Workers,
		MaxFileSize:  cfg.MaxFileSize,
		MaxLogLength: cfg.MaxLogLength,
	})
	return pipeline.New(parser, cfg.MaxLogLength)
}

func newClient(ctx context.Context, cfg RemoteConfig, url string, logger *zap.Logger) (*client.Client, error) {
	token, err := secrets.Optional(secrets.Source{
		Name: "remote token",
		File: cfg.TokenFile,
		Env:  remoteTokenEnv,
	})
	if err != nil {
		return nil, err
	}

	c := client.New(ctx, logger, url, token)
	if cfg.Timeout > 0 {
		c.HTTPClient.Timeout = cfg.Timeout
	}
	if cfg.MaxRetries >= 0 {
		c.MaxRetries = cfg.MaxRetries
	}
	c.UserAgent = fmt.Sprintf("%s/%s", app, version)
	return c, nil
}

func serverToken(tokenFile string) (string, error) {
	return secrets.Optional(secrets.Source{
		Name: "server token",
		File: tokenFile,
		Env:  serverTokenEnv,
	})
}

// readRequirements returns the inline text or the content of file. Inline text wins.
func readRequirements(text, file string) (string, error) {
	if text != "" {
		return text, nil
	}
	if strings.TrimSpace(file) == "" {
		return "", model.ErrNoRequirements
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading requirements file %q: %w", file, err)
	}
	return string(data), nil
}

// collectBidFiles gathers the explicit paths followed by every *.pdf in dir, sorted by name.
func collectBidFiles(paths []string, dir string) ([]model.BidFile, error) {
	files := make([]model.BidFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, model.BidFileFromPath(p))
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading bids directory: %w", err)
		}

		var found []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
				continue
			}
			found = append(found, filepath.Join(dir, entry.Name()))
		}
		sort.Strings(found)

		for _, p := range found {
			files = append(files, model.BidFileFromPath(p))
		}
	}

	if len(files) == 0 {
		return nil, model.ErrNoBidFiles
	}
	return model.DedupeBidFiles(files), nil
}
