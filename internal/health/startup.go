// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/ManuGH/camrec/internal/config"
	"github.com/ManuGH/camrec/internal/log"
)

var errNotDir = errors.New("not a directory")

// PerformStartupChecks validates the environment before the server starts.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkWritableDir(cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	logger.Info().Str("path", cfg.DataDir).Msg("data directory is writable")

	u, err := url.Parse(cfg.UpstreamURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid upstream URL %q", cfg.UpstreamURL)
	}
	if u.Scheme != "https" {
		logger.Warn().Str(log.FieldBaseURL, cfg.UpstreamURL).Msg("upstream is not using TLS; refresh token is sent in clear text")
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}
