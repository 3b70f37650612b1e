// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"github.com/ManuGH/camrec/internal/validate"
)

// DurationCeiling is the largest clip length the upstream accepts, in seconds.
const DurationCeiling = 120

// Validate validates an AppConfig using the centralized validation package.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("DataDir", cfg.DataDir)
	v.ListenAddr("APIListenAddr", cfg.APIListenAddr)
	if cfg.MetricsListen != "" {
		v.ListenAddr("MetricsListen", cfg.MetricsListen)
	}
	v.URL("UpstreamURL", cfg.UpstreamURL, []string{"http", "https"})
	v.URL("TokenURL", cfg.TokenURL, []string{"http", "https"})
	v.NotEmpty("ClientID", cfg.ClientID)
	v.PositiveFloat("UpstreamRPS", cfg.UpstreamRPS)
	v.Range("BreakerThreshold", cfg.BreakerThreshold, 1, 100)
	v.Range("MaxDuration", cfg.MaxDuration, 1, DurationCeiling)
	v.Range("RateLimitRPM", cfg.RateLimitRPM, 0, 1_000_000)
	v.OneOf("LogLevel", cfg.LogLevel, []string{"trace", "debug", "info", "warn", "error"})

	if cfg.TracingEnabled {
		v.OneOf("TracingExporter", cfg.TracingExporter, []string{"grpc", "http"})
		v.NotEmpty("TracingEndpoint", cfg.TracingEndpoint)
		if cfg.TracingSamplingRate < 0 || cfg.TracingSamplingRate > 1 {
			v.AddError("TracingSamplingRate", "must be between 0 and 1", cfg.TracingSamplingRate)
		}
	}

	return v.Err()
}
