// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment keys.
const (
	EnvRefreshToken     = "CAMREC_REFRESH_TOKEN"
	EnvRefreshTokenRing = "RING_REFRESH_TOKEN"
	EnvDataDir          = "CAMREC_DATA"
	EnvListen           = "CAMREC_LISTEN"
	EnvMetricsListen    = "CAMREC_METRICS_LISTEN"
	EnvUpstreamURL      = "CAMREC_UPSTREAM_URL"
	EnvTokenURL         = "CAMREC_UPSTREAM_TOKEN_URL"
	EnvClientID         = "CAMREC_UPSTREAM_CLIENT_ID"
	EnvUpstreamRPS      = "CAMREC_UPSTREAM_RPS"
	EnvBreakerThreshold = "CAMREC_BREAKER_THRESHOLD"
	EnvMaxDuration      = "CAMREC_MAX_DURATION"
	EnvLogLevel         = "CAMREC_LOG_LEVEL"
	EnvRateLimitRPM     = "CAMREC_RATE_LIMIT_RPM"
	EnvTracingEnabled   = "CAMREC_TRACING_ENABLED"
	EnvTracingExporter  = "CAMREC_TRACING_EXPORTER"
	EnvTracingEndpoint  = "CAMREC_TRACING_ENDPOINT"
	EnvTracingSampling  = "CAMREC_TRACING_SAMPLING_RATE"
)

// Defaults.
const (
	DefaultDataDir          = "."
	DefaultListenAddr       = ":8000"
	DefaultUpstreamURL      = "https://api.ring.com"
	DefaultTokenURL         = "https://oauth.ring.com/oauth/token"
	DefaultClientID         = "camrec"
	DefaultUpstreamRPS      = 5
	DefaultBreakerThreshold = 5
	DefaultMaxDuration      = 120
	DefaultLogLevel         = "info"
	DefaultRateLimitRPM     = 600
	DefaultTracingExporter  = "grpc"
	DefaultTracingSampling  = 1.0
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// validates the result. A missing refresh token is reported as
// ErrMissingCredential.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}
	l.setDefaults(&cfg)

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		l.mergeFileConfig(&cfg, fileCfg)
	}

	l.mergeEnvConfig(&cfg)

	if strings.TrimSpace(cfg.RefreshToken) == "" {
		return cfg, ErrMissingCredential
	}
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.Version = l.version
	cfg.DataDir = DefaultDataDir
	cfg.LogLevel = DefaultLogLevel
	cfg.APIListenAddr = DefaultListenAddr
	cfg.RateLimitRPM = DefaultRateLimitRPM
	cfg.UpstreamURL = DefaultUpstreamURL
	cfg.TokenURL = DefaultTokenURL
	cfg.ClientID = DefaultClientID
	cfg.UpstreamRPS = DefaultUpstreamRPS
	cfg.BreakerThreshold = DefaultBreakerThreshold
	cfg.MaxDuration = DefaultMaxDuration
	cfg.TracingExporter = DefaultTracingExporter
	cfg.TracingSamplingRate = DefaultTracingSampling
	cfg.Server = ServerFile{
		ReadTimeout:     defaultReadTimeout,
		IdleTimeout:     defaultIdleTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// loadFile parses a YAML file strictly: unknown keys and trailing documents
// are errors.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if isYAMLUnknownFieldError(err) {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func isYAMLUnknownFieldError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "field") && strings.Contains(msg, "not found")
}

func (l *Loader) mergeFileConfig(dst *AppConfig, src *FileConfig) {
	if src.DataDir != "" {
		dst.DataDir = expandEnv(src.DataDir)
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.API.ListenAddr != "" {
		dst.APIListenAddr = src.API.ListenAddr
	}
	if src.API.RateLimitRPM != 0 {
		dst.RateLimitRPM = src.API.RateLimitRPM
	}
	if src.Metrics.ListenAddr != "" {
		dst.MetricsListen = src.Metrics.ListenAddr
	}
	if src.Upstream.BaseURL != "" {
		dst.UpstreamURL = src.Upstream.BaseURL
	}
	if src.Upstream.TokenURL != "" {
		dst.TokenURL = src.Upstream.TokenURL
	}
	if src.Upstream.ClientID != "" {
		dst.ClientID = src.Upstream.ClientID
	}
	if src.Upstream.RPS != 0 {
		dst.UpstreamRPS = src.Upstream.RPS
	}
	if src.Upstream.BreakerThreshold != 0 {
		dst.BreakerThreshold = src.Upstream.BreakerThreshold
	}
	if src.Recording.MaxDuration != 0 {
		dst.MaxDuration = src.Recording.MaxDuration
	}
	if src.Tracing.Enabled != nil {
		dst.TracingEnabled = *src.Tracing.Enabled
	}
	if src.Tracing.Exporter != "" {
		dst.TracingExporter = src.Tracing.Exporter
	}
	if src.Tracing.Endpoint != "" {
		dst.TracingEndpoint = src.Tracing.Endpoint
	}
	if src.Tracing.SamplingRate != 0 {
		dst.TracingSamplingRate = src.Tracing.SamplingRate
	}
	if src.Server.ReadTimeout > 0 {
		dst.Server.ReadTimeout = src.Server.ReadTimeout
	}
	if src.Server.IdleTimeout > 0 {
		dst.Server.IdleTimeout = src.Server.IdleTimeout
	}
	if src.Server.ShutdownTimeout > 0 {
		dst.Server.ShutdownTimeout = src.Server.ShutdownTimeout
	}
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.RefreshToken = ParseStringWithAlias(EnvRefreshToken, EnvRefreshTokenRing, "")
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.APIListenAddr = ParseString(EnvListen, cfg.APIListenAddr)
	cfg.RateLimitRPM = ParseInt(EnvRateLimitRPM, cfg.RateLimitRPM)
	cfg.MetricsListen = ParseString(EnvMetricsListen, cfg.MetricsListen)
	cfg.UpstreamURL = ParseString(EnvUpstreamURL, cfg.UpstreamURL)
	cfg.TokenURL = ParseString(EnvTokenURL, cfg.TokenURL)
	cfg.ClientID = ParseString(EnvClientID, cfg.ClientID)
	cfg.UpstreamRPS = ParseFloat(EnvUpstreamRPS, cfg.UpstreamRPS)
	cfg.BreakerThreshold = ParseInt(EnvBreakerThreshold, cfg.BreakerThreshold)
	cfg.MaxDuration = ParseInt(EnvMaxDuration, cfg.MaxDuration)

	cfg.TracingEndpoint = ParseString(EnvTracingEndpoint, cfg.TracingEndpoint)
	cfg.TracingExporter = ParseString(EnvTracingExporter, cfg.TracingExporter)
	cfg.TracingSamplingRate = ParseFloat(EnvTracingSampling, cfg.TracingSamplingRate)
	// Setting an exporter or endpoint opts into tracing unless explicitly disabled.
	if _, ok := os.LookupEnv(EnvTracingExporter); ok || cfg.TracingEndpoint != "" {
		cfg.TracingEnabled = true
	}
	cfg.TracingEnabled = ParseBool(EnvTracingEnabled, cfg.TracingEnabled)
}
