// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// FileConfig represents the YAML configuration structure.
type FileConfig struct {
	DataDir   string          `yaml:"dataDir,omitempty"`
	LogLevel  string          `yaml:"logLevel,omitempty"`
	API       APIConfig       `yaml:"api,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
	Upstream  UpstreamConfig  `yaml:"upstream,omitempty"`
	Recording RecordingConfig `yaml:"recording,omitempty"`
	Tracing   TracingConfig   `yaml:"tracing,omitempty"`
	Server    ServerFile      `yaml:"server,omitempty"`
}

// APIConfig holds the public HTTP surface settings.
type APIConfig struct {
	ListenAddr   string `yaml:"listenAddr,omitempty"`
	RateLimitRPM int    `yaml:"rateLimitRPM,omitempty"`
}

// MetricsConfig holds the prometheus listener. Empty disables it.
type MetricsConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

// UpstreamConfig holds the camera cloud client settings.
type UpstreamConfig struct {
	BaseURL          string  `yaml:"baseURL,omitempty"`
	TokenURL         string  `yaml:"tokenURL,omitempty"`
	ClientID         string  `yaml:"clientID,omitempty"`
	RPS              float64 `yaml:"rps,omitempty"`
	BreakerThreshold int     `yaml:"breakerThreshold,omitempty"`
}

// RecordingConfig bounds recording requests.
type RecordingConfig struct {
	// MaxDuration is the largest accepted clip length in seconds.
	MaxDuration int `yaml:"maxDuration,omitempty"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      *bool   `yaml:"enabled,omitempty"`
	Exporter     string  `yaml:"exporter,omitempty"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty"`
}

// ServerFile holds optional HTTP server timeouts.
type ServerFile struct {
	ReadTimeout     time.Duration `yaml:"readTimeout,omitempty"`
	IdleTimeout     time.Duration `yaml:"idleTimeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`
}

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version string

	DataDir  string
	LogLevel string

	// RefreshToken authenticates against the camera cloud. Never logged.
	RefreshToken string `json:"-"`

	APIListenAddr    string
	RateLimitRPM     int
	MetricsListen    string
	UpstreamURL      string
	TokenURL         string
	ClientID         string
	UpstreamRPS      float64
	BreakerThreshold int
	MaxDuration      int

	TracingEnabled      bool
	TracingExporter     string
	TracingEndpoint     string
	TracingSamplingRate float64

	Server ServerFile
}
