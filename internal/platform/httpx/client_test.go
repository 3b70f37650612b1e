// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package httpx

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transportOf(t *testing.T, c *http.Client) *http.Transport {
	t.Helper()
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok, "transport type = %T", c.Transport)
	return tr
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name          string
		timeout       time.Duration
		opts          []Option
		wantTimeout   time.Duration
		wantTLS       time.Duration
		wantHeaderCap time.Duration
	}{
		{
			name:          "zero falls back to default",
			timeout:       0,
			wantTimeout:   defaultClientTimeout,
			wantTLS:       defaultDialTimeout,
			wantHeaderCap: defaultResponseHeaderTimeout,
		},
		{
			name:          "long timeout caps dial and headers",
			timeout:       10 * time.Second,
			wantTimeout:   10 * time.Second,
			wantTLS:       defaultDialTimeout,
			wantHeaderCap: defaultResponseHeaderTimeout,
		},
		{
			name:          "short timeout applies everywhere",
			timeout:       1500 * time.Millisecond,
			wantTimeout:   1500 * time.Millisecond,
			wantTLS:       1500 * time.Millisecond,
			wantHeaderCap: 1500 * time.Millisecond,
		},
		{
			name:          "streaming waits for headers until the clip is ready",
			timeout:       150 * time.Second,
			opts:          []Option{Streaming()},
			wantTimeout:   150 * time.Second,
			wantTLS:       defaultDialTimeout,
			wantHeaderCap: 150 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.timeout, tt.opts...)
			tr := transportOf(t, c)

			assert.Equal(t, tt.wantTimeout, c.Timeout)
			assert.Equal(t, tt.wantTLS, tr.TLSHandshakeTimeout)
			assert.Equal(t, tt.wantHeaderCap, tr.ResponseHeaderTimeout)
			assert.Equal(t, defaultMaxIdleConns, tr.MaxIdleConns)
			assert.Equal(t, defaultMaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
			assert.Equal(t, defaultIdleConnTimeout, tr.IdleConnTimeout)
			assert.NotNil(t, tr.Proxy)
		})
	}
}
