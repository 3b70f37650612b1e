// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package camera

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/camrec/internal/platform/httpx"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultClientID  = "camrec"
	recordGrace      = 30 * time.Second
	apiCallTimeout   = 15 * time.Second
	locationsFlightK = "locations"
)

// ClientConfig holds the upstream endpoint and credential.
type ClientConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	RefreshToken string

	// RPS paces calls into the cloud API. Zero disables pacing.
	RPS float64

	// MaxRecording bounds the longest clip; the HTTP timeout is derived from it.
	MaxRecording time.Duration
}

// Client talks to the camera cloud REST API.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	group   singleflight.Group
}

// NewClient builds a client authenticated with an OAuth2 refresh token.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.RefreshToken) == "" {
		return nil, fmt.Errorf("camera client: refresh token is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("camera client: base URL is required")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}

	// Long enough for the longest clip plus upload slack.
	base := httpx.NewClient(cfg.MaxRecording+recordGrace, httpx.Streaming())
	base.Transport = otelhttp.NewTransport(base.Transport)

	oauthCfg := &oauth2.Config{
		ClientID: clientID,
		Endpoint: oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
		Scopes:   []string{"client"},
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpx.NewClient(apiCallTimeout))
	source := oauth2.ReuseTokenSource(nil, oauthCfg.TokenSource(tokenCtx, &oauth2.Token{RefreshToken: cfg.RefreshToken}))

	hc := &http.Client{
		Timeout:   base.Timeout,
		Transport: &oauth2.Transport{Source: source, Base: base.Transport},
	}
	return newClient(hc, cfg.BaseURL, cfg.RPS), nil
}

func newClient(hc *http.Client, baseURL string, rps float64) *Client {
	r := resty.NewWithClient(hc).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "camrec")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
	return &Client{http: r, limiter: limiter}
}

type locationsResponse struct {
	Locations []Location `json:"locations"`
}

// ListLocations enumerates every location. Concurrent callers share one request.
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	v, err, _ := c.group.Do(locationsFlightK, func() (any, error) {
		return c.fetchLocations(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.([]Location), nil
}

func (c *Client) fetchLocations(ctx context.Context) ([]Location, error) {
	const op = "ListLocations"
	ctx, cancel := context.WithTimeout(ctx, apiCallTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyTransport(op, err)
	}
	resp, err := c.http.R().SetContext(ctx).Get("/v1/locations")
	if err != nil {
		return nil, classifyTransport(op, err)
	}
	if resp.IsError() {
		return nil, classifyStatus(op, resp.StatusCode(), resp.String())
	}

	var payload locationsResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, &UpstreamError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	for i := range payload.Locations {
		loc := &payload.Locations[i]
		for j := range loc.Cameras {
			loc.Cameras[j].LocationID = loc.ID
		}
	}
	return payload.Locations, nil
}

// FindCamera re-reads the location list and looks the camera up by key.
func (c *Client) FindCamera(ctx context.Context, locationID, cameraID string) (Camera, error) {
	locations, err := c.ListLocations(ctx)
	if err != nil {
		return Camera{}, err
	}
	return FindIn(locations, locationID, cameraID)
}

// RecordToFile streams a clip of length d into path. The file at path must
// already exist; it is truncated and written in place.
func (c *Client) RecordToFile(ctx context.Context, cam Camera, path string, d time.Duration) error {
	const op = "RecordToFile"
	if err := c.limiter.Wait(ctx); err != nil {
		return classifyTransport(op, err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "video/mp4").
		SetPathParams(map[string]string{"location": cam.LocationID, "camera": cam.ID}).
		SetQueryParam("duration", strconv.Itoa(int(d/time.Second))).
		Get("/v1/locations/{location}/cameras/{camera}/clip")
	if err != nil {
		return classifyTransport(op, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		return classifyStatus(op, resp.StatusCode(), string(msg))
	}

	// #nosec G304 -- path is a staged temporary created by the artifact store
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("open clip destination: %w", err)
	}
	n, copyErr := io.Copy(f, body)
	closeErr := f.Close()
	if copyErr != nil {
		return classifyTransport(op, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close clip destination: %w", closeErr)
	}
	if n == 0 {
		return &UpstreamError{Sentinel: ErrBadResponse, Operation: op, Body: "empty clip"}
	}
	return nil
}
