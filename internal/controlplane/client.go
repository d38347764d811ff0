// SPDX-License-Identifier: MIT

// Package controlplane wraps the two flavors of access the game launcher
// exposes on localhost: a Basic-Auth REST API over a self-signed TLS
// certificate, and a WebSocket event stream. Both are reached using
// credentials discovered from the launcher's own process command line
// (see credentials.go).
package controlplane

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout is the default REST request timeout.
const DefaultTimeout = 5 * time.Second

// Client performs REST GETs against the launcher's local API.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithHTTPClient sets a custom HTTP client, overriding the TLS transport
// NewClient built from the discovered certificate chain. Mainly useful in
// tests, which talk to a plain httptest.Server instead of the launcher.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient builds a REST client for the launcher's local API, trusting
// only the certificate chain discovered alongside the credentials (the
// launcher's certificate is self-signed, so the system trust store is
// useless here).
func NewClient(creds Credentials, opts ...ClientOption) (*Client, error) {
	pool := x509.NewCertPool()
	if len(creds.CertChain) > 0 && !pool.AppendCertsFromPEM(creds.CertChain) {
		return nil, fmt.Errorf("controlplane: no certificates parsed from discovered cert chain")
	}

	c := &Client{
		baseURL:   fmt.Sprintf("%s://127.0.0.1:%d", creds.Protocol, creds.Port),
		authToken: creds.AuthToken,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Get issues a REST GET against path and decodes the JSON response body
// into out. A non-2xx response is returned as an error carrying the
// status code, since the core treats REST 4xx/5xx as transient and
// non-fatal (spec.md §7 item 1) — callers decide whether to retry.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth("riot", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("controlplane GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// StatusError is returned for a non-2xx REST response.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("controlplane GET %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Endpoint paths the core consumes (spec.md §4.2). Kept as named
// constants rather than inlined at each call site so C8's retry loop and
// C7's bootstrap GET read as intent rather than magic strings.
const (
	PathSessionPhase     = "/lol-gameflow/v1/session"
	PathPlatformID       = "/riotclient/region-locale"
	PathCurrentSummoner  = "/lol-summoner/v1/current-summoner"
	PathMatchByGameID    = "/lol-match-history/v1/games/%d"
	PathTimelineByGameID = "/lol-match-history/v1/game-timelines/%d"
	PathQueueByID        = "/lol-game-queues/v1/queues/%d"
	PathChampionByKey    = "/lol-champions/v1/inventories/%d/champions/%d"
	PathEogStats         = "/lol-end-of-game/v1/eog-stats-block"
)

// MatchByGameID formats the match-by-game-id endpoint path.
func MatchByGameID(gameID int64) string { return fmt.Sprintf(PathMatchByGameID, gameID) }

// TimelineByGameID formats the timeline-by-game-id endpoint path.
func TimelineByGameID(gameID int64) string { return fmt.Sprintf(PathTimelineByGameID, gameID) }

// QueueByID formats the queue-by-id endpoint path.
func QueueByID(queueID int64) string { return fmt.Sprintf(PathQueueByID, queueID) }

// ChampionByInventoryAndID formats the champion-by-inventory-and-id
// endpoint path.
func ChampionByInventoryAndID(summonerID, championID int64) string {
	return fmt.Sprintf(PathChampionByKey, summonerID, championID)
}
