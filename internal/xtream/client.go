package xtream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/voyagen/xtreamrelay/internal/log"
	"github.com/voyagen/xtreamrelay/internal/metrics"
	"github.com/voyagen/xtreamrelay/internal/models"
)

const (
	// RequestTimeout bounds every upstream call.
	RequestTimeout = 15 * time.Second
	// DefaultUserAgent is sent on every upstream request unless overridden at construction.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	apiPath         = "/player_api.php"
	maxResponseSize = 128 << 20

	actionLiveCategories = "get_live_categories"
	actionLiveStreams    = "get_live_streams"
	actionShortEPG       = "get_short_epg"
)

// Client talks to one provider account through the player_api endpoint.
// A Client is meant for a single logical operation but is safe to reuse.
type Client struct {
	creds      models.Credentials
	userAgent  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient shares a transport between clients. The request timeout is
// enforced per call regardless of the client's own Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewHTTPClient returns an http.Client suitable for sharing across Clients.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: RequestTimeout}
}

// New returns a Client for creds.
func New(creds models.Credentials, opts ...Option) *Client {
	c := &Client{
		creds:     creds,
		userAgent: DefaultUserAgent,
		logger:    xlog.WithComponent("xtream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient()
	}
	return c
}

// Credentials returns the credentials the client was built with.
func (c *Client) Credentials() models.Credentials {
	return c.creds
}

// Authenticate fetches the account payload (user_info/server_info).
func (c *Client) Authenticate(ctx context.Context) (*AuthResult, error) {
	c.logger.Debug().Str("username", c.creds.Username).Msg("authentication attempt")
	body, err := c.get(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	return parseAuth(body)
}

// ListCategories returns the live categories in upstream order.
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	body, err := c.get(ctx, actionLiveCategories, nil)
	if err != nil {
		return nil, err
	}
	if !isJSONArray(body) {
		return nil, badFormat("live categories: expected array")
	}
	var cats []models.Category
	if err := json.Unmarshal(body, &cats); err != nil {
		return nil, badFormat("live categories: " + err.Error())
	}
	c.logger.Debug().Int("count", len(cats)).Msg("retrieved categories")
	return cats, nil
}

// ListStreams returns live channels, optionally restricted to one category and
// filtered by a case-insensitive name search. Derived URLs are synthesized
// after filtering.
func (c *Client) ListStreams(ctx context.Context, categoryID, search string) ([]models.Channel, error) {
	var params url.Values
	if models.ID(strings.TrimSpace(categoryID)).Present() {
		params = url.Values{"category_id": {strings.TrimSpace(categoryID)}}
	}
	body, err := c.get(ctx, actionLiveStreams, params)
	if err != nil {
		return nil, err
	}
	if !isJSONArray(body) {
		return nil, badFormat("live streams: expected array")
	}
	var channels []models.Channel
	if err := json.Unmarshal(body, &channels); err != nil {
		return nil, badFormat("live streams: " + err.Error())
	}

	channels = FilterByName(channels, search)
	DeriveURLs(c.creds, channels)

	c.logger.Debug().
		Str("category_id", categoryID).
		Int("count", len(channels)).
		Msg("retrieved streams")
	return channels, nil
}

// GetStreamGuide returns the short EPG payload for streamID verbatim.
func (c *Client) GetStreamGuide(ctx context.Context, streamID string) (json.RawMessage, error) {
	body, err := c.get(ctx, actionShortEPG, url.Values{"stream_id": {streamID}})
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, badFormat("short epg: invalid JSON")
	}
	return json.RawMessage(body), nil
}

// ExportPlaylist renders the live channels as an extended M3U document, one
// EXTINF block per channel that has a stream id. Channels without one have no
// playable URL and are left out. ok is false when the upstream catalog was not
// a usable list; transport and upstream failures are still returned as errors.
func (c *Client) ExportPlaylist(ctx context.Context) (playlist string, ok bool, err error) {
	channels, err := c.ListStreams(ctx, "", "")
	if err != nil {
		if errors.Is(err, ErrFormat) {
			c.logger.Warn().Err(err).Msg("nothing to export")
			return "", false, nil
		}
		return "", false, err
	}
	var b strings.Builder
	n, err := WritePlaylist(&b, channels)
	if err != nil {
		return "", false, fmt.Errorf("write playlist: %w", err)
	}
	metrics.RecordPlaylist(n)
	return b.String(), true, nil
}

// get performs one GET against the API endpoint. Caller cancellation is not
// propagated; only RequestTimeout ends the call early.
func (c *Client) get(ctx context.Context, action string, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RequestTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("username", c.creds.Username)
	q.Set("password", c.creds.Password)
	if action != "" {
		q.Set("action", action)
	}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.creds.Server+apiPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, unreachable("build request: invalid server address")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	body, err := c.do(req)
	metrics.RecordUpstream(action, outcome(err), time.Since(start))
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("action", action).
			Str("username", c.creds.Username).
			Msg("upstream request failed")
		return nil, err
	}
	return body, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unreachable(transportCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{Message: fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, unreachable(transportCause(err))
	}
	return body, nil
}

// transportCause describes err without the request URL, which carries the
// password in its query string.
func transportCause(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return fmt.Sprintf("no response within %s", RequestTimeout)
		}
		err = uerr.Err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("no response within %s", RequestTimeout)
	}
	return err.Error()
}

func isJSONArray(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '['
}
