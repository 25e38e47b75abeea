// Package transport connects a client to the library server: HTTP for audio,
// status reports and uploads, WebSocket for library updates.
package transport

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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/protocol"
)

// StatusError is returned for a non-2xx HTTP response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL       string
	Timeout       time.Duration // per-request timeout for fetches and uploads
	ReportTimeout time.Duration
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client talks HTTP to the server.
type Client struct {
	base          *url.URL
	http          *http.Client
	timeout       time.Duration
	reportTimeout time.Duration
	log           *zap.Logger
	inflight      sync.WaitGroup
}

// NewClient creates a client for the server at cfg.BaseURL.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = 5 * time.Second
	}
	return &Client{
		base:          base,
		http:          hc,
		timeout:       cfg.Timeout,
		reportTimeout: cfg.ReportTimeout,
		log:           log,
	}, nil
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(msg)),
		}
	}
	return resp, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Fetch downloads the encoded bytes of title.
func (c *Client) Fetch(ctx context.Context, title string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/get-audio", url.Values{"title": {title}}, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio body: %w", err)
	}
	return data, nil
}

// Report posts a status message without waiting for the result. Failures are
// logged.
func (c *Client) Report(action protocol.Action, info protocol.AudioInformation) {
	body, err := protocol.Encode(protocol.Message{Action: action, Payload: info})
	if err != nil {
		c.log.Warn("encode report", zap.Error(err))
		return
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.reportTimeout)
		defer cancel()

		resp, err := c.do(ctx, http.MethodPost, "/action", url.Values{"title": {info.Title}},
			bytes.NewReader(body), "application/json")
		if err != nil {
			c.log.Warn("report failed",
				zap.String("action", string(action)),
				zap.String("title", info.Title),
				zap.Error(err))
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
}

// Wait blocks until every report in flight has finished.
func (c *Client) Wait() {
	c.inflight.Wait()
}

// Upload stores data on the server under title and returns what the server
// decoded.
func (c *Client) Upload(ctx context.Context, title string, data []byte) (protocol.AudioInformation, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.do(ctx, http.MethodPost, "/upload", url.Values{"title": {title}},
		bytes.NewReader(data), "application/octet-stream")
	if err != nil {
		return protocol.AudioInformation{}, err
	}
	defer resp.Body.Close()

	var info protocol.AudioInformation
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return protocol.AudioInformation{}, fmt.Errorf("decode upload response: %w", err)
	}
	return info, nil
}

// Songs returns the library list over HTTP.
func (c *Client) Songs(ctx context.Context) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/songs", nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	list, err := protocol.DecodeSongList(data)
	if err != nil {
		return nil, err
	}
	return list.Songs, nil
}

// WebSocketURL derives the socket endpoint from the HTTP base URL.
func (c *Client) WebSocketURL() string {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = c.base.Path + "/ws"
	u.RawQuery = ""
	return u.String()
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
