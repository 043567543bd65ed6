package platforms

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"

	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/models"
	"github.com/socialsync/socialsync/pkg/headers"
)

const (
	defaultUserAgent = "socialsync/1.0 (+https://github.com/socialsync/socialsync)"
	chromeUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxErrorBody     = 4 << 10
)

// Observer is told about every upstream round trip. status is 0 on transport errors.
type Observer func(platform, operation string, status int, elapsed time.Duration)

// QuotaObserver receives the rate limit state parsed from response headers.
type QuotaObserver func(q headers.Quota)

// Client is the shared outbound HTTP client for every platform adapter.
type Client struct {
	http      *http.Client
	useUTLS   bool
	userAgent string
	observe   Observer
	quotas    *headers.Registry
	onQuota   QuotaObserver
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying client; tests point it at httptest servers.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithObserver installs a round-trip observer (metrics).
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		c.observe = o
	}
}

// WithQuotaObserver reports rate limit headers from every response that carries them.
func WithQuotaObserver(o QuotaObserver) ClientOption {
	return func(c *Client) {
		c.onQuota = o
	}
}

// NewClient builds the upstream client. With cfg.UTLS the TLS handshake
// presents a Chrome fingerprint and requests carry matching browser headers.
func NewClient(cfg config.UpstreamConfig, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(cfg.UTLS),
		},
		useUTLS:   cfg.UTLS,
		userAgent: defaultUserAgent,
		quotas:    headers.NewRegistry(),
	}
	if cfg.UTLS {
		c.userAgent = chromeUserAgent
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req, applying default headers and reporting to the observer.
// Transport errors never carry the request query.
func (c *Client) Do(req *http.Request, platform, operation string) (*http.Response, error) {
	c.applyHeaders(req)
	start := time.Now()
	resp, err := c.http.Do(req)
	if c.observe != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.observe(platform, operation, status, time.Since(start))
	}
	if resp != nil && c.onQuota != nil {
		if q, qerr := c.quotas.Parse(models.Platform(platform), resp.Header); qerr == nil {
			c.onQuota(*q)
		}
	}
	if err != nil {
		return resp, stripURL(err)
	}
	return resp, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.useUTLS && req.Header.Get("Sec-CH-UA") == "" {
		req.Header.Set("Sec-CH-UA", `"Chromium";v="120", "Not(A:Brand";v="8", "Google Chrome";v="120"`)
		req.Header.Set("Sec-CH-UA-Platform", `"Windows"`)
	}
}

// request describes one upstream call.
type request struct {
	platform  string
	operation string
	method    string
	url       string
	form      url.Values
	header    http.Header
	basicUser string
	basicPass string
}

// doJSON performs the call and decodes a 2xx JSON body into out. Non-2xx
// responses become ErrUpstreamStatus; the body is discarded, never logged.
func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.form != nil && r.method != http.MethodGet {
		body = strings.NewReader(r.form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", r.platform, r.operation, err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if r.basicUser != "" {
		req.SetBasicAuth(r.basicUser, r.basicPass)
	}

	resp, err := c.Do(req, r.platform, r.operation)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.platform, r.operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return &errors.ErrUpstreamStatus{Endpoint: r.platform + " " + r.operation, StatusCode: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.platform, r.operation, err)
	}
	return nil
}

// stripURL drops the query from transport errors. Graph endpoints carry
// client_secret, code and access_token as query parameters.
func stripURL(err error) error {
	var ue *url.Error
	if !stderrors.As(err, &ue) {
		return err
	}
	redacted := ue.URL
	if u, perr := url.Parse(ue.URL); perr == nil {
		u.RawQuery = ""
		u.Fragment = ""
		u.User = nil
		redacted = u.String()
	} else if i := strings.IndexByte(redacted, '?'); i >= 0 {
		redacted = redacted[:i]
	}
	return &url.Error{Op: ue.Op, URL: redacted, Err: ue.Err}
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

// withQuery appends params to base, keeping any query already present.
func withQuery(base string, params url.Values) string {
	if len(params) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + params.Encode()
}

func newTransport(useUTLS bool) http.RoundTripper {
	if !useUTLS {
		return &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			rawConn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host := addr
			if strings.Contains(addr, ":") {
				host, _, _ = net.SplitHostPort(addr)
			}
			uconn := utls.UClient(rawConn, &utls.Config{ServerName: host, NextProtos: []string{"http/1.1"}}, utls.HelloChrome_120)
			if err := uconn.HandshakeContext(ctx); err != nil {
				_ = rawConn.Close()
				return nil, err
			}
			return uconn, nil
		},
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}
}
