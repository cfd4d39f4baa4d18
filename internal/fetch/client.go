package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/five82/dailystrip/internal/strip"
)

// Errors returned by Fetch. Every failure wraps exactly one of them.
var (
	ErrNetwork           = errors.New("network error")
	ErrTimeout           = errors.New("timeout")
	ErrMalformedResponse = errors.New("malformed response")
)

// Outcome classifies a fetch attempt.
type Outcome int

const (
	// Unchanged means the source reported nothing new.
	Unchanged Outcome = iota
	// Updated means a new strip was downloaded.
	Updated
	// Failed means the attempt returned an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is a successful fetch. Strip is only set when Outcome is Updated.
type Result struct {
	Outcome Outcome
	Strip   strip.Strip
}

// Fetcher retrieves the current strip. It is implemented by *Client and can
// be replaced in tests.
type Fetcher interface {
	Fetch(ctx context.Context, previous strip.Checksum) (Result, error)
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

// Client downloads strips over HTTP.
type Client struct {
	sourceURL *url.URL
	http      *http.Client
	userAgent string
	maxBytes  int64
}

const (
	defaultUserAgent = "dailystrip/0.1"
	requestTimeout   = 30 * time.Second
	maxImageBytes    = 16 << 20
	maxPageBytes     = 2 << 20

	// TitleHeader carries the strip caption on direct image responses.
	TitleHeader = "X-Strip-Title"
)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient builds a Client for the given strip source URL.
func NewClient(sourceURL string, opts ...Option) (*Client, error) {
	u, err := parseSourceURL(sourceURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		sourceURL: u,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
		maxBytes:  maxImageBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SourceURL returns the configured strip source.
func (c *Client) SourceURL() string {
	if c == nil || c.sourceURL == nil {
		return ""
	}
	return c.sourceURL.String()
}

// Fetch performs one conditional fetch of the current strip. previous is
// sent as an entity tag so the source can answer 304 Not Modified; the
// downloaded bytes are also compared against it, so sources without
// conditional support still yield Unchanged for identical content.
func (c *Client) Fetch(ctx context.Context, previous strip.Checksum) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("client is nil")
	}

	resp, err := c.get(ctx, c.sourceURL, previous)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return Result{Outcome: Unchanged}, nil
	}
	if err := checkStatus(c.sourceURL, resp); err != nil {
		return Result{}, err
	}

	if isHTML(resp.Header.Get("Content-Type")) {
		page, err := c.readBody(resp, maxPageBytes)
		if err != nil {
			return Result{}, err
		}
		ref, err := parseStripPage(page, c.sourceURL)
		if err != nil {
			return Result{}, err
		}
		return c.fetchImage(ctx, ref, previous)
	}

	return c.imageResult(resp, c.sourceURL, "", previous)
}

func (c *Client) fetchImage(ctx context.Context, ref pageRef, previous strip.Checksum) (Result, error) {
	resp, err := c.get(ctx, ref.imageURL, previous)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return Result{Outcome: Unchanged}, nil
	}
	if err := checkStatus(ref.imageURL, resp); err != nil {
		return Result{}, err
	}
	if isHTML(resp.Header.Get("Content-Type")) {
		return Result{}, fmt.Errorf("%w: strip image %s is an html page", ErrMalformedResponse, ref.imageURL)
	}
	return c.imageResult(resp, ref.imageURL, ref.title, previous)
}

func (c *Client) imageResult(resp *http.Response, src *url.URL, title string, previous strip.Checksum) (Result, error) {
	body, err := c.readBody(resp, c.maxBytes)
	if err != nil {
		return Result{}, err
	}
	if len(body) == 0 {
		return Result{}, fmt.Errorf("%w: empty strip image from %s", ErrMalformedResponse, src)
	}
	if strip.Sum(body) == previous {
		return Result{Outcome: Unchanged}, nil
	}

	if t := strings.TrimSpace(resp.Header.Get(TitleHeader)); t != "" {
		title = t
	}
	if title == "" {
		title = dispositionName(resp.Header.Get("Content-Disposition"))
	}
	if title == "" {
		title = path.Base(src.Path)
		if title == "/" || title == "." {
			title = src.Host
		}
	}

	s := strip.New(body, strip.Meta{
		Title:       title,
		SourceURL:   src.String(),
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   time.Now(),
	})
	return Result{Outcome: Updated, Strip: s}, nil
}

func (c *Client) get(ctx context.Context, u *url.URL, previous strip.Checksum) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "image/*, text/html;q=0.8")
	req.Header.Set("User-Agent", c.userAgent)
	if !previous.Empty() {
		req.Header.Set("If-None-Match", `"`+string(previous)+`"`)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	return resp, nil
}

func (c *Client) readBody(resp *http.Response, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, classifyTransport(err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedResponse, limit)
	}
	return body, nil
}

func checkStatus(u *url.URL, resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrMalformedResponse, u.String(), resp.StatusCode)
	}
	return nil
}

func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func dispositionName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := params["filename"]
	return strings.TrimSuffix(name, path.Ext(name))
}

func parseSourceURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("source url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse source url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported source url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("source url %q has no host", raw)
	}
	u.Fragment = ""
	return u, nil
}
