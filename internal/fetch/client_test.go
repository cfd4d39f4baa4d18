package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/five82/dailystrip/internal/strip"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-strip-bytes")

func TestParseSourceURL(t *testing.T) {
	u, err := parseSourceURL("example.com/today#frag")
	if err != nil {
		t.Fatalf("parseSourceURL returned error: %v", err)
	}
	if u.Scheme != "https" || u.Host != "example.com" || u.Path != "/today" || u.Fragment != "" {
		t.Fatalf("parseSourceURL = %q, want https://example.com/today", u.String())
	}

	for _, bad := range []string{"", "   ", "ftp://example.com/x", "http://"} {
		if _, err := parseSourceURL(bad); err == nil {
			t.Fatalf("parseSourceURL(%q) returned nil error", bad)
		}
	}
}

func TestClient_NotModifiedYieldsUnchanged(t *testing.T) {
	t.Parallel()

	previous := strip.Sum(pngBytes)
	var gotIfNoneMatch, gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIfNoneMatch = r.Header.Get("If-None-Match")
		gotUserAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNotModified)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL + "/strip")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	res, err := c.Fetch(context.Background(), previous)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if res.Outcome != Unchanged {
		t.Fatalf("Outcome = %v, want unchanged", res.Outcome)
	}
	if !res.Strip.IsMissing() {
		t.Fatalf("Unchanged result should not carry a strip")
	}
	if gotIfNoneMatch != `"`+string(previous)+`"` {
		t.Fatalf("If-None-Match = %q, want quoted checksum", gotIfNoneMatch)
	}
	if !strings.HasPrefix(gotUserAgent, "dailystrip/") {
		t.Fatalf("User-Agent = %q, want dailystrip/*", gotUserAgent)
	}
}

func TestClient_NewImageYieldsUpdated(t *testing.T) {
	t.Parallel()

	var gotIfNoneMatch string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIfNoneMatch = r.Header.Get("If-None-Match")
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set(TitleHeader, "Tuesday strip")
		_, _ = w.Write(pngBytes)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithUserAgent("tests/1"))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	res, err := c.Fetch(context.Background(), strip.EmptyChecksum)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if res.Outcome != Updated {
		t.Fatalf("Outcome = %v, want updated", res.Outcome)
	}
	if res.Strip.Checksum() != strip.Sum(pngBytes) {
		t.Fatalf("Checksum = %q, want %q", res.Strip.Checksum(), strip.Sum(pngBytes))
	}
	if res.Strip.Title() != "Tuesday strip" {
		t.Fatalf("Title = %q, want Tuesday strip", res.Strip.Title())
	}
	if res.Strip.ContentType() != "image/png" {
		t.Fatalf("ContentType = %q, want image/png", res.Strip.ContentType())
	}
	if gotIfNoneMatch != "" {
		t.Fatalf("If-None-Match = %q, want none for empty checksum", gotIfNoneMatch)
	}
}

func TestClient_SameBytesWithoutConditionalSupport(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	res, err := c.Fetch(context.Background(), strip.Sum(pngBytes))
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if res.Outcome != Unchanged {
		t.Fatalf("Outcome = %v, want unchanged", res.Outcome)
	}
}

func TestClient_TitleFallbacks(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		if r.URL.Path == "/named" {
			w.Header().Set("Content-Disposition", `inline; filename="2024-05-01.gif"`)
		}
		_, _ = w.Write([]byte("GIF89a" + r.URL.Path))
	}))
	t.Cleanup(server.Close)

	cases := map[string]string{
		"/named":         "2024-05-01",
		"/strips/latest": "latest",
	}
	for p, want := range cases {
		c, err := NewClient(server.URL + p)
		if err != nil {
			t.Fatalf("NewClient returned error: %v", err)
		}
		res, err := c.Fetch(context.Background(), "")
		if err != nil {
			t.Fatalf("Fetch(%s) returned error: %v", p, err)
		}
		if res.Strip.Title() != want {
			t.Fatalf("Fetch(%s) title = %q, want %q", p, res.Strip.Title(), want)
		}
	}
}

func TestClient_ScrapesStripPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<!doctype html><html><head>
<title>Site</title>
<meta property="og:title" content="Strip for May 1">
<meta property="og:image" content="/images/today.png">
</head><body><img class="img-comic" src="/images/other.png" alt="other"></body></html>`))
		case "/images/today.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL + "/")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	res, err := c.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if res.Outcome != Updated {
		t.Fatalf("Outcome = %v, want updated", res.Outcome)
	}
	if res.Strip.Title() != "Strip for May 1" {
		t.Fatalf("Title = %q, want og:title", res.Strip.Title())
	}
	if !strings.HasSuffix(res.Strip.SourceURL(), "/images/today.png") {
		t.Fatalf("SourceURL = %q, want resolved og:image", res.Strip.SourceURL())
	}
}

func TestParseStripPage_ComicImgFallback(t *testing.T) {
	c, err := NewClient("http://example.com/comics/")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ref, err := parseStripPage([]byte(`<html><head><title> Daily </title></head>
<body><img src="logo.png"><img class="strip Comic-Image" src="s/1.jpg" alt=" Monday "></body></html>`), c.sourceURL)
	if err != nil {
		t.Fatalf("parseStripPage returned error: %v", err)
	}
	if ref.imageURL.String() != "http://example.com/comics/s/1.jpg" {
		t.Fatalf("imageURL = %q, want resolved relative src", ref.imageURL.String())
	}
	if ref.title != "Monday" {
		t.Fatalf("title = %q, want Monday", ref.title)
	}
}

func TestClient_Failures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/error":
			http.Error(w, "nope", http.StatusInternalServerError)
		case "/empty":
			w.Header().Set("Content-Type", "image/png")
		case "/noimage":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body><p>nothing here</p></body></html>"))
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	cases := []struct {
		path string
		opts []Option
		want error
	}{
		{"/error", nil, ErrMalformedResponse},
		{"/empty", nil, ErrMalformedResponse},
		{"/noimage", nil, ErrMalformedResponse},
		{"/slow", []Option{WithTimeout(50 * time.Millisecond)}, ErrTimeout},
	}
	for _, tc := range cases {
		c, err := NewClient(server.URL+tc.path, tc.opts...)
		if err != nil {
			t.Fatalf("NewClient returned error: %v", err)
		}
		res, err := c.Fetch(context.Background(), "")
		if !errors.Is(err, tc.want) {
			t.Fatalf("Fetch(%s) error = %v, want %v", tc.path, err, tc.want)
		}
		if !res.Strip.IsMissing() {
			t.Fatalf("Fetch(%s) returned a partial strip", tc.path)
		}
	}
}

func TestClient_ConnectionRefusedIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	c, err := NewClient(addr)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.Fetch(context.Background(), "")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("Fetch error = %v, want ErrNetwork", err)
	}
}

func TestOutcomeString(t *testing.T) {
	if Unchanged.String() != "unchanged" || Updated.String() != "updated" || Failed.String() != "failed" {
		t.Fatalf("unexpected outcome strings")
	}
	if Outcome(7).String() != "outcome(7)" {
		t.Fatalf("Outcome(7).String() = %q", Outcome(7).String())
	}
}
