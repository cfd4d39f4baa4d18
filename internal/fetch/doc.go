// Package fetch downloads the current daily strip over HTTP.
//
// # Overview
//
// Client performs a single conditional fetch per call. The checksum of the
// strip the caller already holds is sent as an If-None-Match entity tag; a
// 304 Not Modified reply, or a body whose MD5 matches that checksum, yields
// an Unchanged result without allocating a new strip.
//
// # Sources
//
// The configured source URL may serve either:
//
//   - the image itself, optionally with an X-Strip-Title header, or
//   - an HTML strip page, from which the image URL is taken from the
//     og:image meta tag or the first <img> whose class mentions "comic".
//
// HTML pages are parsed with golang.org/x/net/html and the image is then
// downloaded with the same conditional headers.
//
// # Error Handling
//
// Every failure wraps one of three sentinels so callers can use errors.Is:
//
//   - ErrNetwork: connection refused, DNS failure, reset
//   - ErrTimeout: request or context deadline exceeded
//   - ErrMalformedResponse: non-200 status, empty or oversized body,
//     HTML without a strip image
//
// A failed fetch never returns a partial strip. The poller collapses all
// three into a single Failed outcome.
//
// # Testing Considerations
//
// Fetcher is the narrow interface the poller depends on. Tests in this
// package use net/http/httptest servers; poller tests use fakes.
package fetch
