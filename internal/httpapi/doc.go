// Package httpapi exposes the strip cache and scheduler over HTTP.
//
// # Endpoints
//
//	GET  /api/strip        metadata for the cached strip
//	GET  /api/strip/image  image bytes, ETag = quoted checksum
//	POST /api/fetch        manual trigger; ?force=true skips the checksum
//	GET  /api/status       scheduler state
//	GET  /healthz          liveness
//
// /api/strip/image answers a matching If-None-Match with 304 and sends the
// title in X-Strip-Title, so one dailystrip can use another as its source.
//
// POST /api/fetch returns 202 when the fetch was submitted and 409 when it
// was dropped because one is already in flight or the disclaimer is not
// acknowledged. The result arrives later through the normal listeners.
package httpapi
