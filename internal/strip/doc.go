// Package strip defines the Strip value shared by the fetcher, the cache and
// every listener.
//
// # Overview
//
// A Strip is one downloaded comic image together with its content checksum
// and caption. The checksum is an MD5 hex digest computed exactly once, in
// New, and strips compare equal when their checksums match.
//
// # The missing strip
//
// Missing returns a sentinel whose checksum is EmptyChecksum, the digest of
// zero bytes. The cache starts out holding it and falls back to it when a
// fetch fails, so readers always get a valid value. The zero Strip behaves
// exactly like the sentinel.
//
// # Immutability
//
// Strip has no exported fields. Image returns a copy of the bytes, so a
// listener that mutates what it receives cannot corrupt the cached value
// seen by other listeners.
package strip
