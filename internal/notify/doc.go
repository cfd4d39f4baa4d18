// Package notify fans strip updates out to registered listeners.
//
// Listeners are delivered to synchronously, in subscription order, on the
// goroutine that completed the fetch. Subscribe returns a token because Go
// function values are not comparable; pass it to Unsubscribe. Rounds never
// overlap because the poller runs at most one fetch at a time.
package notify
