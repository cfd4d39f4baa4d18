// Package ui is the terminal viewer for dailystrip.
//
// # Overview
//
// The viewer is a Bubble Tea program. It never fetches on its own: it reads
// the poller's cache and status, and sends manual triggers.
//
// # Updates
//
// Two message sources keep the screen current:
//
//   - EventMsg: hub notifications forwarded by Listener through Program.Send
//   - tickMsg: a once-per-second refresh of busy and schedule state
//
// # Keys
//
//	r     download now, ignoring the cached checksum
//	f     download only if the strip changed
//	a     accept the source disclaimer
//	t     cycle theme (persisted to prefs)
//	h/?   toggle help
//	q     quit
//
// The terminal cannot show the image itself. The panel lists its title,
// checksum, size, timestamps and, when archiving is on, where it was saved.
package ui
