package httpapi

import (
	"time"

	"github.com/five82/dailystrip/internal/poller"
	"github.com/five82/dailystrip/internal/state"
)

// StripResponse is the payload of GET /api/strip.
type StripResponse struct {
	Missing             bool       `json:"missing"`
	Title               string     `json:"title,omitempty"`
	Checksum            string     `json:"checksum"`
	SourceURL           string     `json:"sourceUrl,omitempty"`
	ContentType         string     `json:"contentType,omitempty"`
	Size                int        `json:"size"`
	FetchedAt           *time.Time `json:"fetchedAt,omitempty"`
	LastUpdated         *time.Time `json:"lastUpdated,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
}

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	Schedule            string `json:"schedule"`
	Scheduled           bool   `json:"scheduled"`
	Busy                bool   `json:"busy"`
	Closed              bool   `json:"closed"`
	Offline             bool   `json:"offline"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	Checksum            string `json:"checksum"`
}

// FetchResponse is the payload of POST /api/fetch.
type FetchResponse struct {
	Submitted bool   `json:"submitted"`
	Force     bool   `json:"force"`
	Reason    string `json:"reason,omitempty"`
}

func stripResponse(snap state.Snapshot) StripResponse {
	s := snap.Strip
	resp := StripResponse{
		Missing:             s.IsMissing(),
		Title:               s.Title(),
		Checksum:            string(s.Checksum()),
		SourceURL:           s.SourceURL(),
		ContentType:         s.ContentType(),
		Size:                s.Size(),
		FetchedAt:           timePtr(s.FetchedAt()),
		LastUpdated:         timePtr(snap.LastUpdated),
		ConsecutiveFailures: snap.ConsecutiveFailures,
	}
	if snap.LastError != nil {
		resp.LastError = snap.LastError.Error()
	}
	return resp
}

func statusResponse(st poller.Status, snap state.Snapshot) StatusResponse {
	return StatusResponse{
		Schedule:            st.Schedule.String(),
		Scheduled:           st.Scheduled,
		Busy:                st.Busy,
		Closed:              st.Closed,
		Offline:             snap.IsOffline(),
		ConsecutiveFailures: snap.ConsecutiveFailures,
		Checksum:            string(snap.Strip.Checksum()),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}
