package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/five82/dailystrip/internal/fetch"
	"github.com/five82/dailystrip/internal/poller"
	"github.com/five82/dailystrip/internal/schedule"
	"github.com/five82/dailystrip/internal/state"
	"github.com/five82/dailystrip/internal/strip"
)

type fakeScheduler struct {
	snap      state.Snapshot
	status    poller.Status
	accept    bool
	fetchedOn []strip.Checksum
	refreshes int
}

func (f *fakeScheduler) Snapshot() state.Snapshot { return f.snap }
func (f *fakeScheduler) Status() poller.Status    { return f.status }

func (f *fakeScheduler) FetchNow(previous strip.Checksum) bool {
	f.fetchedOn = append(f.fetchedOn, previous)
	return f.accept
}

func (f *fakeScheduler) Refresh() bool {
	f.refreshes++
	return f.accept
}

func cached(data string, title string) state.Snapshot {
	return state.Snapshot{
		Strip: strip.New([]byte(data), strip.Meta{
			Title:       title,
			SourceURL:   "https://example.com/a.png",
			ContentType: "image/png",
			FetchedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		}),
		LastUpdated: time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC),
	}
}

func serve(t *testing.T, h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetStrip(t *testing.T) {
	sched := &fakeScheduler{snap: cached("image-bytes", "Tuesday")}
	rec := serve(t, NewRouter(sched, nil), http.MethodGet, "/api/strip", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got StripResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Missing || got.Title != "Tuesday" || got.Size != len("image-bytes") {
		t.Fatalf("strip = %+v", got)
	}
	if got.Checksum != string(strip.Sum([]byte("image-bytes"))) {
		t.Fatalf("Checksum = %q", got.Checksum)
	}
	if got.FetchedAt == nil || got.LastUpdated == nil {
		t.Fatalf("timestamps missing: %+v", got)
	}
}

func TestGetStrip_MissingReportsError(t *testing.T) {
	sched := &fakeScheduler{snap: state.Snapshot{
		Strip:               strip.Missing(),
		LastError:           errors.New("source down"),
		ConsecutiveFailures: 3,
	}}
	rec := serve(t, NewRouter(sched, nil), http.MethodGet, "/api/strip", nil)

	var got StripResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Missing || got.Checksum != string(strip.EmptyChecksum) {
		t.Fatalf("strip = %+v, want missing", got)
	}
	if got.LastError != "source down" || got.ConsecutiveFailures != 3 {
		t.Fatalf("error fields = %q/%d", got.LastError, got.ConsecutiveFailures)
	}
	if got.FetchedAt != nil {
		t.Fatalf("FetchedAt = %v, want nil", got.FetchedAt)
	}
}

func TestGetImage_ETagRoundTrip(t *testing.T) {
	sched := &fakeScheduler{snap: cached("png-data", "Wednesday")}
	h := NewRouter(sched, nil)

	rec := serve(t, h, http.MethodGet, "/api/strip/image", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "png-data" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q, want image/png", ct)
	}
	if title := rec.Header().Get(fetch.TitleHeader); title != "Wednesday" {
		t.Fatalf("%s = %q, want Wednesday", fetch.TitleHeader, title)
	}
	etag := rec.Header().Get("ETag")
	if etag != `"`+string(strip.Sum([]byte("png-data")))+`"` {
		t.Fatalf("ETag = %q", etag)
	}

	rec = serve(t, h, http.MethodGet, "/api/strip/image", http.Header{"If-None-Match": {etag}})
	if rec.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d, want %d", rec.Code, http.StatusNotModified)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("304 body = %q, want empty", rec.Body.String())
	}

	rec = serve(t, h, http.MethodGet, "/api/strip/image", http.Header{"If-None-Match": {`"stale"`}})
	if rec.Code != http.StatusOK {
		t.Fatalf("stale tag status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestGetImage_MissingIsNotFound(t *testing.T) {
	sched := &fakeScheduler{snap: state.Snapshot{Strip: strip.Missing()}}
	rec := serve(t, NewRouter(sched, nil), http.MethodGet, "/api/strip/image", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestPostFetch(t *testing.T) {
	tests := []struct {
		name          string
		target        string
		accept        bool
		wantStatus    int
		wantRefreshes int
		wantFetches   int
	}{
		{name: "conditional submitted", target: "/api/fetch", accept: true, wantStatus: http.StatusAccepted, wantFetches: 1},
		{name: "conditional dropped", target: "/api/fetch", accept: false, wantStatus: http.StatusConflict, wantFetches: 1},
		{name: "forced submitted", target: "/api/fetch?force=true", accept: true, wantStatus: http.StatusAccepted, wantRefreshes: 1},
		{name: "forced dropped", target: "/api/fetch?force=1", accept: false, wantStatus: http.StatusConflict, wantRefreshes: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &fakeScheduler{snap: cached("abc", ""), accept: tt.accept}
			rec := serve(t, NewRouter(sched, nil), http.MethodPost, tt.target, nil)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if sched.refreshes != tt.wantRefreshes {
				t.Fatalf("refreshes = %d, want %d", sched.refreshes, tt.wantRefreshes)
			}
			if len(sched.fetchedOn) != tt.wantFetches {
				t.Fatalf("fetches = %d, want %d", len(sched.fetchedOn), tt.wantFetches)
			}
			if tt.wantFetches > 0 && sched.fetchedOn[0] != strip.Sum([]byte("abc")) {
				t.Fatalf("FetchNow checksum = %q, want cached checksum", sched.fetchedOn[0])
			}
		})
	}
}

func TestGetStatus(t *testing.T) {
	sched := &fakeScheduler{
		snap:   state.Snapshot{Strip: strip.Missing(), ConsecutiveFailures: 2},
		status: poller.Status{Schedule: schedule.Every(time.Hour), Scheduled: true, Busy: true},
	}
	rec := serve(t, NewRouter(sched, nil), http.MethodGet, "/api/status", nil)

	var got StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := StatusResponse{
		Schedule:            schedule.Every(time.Hour).String(),
		Scheduled:           true,
		Busy:                true,
		Offline:             true,
		ConsecutiveFailures: 2,
		Checksum:            string(strip.EmptyChecksum),
	}
	if got != want {
		t.Fatalf("status = %+v, want %+v", got, want)
	}
}

func TestEtagMatches(t *testing.T) {
	sum := strip.Sum([]byte("x"))
	tests := []struct {
		header string
		want   bool
	}{
		{header: "", want: false},
		{header: "*", want: true},
		{header: `"` + string(sum) + `"`, want: true},
		{header: `W/"` + string(sum) + `"`, want: true},
		{header: `"other", "` + string(sum) + `"`, want: true},
		{header: `"other"`, want: false},
	}
	for _, tt := range tests {
		if got := etagMatches(tt.header, sum); got != tt.want {
			t.Fatalf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", NewRouter(&fakeScheduler{}, nil), nil)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_BadAddress(t *testing.T) {
	if err := Serve(context.Background(), "not an address", http.NotFoundHandler(), nil); err == nil {
		t.Fatal("Serve returned nil error for bad address")
	}
}
