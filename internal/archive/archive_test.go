package archive

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/five82/dailystrip/internal/fetch"
	"github.com/five82/dailystrip/internal/notify"
	"github.com/five82/dailystrip/internal/strip"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestStripUpdated_WritesDatedLatestAndMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := New(fs, "/strips", nil)

	fetched := time.Date(2024, 3, 9, 7, 30, 0, 0, time.UTC)
	s := strip.New(pngBytes, strip.Meta{
		Title:       "Monday",
		SourceURL:   "https://example.com/strip.png",
		ContentType: "image/png",
		FetchedAt:   fetched,
	})

	a.StripUpdated(notify.Event{Strip: s, Outcome: fetch.Updated, JobID: "job-1", At: fetched})

	dated := filepath.Join("/strips", "2024-03-09-"+string(s.Checksum())+".png")
	for _, name := range []string{dated, "/strips/latest.png"} {
		got, err := afero.ReadFile(fs, name)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", name, err)
		}
		if string(got) != string(pngBytes) {
			t.Fatalf("%s content mismatch", name)
		}
	}

	meta, err := a.Latest()
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if meta.Title != "Monday" || meta.Checksum != string(s.Checksum()) {
		t.Fatalf("meta = %+v, want title Monday and checksum %s", meta, s.Checksum())
	}
	if meta.File != filepath.Base(dated) {
		t.Fatalf("File = %q, want %q", meta.File, filepath.Base(dated))
	}
	if !meta.FetchedAt.Equal(fetched) {
		t.Fatalf("FetchedAt = %v, want %v", meta.FetchedAt, fetched)
	}
}

func TestStripUpdated_IgnoresFailuresAndMissing(t *testing.T) {
	tests := []struct {
		name string
		ev   notify.Event
	}{
		{name: "failed", ev: notify.Event{Strip: strip.Missing(), Outcome: fetch.Failed, Err: errors.New("boom")}},
		{name: "missing strip", ev: notify.Event{Strip: strip.Missing(), Outcome: fetch.Updated}},
		{name: "unchanged", ev: notify.Event{Strip: strip.New(pngBytes, strip.Meta{}), Outcome: fetch.Unchanged}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			a := New(fs, "/strips", nil)
			a.StripUpdated(tt.ev)

			exists, err := afero.DirExists(fs, "/strips")
			if err != nil {
				t.Fatalf("DirExists: %v", err)
			}
			if exists {
				t.Fatal("archive dir created, want nothing written")
			}
		})
	}
}

func TestSave_ReadOnlyFilesystemFails(t *testing.T) {
	a := New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/strips", nil)
	if _, err := a.Save(strip.New(pngBytes, strip.Meta{}), time.Now()); err == nil {
		t.Fatal("Save returned nil error on read-only fs")
	}
}

func TestSave_UsesEventTimeWithoutFetchTime(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := New(fs, "/strips", nil)
	s := strip.New(pngBytes, strip.Meta{})
	at := time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)

	name, err := a.Save(s, at)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	want := "/strips/2023-12-31-" + string(s.Checksum()) + ".png"
	if name != want {
		t.Fatalf("Save = %q, want %q", name, want)
	}
}

func TestSave_FormatChangeReplacesLatestImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := New(fs, "/strips", nil)
	at := time.Date(2024, 3, 9, 7, 0, 0, 0, time.UTC)

	if _, err := a.Save(strip.New(pngBytes, strip.Meta{}), at); err != nil {
		t.Fatalf("Save(png) returned error: %v", err)
	}
	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")
	if _, err := a.Save(strip.New(gif, strip.Meta{}), at); err != nil {
		t.Fatalf("Save(gif) returned error: %v", err)
	}

	tests := map[string]bool{
		"/strips/latest.png":  false,
		"/strips/latest.gif":  true,
		"/strips/latest.toml": true,
	}
	for name, want := range tests {
		got, err := afero.Exists(fs, name)
		if err != nil {
			t.Fatalf("Exists(%s): %v", name, err)
		}
		if got != want {
			t.Fatalf("Exists(%s) = %v, want %v", name, got, want)
		}
	}
	entries, err := afero.ReadDir(fs, "/strips")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("archive holds %d files, want both dated copies, latest.gif and latest.toml", len(entries))
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name        string
		image       []byte
		contentType string
		want        string
	}{
		{name: "png bytes", image: pngBytes, want: ".png"},
		{name: "gif bytes", image: []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00"), want: ".gif"},
		{name: "content type fallback", image: []byte{0x00, 0x01, 0x02, 0x03}, contentType: "image/jpeg", want: ".jpg"},
		{name: "unknown", image: []byte{0x00, 0x01, 0x02, 0x03}, want: ".img"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extension(tt.image, tt.contentType); got != tt.want {
				t.Fatalf("Extension = %q, want %q", got, tt.want)
			}
		})
	}
}
