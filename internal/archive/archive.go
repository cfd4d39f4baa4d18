// Package archive keeps every downloaded strip on disk.
//
// An Archive is a notify.Listener. Each Updated event writes the image as
// <date>-<checksum><ext>, overwrites latest<ext>, and records metadata in
// latest.toml. Failed events and the missing strip are ignored, so a source
// outage never clobbers the last good download.
package archive

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/five82/dailystrip/internal/fetch"
	"github.com/five82/dailystrip/internal/notify"
	"github.com/five82/dailystrip/internal/strip"
)

// MetadataFile is the name of the file describing the latest strip.
const MetadataFile = "latest.toml"

// Metadata is the content of latest.toml.
type Metadata struct {
	Title       string    `toml:"title"`
	SourceURL   string    `toml:"source_url"`
	Checksum    string    `toml:"checksum"`
	ContentType string    `toml:"content_type"`
	File        string    `toml:"file"`
	FetchedAt   time.Time `toml:"fetched_at"`
}

// Archive writes strips below dir on fs.
type Archive struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger
}

// New returns an Archive rooted at dir. A nil logger discards.
func New(fs afero.Fs, dir string, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Archive{fs: fs, dir: dir, logger: logger}
}

// StripUpdated implements notify.Listener.
func (a *Archive) StripUpdated(ev notify.Event) {
	if ev.Outcome != fetch.Updated || ev.Strip.IsMissing() {
		return
	}
	name, err := a.Save(ev.Strip, ev.At)
	if err != nil {
		a.logger.Warn("archive strip failed", "job", ev.JobID, "err", err)
		return
	}
	a.logger.Info("strip archived", "job", ev.JobID, "file", name)
}

// Save stores s and returns the path of the dated copy. at is used for
// the date when s has no fetch time.
func (a *Archive) Save(s strip.Strip, at time.Time) (string, error) {
	if s.IsMissing() {
		return "", fmt.Errorf("refusing to archive the missing strip")
	}
	when := s.FetchedAt()
	if when.IsZero() {
		when = at
	}
	if when.IsZero() {
		when = time.Now()
	}

	image := s.Image()
	ext := Extension(image, s.ContentType())

	if err := a.fs.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	dated := filepath.Join(a.dir, FileName(when, s.Checksum(), ext))
	if err := afero.WriteFile(a.fs, dated, image, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dated, err)
	}
	latest := filepath.Join(a.dir, "latest"+ext)
	if err := afero.WriteFile(a.fs, latest, image, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", latest, err)
	}
	a.removeStaleLatest(filepath.Base(latest))

	meta := Metadata{
		Title:       s.Title(),
		SourceURL:   s.SourceURL(),
		Checksum:    string(s.Checksum()),
		ContentType: s.ContentType(),
		File:        filepath.Base(dated),
		FetchedAt:   when.UTC(),
	}
	bytes, err := toml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := afero.WriteFile(a.fs, filepath.Join(a.dir, MetadataFile), bytes, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	return dated, nil
}

// removeStaleLatest deletes latest.* images other than keep, left behind
// when the image format changes.
func (a *Archive) removeStaleLatest(keep string) {
	entries, err := afero.ReadDir(a.fs, a.dir)
	if err != nil {
		a.logger.Warn("list archive dir failed", "dir", a.dir, "err", err)
		return
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == keep || name == MetadataFile || !strings.HasPrefix(name, "latest.") {
			continue
		}
		if err := a.fs.Remove(filepath.Join(a.dir, name)); err != nil {
			a.logger.Warn("remove stale latest image failed", "file", name, "err", err)
		}
	}
}

// Latest reads latest.toml.
func (a *Archive) Latest() (Metadata, error) {
	var meta Metadata
	bytes, err := afero.ReadFile(a.fs, filepath.Join(a.dir, MetadataFile))
	if err != nil {
		return meta, fmt.Errorf("read metadata: %w", err)
	}
	if err := toml.Unmarshal(bytes, &meta); err != nil {
		return meta, fmt.Errorf("parse metadata: %w", err)
	}
	return meta, nil
}

// FileName returns the dated archive name for a strip.
func FileName(day time.Time, sum strip.Checksum, ext string) string {
	return fmt.Sprintf("%s-%s%s", day.Format("2006-01-02"), sum, ext)
}

// Extension picks a file extension from the image bytes, falling back to
// the declared content type and finally ".img".
func Extension(image []byte, contentType string) string {
	if ext := mimetype.Detect(image).Extension(); ext != "" {
		return ext
	}
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".img"
}
