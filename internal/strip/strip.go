package strip

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Checksum is the hex-encoded MD5 digest of a strip's image bytes.
type Checksum string

// EmptyChecksum is the digest of zero bytes. The missing strip carries it,
// and sending it as a conditional token always forces a full download.
const EmptyChecksum Checksum = "d41d8cd98f00b204e9800998ecf8427e"

// Sum computes the checksum of data.
func Sum(data []byte) Checksum {
	digest := md5.Sum(data)
	return Checksum(hex.EncodeToString(digest[:]))
}

// Empty reports whether c is blank or the empty-content digest.
func (c Checksum) Empty() bool {
	return strings.TrimSpace(string(c)) == "" || c == EmptyChecksum
}

// Short returns the first eight characters, for logs and the status line.
func (c Checksum) Short() string {
	if len(c) <= 8 {
		return string(c)
	}
	return string(c[:8])
}

// Strip is one fetched comic image. It is immutable: the image bytes are
// copied on the way in and on the way out.
type Strip struct {
	image       []byte
	checksum    Checksum
	title       string
	sourceURL   string
	contentType string
	fetchedAt   time.Time
}

// Meta carries the descriptive fields of a strip.
type Meta struct {
	Title       string
	SourceURL   string
	ContentType string
	FetchedAt   time.Time
}

// New builds a strip from downloaded image bytes, computing its checksum once.
func New(image []byte, meta Meta) Strip {
	dup := make([]byte, len(image))
	copy(dup, image)
	return Strip{
		image:       dup,
		checksum:    Sum(dup),
		title:       strings.TrimSpace(meta.Title),
		sourceURL:   meta.SourceURL,
		contentType: meta.ContentType,
		fetchedAt:   meta.FetchedAt,
	}
}

// Missing returns the sentinel meaning "no strip available".
func Missing() Strip {
	return Strip{checksum: EmptyChecksum}
}

// Image returns a copy of the image bytes.
func (s Strip) Image() []byte {
	if len(s.image) == 0 {
		return nil
	}
	dup := make([]byte, len(s.image))
	copy(dup, s.image)
	return dup
}

// Size returns the image length in bytes.
func (s Strip) Size() int { return len(s.image) }

// Checksum returns the content checksum computed at construction.
func (s Strip) Checksum() Checksum {
	if s.checksum == "" {
		return EmptyChecksum
	}
	return s.checksum
}

// Title returns the strip caption, or "" when the page had none.
func (s Strip) Title() string { return s.title }

// SourceURL returns where the image was downloaded from.
func (s Strip) SourceURL() string { return s.sourceURL }

// ContentType returns the media type the server declared for the image.
func (s Strip) ContentType() string { return s.contentType }

// FetchedAt returns when the image was downloaded.
func (s Strip) FetchedAt() time.Time { return s.fetchedAt }

// IsMissing reports whether s is the sentinel. The zero Strip counts as missing.
func (s Strip) IsMissing() bool {
	return s.Checksum() == EmptyChecksum
}

// Equal compares strips by checksum only.
func (s Strip) Equal(other Strip) bool {
	return s.Checksum() == other.Checksum()
}
