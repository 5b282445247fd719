package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Mime types accepted for embedded cover art.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

var (
	ErrYearOutOfRange  = errors.New("year must be a four digit value between 1000 and 9999")
	ErrTrackNumber     = errors.New("track number must be positive")
	ErrEmptyImage      = errors.New("cover image has no data")
	ErrMimeUnsupported = errors.New("cover image must be JPEG or PNG")
	ErrMimeMismatch    = errors.New("cover image data does not match its declared mime type")
)

// Tags is the normalized, format-agnostic metadata of one track.
// Nil fields are meaningful: an absent field is never written, so the
// value already on disk survives a merge untouched.
type Tags struct {
	Title       *string
	Artist      *string
	Album       *string
	Genre       *string
	Year        *int
	TrackNumber *int
	Cover       *Image
}

// Image is raw cover art. The data is embedded as-is, never re-encoded.
type Image struct {
	MimeType    string
	Data        []byte
	Description string
}

// Merge copies every non-nil field of overrides onto t.
func (t *Tags) Merge(overrides *Tags) {
	if overrides == nil {
		return
	}
	if overrides.Title != nil {
		t.Title = overrides.Title
	}
	if overrides.Artist != nil {
		t.Artist = overrides.Artist
	}
	if overrides.Album != nil {
		t.Album = overrides.Album
	}
	if overrides.Genre != nil {
		t.Genre = overrides.Genre
	}
	if overrides.Year != nil {
		t.Year = overrides.Year
	}
	if overrides.TrackNumber != nil {
		t.TrackNumber = overrides.TrackNumber
	}
	if overrides.Cover != nil {
		t.Cover = overrides.Cover
	}
}

// Empty reports whether no field is set.
func (t *Tags) Empty() bool {
	return t.Title == nil &&
		t.Artist == nil &&
		t.Album == nil &&
		t.Genre == nil &&
		t.Year == nil &&
		t.TrackNumber == nil &&
		t.Cover == nil
}

// Validate checks the constraints the codecs rely on before encoding.
func (t *Tags) Validate() error {
	if t.Year != nil && (*t.Year < 1000 || *t.Year > 9999) {
		return fmt.Errorf("%w: %d", ErrYearOutOfRange, *t.Year)
	}
	if t.TrackNumber != nil && *t.TrackNumber <= 0 {
		return fmt.Errorf("%w: %d", ErrTrackNumber, *t.TrackNumber)
	}
	if t.Cover != nil {
		return t.Cover.Validate()
	}
	return nil
}

// Validate checks that the image data is present and that the declared
// mime type agrees with the magic bytes. A mismatch is an error, never
// silently coerced.
func (i *Image) Validate() error {
	if len(i.Data) == 0 {
		return ErrEmptyImage
	}
	switch i.MimeType {
	case MimeJPEG, MimePNG:
	default:
		return fmt.Errorf("%w: %q", ErrMimeUnsupported, i.MimeType)
	}
	if detected := http.DetectContentType(i.Data); detected != i.MimeType {
		return fmt.Errorf("%w: declared %s, detected %s", ErrMimeMismatch, i.MimeType, detected)
	}
	return nil
}

// String returns a pointer to s, for building partial Tags values.
func String(s string) *string {
	return &s
}

// Int returns a pointer to n, for building partial Tags values.
func Int(n int) *int {
	return &n
}
