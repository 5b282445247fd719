package model

import (
	"bytes"
	"errors"
	"testing"
)

var (
	pngData  = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x00}, 32)...)
	jpegData = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x00}, 32)...)
)

func TestMergeCopiesOnlySetFields(t *testing.T) {
	existing := &Tags{
		Title:  String("Old Title"),
		Artist: String("Old Artist"),
		Year:   Int(1999),
	}

	existing.Merge(&Tags{
		Title:       String("New Title"),
		TrackNumber: Int(3),
	})

	if *existing.Title != "New Title" {
		t.Errorf("Title = %q, want %q", *existing.Title, "New Title")
	}
	if *existing.Artist != "Old Artist" {
		t.Errorf("Artist = %q, want untouched %q", *existing.Artist, "Old Artist")
	}
	if *existing.Year != 1999 {
		t.Errorf("Year = %d, want untouched 1999", *existing.Year)
	}
	if existing.TrackNumber == nil || *existing.TrackNumber != 3 {
		t.Errorf("TrackNumber not merged: %v", existing.TrackNumber)
	}
}

func TestMergeNilIsNoop(t *testing.T) {
	existing := &Tags{Title: String("Keep")}
	existing.Merge(nil)
	if *existing.Title != "Keep" {
		t.Errorf("Title = %q after nil merge", *existing.Title)
	}
}

func TestEmpty(t *testing.T) {
	if !(&Tags{}).Empty() {
		t.Error("zero Tags should be empty")
	}
	if (&Tags{Genre: String("Rock")}).Empty() {
		t.Error("Tags with a genre should not be empty")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tags    *Tags
		wantErr error
	}{
		{"empty ok", &Tags{}, nil},
		{"year in range", &Tags{Year: Int(2025)}, nil},
		{"year too small", &Tags{Year: Int(999)}, ErrYearOutOfRange},
		{"year too large", &Tags{Year: Int(10000)}, ErrYearOutOfRange},
		{"track zero", &Tags{TrackNumber: Int(0)}, ErrTrackNumber},
		{"track negative", &Tags{TrackNumber: Int(-1)}, ErrTrackNumber},
		{
			"valid png cover",
			&Tags{Cover: &Image{MimeType: MimePNG, Data: pngData}},
			nil,
		},
		{
			"valid jpeg cover",
			&Tags{Cover: &Image{MimeType: MimeJPEG, Data: jpegData}},
			nil,
		},
		{
			"empty cover",
			&Tags{Cover: &Image{MimeType: MimePNG}},
			ErrEmptyImage,
		},
		{
			"unsupported mime",
			&Tags{Cover: &Image{MimeType: "image/gif", Data: pngData}},
			ErrMimeUnsupported,
		},
		{
			"declared jpeg but png magic",
			&Tags{Cover: &Image{MimeType: MimeJPEG, Data: pngData}},
			ErrMimeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tags.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
