package sniff

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

var (
	id3Header  = append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), make([]byte, 16)...)
	mpegFrame  = append([]byte{0xFF, 0xFB, 0x90, 0x00}, make([]byte, 16)...)
	flacHeader = append([]byte("fLaC\x80\x00\x00\x22"), make([]byte, 34)...)
	ftypHeader = []byte("\x00\x00\x00\x14ftypM4A \x00\x00\x00\x00mdat")
)

func TestClassify(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content []byte
		want    Kind
	}{
		{"mp3 with id3 header", "a.mp3", id3Header, MP3},
		{"mp3 bare mpeg stream", "b.mp3", mpegFrame, MP3},
		{"uppercase extension", "c.MP3", id3Header, MP3},
		{"flac", "d.flac", flacHeader, FLAC},
		{"m4a", "e.m4a", ftypHeader, MP4},
		{"mp4", "f.mp4", ftypHeader, MP4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			kind, err := Classify(path)
			if err != nil {
				t.Fatalf("Classify() error: %v", err)
			}
			if kind != tt.want {
				t.Errorf("Classify() = %v, want %v", kind, tt.want)
			}
		})
	}
}

func TestClassifyRejects(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content []byte
	}{
		{"unsupported extension", "notes.txt", []byte("hello")},
		{"flac bytes renamed to mp3", "renamed.mp3", flacHeader},
		{"mp3 bytes renamed to flac", "renamed.flac", id3Header},
		{"garbage under mp4 extension", "noise.m4a", bytes.Repeat([]byte{0xAA}, 32)},
		{"empty file", "empty.mp3", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			if _, err := Classify(path); !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("Classify() = %v, want ErrUnsupportedFormat", err)
			}
		})
	}
}

func TestClassifyMissingFile(t *testing.T) {
	if _, err := Classify(filepath.Join(t.TempDir(), "gone.mp3")); err == nil {
		t.Error("Classify() on missing file should fail")
	}
}

func TestIsAudioPath(t *testing.T) {
	for _, path := range []string{"x.mp3", "x.FLAC", "a/b/x.m4a", "x.mp4"} {
		if !IsAudioPath(path) {
			t.Errorf("IsAudioPath(%q) = false", path)
		}
	}
	for _, path := range []string{"x.ogg", "x.jpg", "x", "x.mp3.bak"} {
		if IsAudioPath(path) {
			t.Errorf("IsAudioPath(%q) = true", path)
		}
	}
}
