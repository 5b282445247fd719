package sniff

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

// Kind is the container family of an audio file, determined once per file.
type Kind int

const (
	Unknown Kind = iota
	MP3
	FLAC
	MP4
)

func (k Kind) String() string {
	switch k {
	case MP3:
		return "MP3"
	case FLAC:
		return "FLAC"
	case MP4:
		return "MP4/M4A"
	default:
		return "unknown"
	}
}

var ErrUnsupportedFormat = errors.New("unsupported container format")

// Extensions lists the file extensions the scanner accepts, lowercase.
var Extensions = []string{".mp3", ".flac", ".m4a", ".mp4"}

var extKinds = map[string]Kind{
	".mp3":  MP3,
	".flac": FLAC,
	".m4a":  MP4,
	".mp4":  MP4,
}

// IsAudioPath reports whether the path carries a supported extension.
func IsAudioPath(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}

// Classify determines the container kind of the file at path.
//
// The extension and the magic bytes in the first 12 bytes of the file must
// agree. A disagreement is reported as ErrUnsupportedFormat rather than
// guessed, since guessing wrong risks corrupting the file on write.
func Classify(path string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	byExt, ok := extKinds[ext]
	if !ok {
		return Unknown, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return Unknown, err
	}
	defer file.Close()

	header := make([]byte, 12)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Unknown, err
	}

	byMagic := classifyHeader(header[:n])
	if byMagic != byExt {
		return Unknown, fmt.Errorf("%w: extension %q does not match file content (%s)",
			ErrUnsupportedFormat, ext, byMagic)
	}

	return byExt, nil
}

func classifyHeader(header []byte) Kind {
	switch {
	case len(header) >= 3 && string(header[:3]) == "ID3":
		return MP3
	// A bare MPEG stream with no ID3 header starts at a frame sync.
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return MP3
	case len(header) >= 4 && string(header[:4]) == "fLaC":
		return FLAC
	case len(header) >= 12 && string(header[4:8]) == "ftyp":
		return MP4
	default:
		return Unknown
	}
}
