package codec

import (
	"github.com/aeiou/albumtag/internal/codec/flacmeta"
	"github.com/aeiou/albumtag/internal/codec/id3"
	"github.com/aeiou/albumtag/internal/codec/m4a"
	"github.com/aeiou/albumtag/internal/model"
	"github.com/aeiou/albumtag/internal/sniff"
)

// Codec converts between one container's on-disk tag layout and model.Tags.
// Each variant owns the encoding quirks of its format.
type Codec interface {
	// Decode extracts the tags of a complete file. A missing or unreadable
	// tag region yields an empty model with degraded=true, never a failure.
	Decode(raw []byte) (tags *model.Tags, degraded bool)

	// Encode returns the complete new file bytes with the tag region
	// rewritten from tags. The audio payload is preserved byte for byte,
	// and absent fields leave the corresponding on-disk values alone.
	Encode(tags *model.Tags, raw []byte) ([]byte, error)
}

// ForKind returns the codec for a sniffed container kind, selected once
// per file and never re-checked per field.
func ForKind(kind sniff.Kind) Codec {
	switch kind {
	case sniff.MP3:
		return &id3.Codec{}
	case sniff.FLAC:
		return &flacmeta.Codec{}
	case sniff.MP4:
		return &m4a.Codec{}
	default:
		return nil
	}
}
