package m4a

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/aeiou/albumtag/internal/model"
)

var audioPayload = []byte("AUDIOPAYLOAD-AUDIOPAYLOAD")

func box(boxType string, children ...[]byte) []byte {
	size := 8
	for _, child := range children {
		size += len(child)
	}
	buf := make([]byte, 8, size)
	binary.BigEndian.PutUint32(buf[:4], uint32(size))
	copy(buf[4:8], boxType)
	for _, child := range children {
		buf = append(buf, child...)
	}
	return buf
}

func concat(boxes ...[]byte) []byte {
	var out []byte
	for _, b := range boxes {
		out = append(out, b...)
	}
	return out
}

func ftypBox() []byte {
	return box("ftyp", []byte("M4A \x00\x00\x00\x00isom"))
}

// mdatFirstFixture lays the audio in front of moov, so resizing the
// metadata never shifts chunk offsets.
func mdatFirstFixture(withUdta bool) []byte {
	moov := box("moov")
	if withUdta {
		moov = box("moov", box("udta"))
	}
	return concat(ftypBox(), box("mdat", audioPayload), moov)
}

func moovFirstFixture() []byte {
	return concat(ftypBox(), box("moov", box("udta")), box("mdat", audioPayload))
}

func allTags() *model.Tags {
	return &model.Tags{
		Title:       model.String("Hyperspace Lullaby"),
		Artist:      model.String("My Artist"),
		Album:       model.String("Greatest Hits"),
		Genre:       model.String("Rock"),
		Year:        model.Int(2025),
		TrackNumber: model.Int(3),
		Cover: &model.Image{
			MimeType: model.MimeJPEG,
			Data:     append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x03}, 48)...),
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		name    string
		fixture []byte
	}{
		{"existing udta", mdatFirstFixture(true)},
		{"no udta at all", mdatFirstFixture(false)},
	} {
		t.Run(tt.name, func(t *testing.T) {
			codec := &Codec{}
			in := allTags()

			rewritten, err := codec.Encode(in, tt.fixture)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}

			// The audio sits before moov, so its bytes and offsets must be
			// untouched.
			prefix := len(ftypBox()) + len(box("mdat", audioPayload))
			if !bytes.Equal(rewritten[:prefix], tt.fixture[:prefix]) {
				t.Fatal("bytes in front of moov changed")
			}

			// The rewritten tree must stay self-consistent end to end.
			if _, err := moovPrecedesMdat(rewritten); err != nil {
				t.Fatalf("rewritten box tree is inconsistent: %v", err)
			}

			out, degraded := codec.Decode(rewritten)
			if degraded {
				t.Fatal("Decode() reported degradation on freshly written bytes")
			}
			if out.Title == nil || *out.Title != *in.Title {
				t.Errorf("Title = %v", out.Title)
			}
			if out.Artist == nil || *out.Artist != *in.Artist {
				t.Errorf("Artist = %v", out.Artist)
			}
			if out.Album == nil || *out.Album != *in.Album {
				t.Errorf("Album = %v", out.Album)
			}
			if out.Genre == nil || *out.Genre != *in.Genre {
				t.Errorf("Genre = %v", out.Genre)
			}
			if out.Year == nil || *out.Year != 2025 {
				t.Errorf("Year = %v", out.Year)
			}
			if out.TrackNumber == nil || *out.TrackNumber != 3 {
				t.Errorf("TrackNumber = %v", out.TrackNumber)
			}
			if out.Cover == nil || !bytes.Equal(out.Cover.Data, in.Cover.Data) {
				t.Error("cover did not survive the round trip")
			}
		})
	}
}

func TestUnmanagedIlstItemsSurviveRewrite(t *testing.T) {
	dataPrefix := []byte{0, 0, 0, 1, 0, 0, 0, 0}
	aART := box("aART", box("data", dataPrefix, []byte("Some Band")))
	nam := box("\xa9nam", box("data", dataPrefix, []byte("Old Title")))
	meta := box("meta", []byte{0, 0, 0, 0}, box("ilst", aART, nam))
	fixture := concat(ftypBox(), box("mdat", audioPayload), box("moov", box("udta", meta)))

	codec := &Codec{}
	rewritten, err := codec.Encode(&model.Tags{Title: model.String("New Title")}, fixture)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	if !bytes.Contains(rewritten, []byte("Some Band")) {
		t.Error("album-artist item was dropped by the rewrite")
	}
	if bytes.Contains(rewritten, []byte("Old Title")) {
		t.Error("stale title item survived next to the fresh one")
	}

	out, degraded := codec.Decode(rewritten)
	if degraded {
		t.Fatal("Decode() reported degradation on freshly written bytes")
	}
	if out.Title == nil || *out.Title != "New Title" {
		t.Errorf("Title = %v", out.Title)
	}
}

func TestMoovBeforeMdatIsRejected(t *testing.T) {
	codec := &Codec{}

	_, err := codec.Encode(allTags(), moovFirstFixture())
	if !errors.Is(err, ErrStructuralRewrite) {
		t.Fatalf("Encode() = %v, want ErrStructuralRewrite", err)
	}
}

func TestMoovPrecedesMdat(t *testing.T) {
	if first, err := moovPrecedesMdat(moovFirstFixture()); err != nil || !first {
		t.Errorf("moovPrecedesMdat(moov first) = %v, %v", first, err)
	}
	if first, err := moovPrecedesMdat(mdatFirstFixture(true)); err != nil || first {
		t.Errorf("moovPrecedesMdat(mdat first) = %v, %v", first, err)
	}
	if _, err := moovPrecedesMdat(concat(ftypBox(), box("mdat", audioPayload))); err == nil {
		t.Error("moovPrecedesMdat should fail without a moov box")
	}
	truncated := box("moov")
	binary.BigEndian.PutUint32(truncated[:4], 64)
	if _, err := moovPrecedesMdat(truncated); err == nil {
		t.Error("moovPrecedesMdat should reject a box size past end of file")
	}
}

func TestDecodeGarbageDegrades(t *testing.T) {
	out, degraded := (&Codec{}).Decode(bytes.Repeat([]byte{0xEE}, 40))
	if !degraded {
		t.Error("Decode() of garbage should report degradation")
	}
	if !out.Empty() {
		t.Errorf("Decode() of garbage = %+v, want empty", out)
	}
}

func TestBufferSeeker(t *testing.T) {
	b := newBufferSeeker(0)
	b.Write([]byte("hello world"))
	if _, err := b.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	b.Write([]byte("HELLO"))
	if got := string(b.Bytes()); got != "HELLO world" {
		t.Errorf("Bytes() = %q", got)
	}
	if _, err := b.Seek(-1, 0); err == nil {
		t.Error("negative seek should fail")
	}
}
