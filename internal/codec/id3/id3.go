package id3

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"

	"github.com/aeiou/albumtag/internal/model"
)

// Codec reads and rewrites the ID3v2 tag region prefixed to an MPEG audio
// stream. Whatever revision is found on disk, the tag is written back as
// ID3v2.4 with UTF-8 text.
type Codec struct{}

func (c *Codec) Decode(raw []byte) (*model.Tags, bool) {
	parsed, err := id3v2.ParseReader(bytes.NewReader(raw), id3v2.Options{Parse: true})
	if err != nil {
		return &model.Tags{}, true
	}

	tags := &model.Tags{}
	setString(&tags.Title, parsed.Title())
	setString(&tags.Artist, parsed.Artist())
	setString(&tags.Album, parsed.Album())
	setString(&tags.Genre, parsed.Genre())

	if year := decodeYear(parsed); year != 0 {
		tags.Year = &year
	}
	if number := decodeTrackNumber(parsed.GetTextFrame("TRCK").Text); number > 0 {
		tags.TrackNumber = &number
	}
	tags.Cover = decodePicture(parsed)

	return tags, false
}

func (c *Codec) Encode(tags *model.Tags, raw []byte) ([]byte, error) {
	parsed, err := id3v2.ParseReader(bytes.NewReader(raw), id3v2.Options{Parse: true})
	if err != nil {
		// The existing frames are unreadable. Start from an empty tag;
		// the payload offset still comes from the raw header below.
		parsed = id3v2.NewEmptyTag()
	}

	parsed.SetVersion(4)
	parsed.SetDefaultEncoding(id3v2.EncodingUTF8)

	if tags.Title != nil {
		parsed.SetTitle(*tags.Title)
	}
	if tags.Artist != nil {
		parsed.SetArtist(*tags.Artist)
	}
	if tags.Album != nil {
		parsed.SetAlbum(*tags.Album)
	}
	if tags.Genre != nil {
		parsed.SetGenre(*tags.Genre)
	}
	if tags.Year != nil {
		parsed.AddTextFrame("TDRC", id3v2.EncodingUTF8, strconv.Itoa(*tags.Year))
		// A stale v2.3 year frame would shadow TDRC in some players.
		parsed.DeleteFrames("TYER")
	}
	if tags.TrackNumber != nil {
		parsed.AddTextFrame("TRCK", id3v2.EncodingUTF8, strconv.Itoa(*tags.TrackNumber))
	}
	if tags.Cover != nil {
		parsed.DeleteFrames("APIC")
		parsed.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    tags.Cover.MimeType,
			PictureType: id3v2.PTFrontCover,
			Description: tags.Cover.Description,
			Picture:     tags.Cover.Data,
		})
	}

	buf := new(bytes.Buffer)
	if _, err := parsed.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("write id3v2 tag: %w", err)
	}

	offset := tagRegionSize(raw)
	if offset > len(raw) {
		return nil, fmt.Errorf("id3v2 header declares %d tag bytes, file has %d", offset, len(raw))
	}
	buf.Write(stripID3v1(raw[offset:]))

	return buf.Bytes(), nil
}

// tagRegionSize reads the on-disk length of the ID3v2 tag region from its
// 10 byte header. The size field is synchsafe: 7 bits per byte, so a
// damaged high bit means the header cannot be trusted.
func tagRegionSize(raw []byte) int {
	if len(raw) < 10 || string(raw[:3]) != "ID3" {
		return 0
	}
	size := 0
	for _, b := range raw[6:10] {
		if b&0x80 != 0 {
			return 0
		}
		size = size<<7 | int(b)
	}
	size += 10
	if raw[5]&0x10 != 0 {
		// Footer flag adds a 10 byte trailer.
		size += 10
	}
	return size
}

// stripID3v1 drops a trailing 128 byte ID3v1 block so stale v1 data
// cannot shadow the rewritten v2.4 tag.
func stripID3v1(payload []byte) []byte {
	if len(payload) >= 128 && string(payload[len(payload)-128:len(payload)-125]) == "TAG" {
		return payload[:len(payload)-128]
	}
	return payload
}

func decodeYear(parsed *id3v2.Tag) int {
	for _, id := range []string{"TDRC", "TYER"} {
		text := parsed.GetTextFrame(id).Text
		if len(text) >= 4 {
			if year, err := strconv.Atoi(text[:4]); err == nil {
				return year
			}
		}
	}
	return 0
}

func decodeTrackNumber(text string) int {
	// TRCK may carry "3" or "3/12".
	number, err := strconv.Atoi(strings.SplitN(text, "/", 2)[0])
	if err != nil {
		return 0
	}
	return number
}

func decodePicture(parsed *id3v2.Tag) *model.Image {
	var picture *id3v2.PictureFrame
	for i, frame := range parsed.GetFrames("APIC") {
		p, ok := frame.(id3v2.PictureFrame)
		if !ok {
			continue
		}
		// Take the first image, but prefer a front cover.
		if i == 0 || p.PictureType == id3v2.PTFrontCover {
			picture = &p
		}
	}
	if picture == nil {
		return nil
	}

	mimeType := picture.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(picture.Picture)
	}

	return &model.Image{
		MimeType:    mimeType,
		Data:        picture.Picture,
		Description: picture.Description,
	}
}

func setString(dst **string, value string) {
	if value != "" {
		*dst = &value
	}
}
