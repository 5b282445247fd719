package flacmeta

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	albumtag "github.com/aeiou/albumtag/internal"
	"github.com/aeiou/albumtag/internal/model"
)

// Codec reads and rewrites the VORBIS_COMMENT and PICTURE metadata blocks
// of a FLAC stream. Comment keys are case-insensitive; only the recognized
// keys are overwritten, every other comment already present is preserved.
type Codec struct{}

type blocks = []*flac.MetaDataBlock

// The comment keys this codec owns, mapped from model fields.
const (
	keyTitle  = "TITLE"
	keyArtist = "ARTIST"
	keyAlbum  = "ALBUM"
	keyGenre  = "GENRE"
	keyDate   = "DATE"
	keyTrack  = "TRACKNUMBER"
)

func (c *Codec) Decode(raw []byte) (*model.Tags, bool) {
	file, err := flac.ParseBytes(bytes.NewReader(raw))
	if err != nil {
		return &model.Tags{}, true
	}

	tags := &model.Tags{}

	comment, _ := findComment(file.Meta)
	if comment != nil {
		fields := commentFields(comment)
		setString(&tags.Title, fields[keyTitle])
		setString(&tags.Artist, fields[keyArtist])
		setString(&tags.Album, fields[keyAlbum])
		setString(&tags.Genre, fields[keyGenre])
		if year := decodeYear(fields[keyDate]); year != 0 {
			tags.Year = &year
		}
		if number, err := strconv.Atoi(fields[keyTrack]); err == nil && number > 0 {
			tags.TrackNumber = &number
		}
	}

	tags.Cover = decodePicture(file.Meta)

	return tags, false
}

func (c *Codec) Encode(tags *model.Tags, raw []byte) ([]byte, error) {
	file, err := flac.ParseBytes(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse flac stream: %w", err)
	}

	comment, commentIndex := findComment(file.Meta)
	if comment == nil {
		// No usable comment block: synthesize a minimal empty one.
		comment = flacvorbis.New()
		comment.Vendor = "albumtag " + albumtag.Version
	}

	comment.Comments = withoutKeys(comment.Comments, overwrittenKeys(tags))

	addComment(comment, keyTitle, tags.Title)
	addComment(comment, keyArtist, tags.Artist)
	addComment(comment, keyAlbum, tags.Album)
	addComment(comment, keyGenre, tags.Genre)
	if tags.Year != nil {
		comment.Add(keyDate, strconv.Itoa(*tags.Year))
	}
	if tags.TrackNumber != nil {
		comment.Add(keyTrack, strconv.Itoa(*tags.TrackNumber))
	}

	// Marshal re-frames the block with its new length prefix; the block
	// chain itself is re-framed by File.Marshal below.
	commentBlock := comment.Marshal()
	if commentIndex >= 0 {
		file.Meta[commentIndex] = &commentBlock
	} else {
		file.Meta = append(file.Meta, &commentBlock)
	}

	if tags.Cover != nil {
		picture, err := flacpicture.NewFromImageData(
			flacpicture.PictureTypeFrontCover,
			tags.Cover.Description,
			tags.Cover.Data,
			tags.Cover.MimeType,
		)
		if err != nil {
			return nil, fmt.Errorf("build picture block: %w", err)
		}
		pictureBlock := picture.Marshal()
		if index := pictureIndex(file.Meta); index >= 0 {
			file.Meta[index] = &pictureBlock
		} else {
			file.Meta = append(file.Meta, &pictureBlock)
		}
	}

	return file.Marshal(), nil
}

// findComment locates the first VORBIS_COMMENT block. An unparsable block
// still reports its index so a rewrite replaces it in place; a stream may
// carry at most one comment block.
func findComment(meta blocks) (*flacvorbis.MetaDataBlockVorbisComment, int) {
	for index, block := range meta {
		if block.Type != flac.VorbisComment {
			continue
		}
		comment, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			return nil, index
		}
		return comment, index
	}
	return nil, -1
}

func pictureIndex(meta blocks) int {
	for index, block := range meta {
		if block.Type == flac.Picture {
			return index
		}
	}
	return -1
}

// commentFields flattens the comment entries to an uppercase-key map,
// keeping the first value per key.
func commentFields(comment *flacvorbis.MetaDataBlockVorbisComment) map[string]string {
	fields := make(map[string]string, len(comment.Comments))
	for _, entry := range comment.Comments {
		split := strings.SplitN(entry, "=", 2)
		if len(split) != 2 {
			continue
		}
		key := strings.ToUpper(split[0])
		if _, ok := fields[key]; !ok {
			fields[key] = split[1]
		}
	}
	return fields
}

// overwrittenKeys lists the keys that the set fields of tags will replace.
func overwrittenKeys(tags *model.Tags) map[string]bool {
	keys := make(map[string]bool)
	if tags.Title != nil {
		keys[keyTitle] = true
	}
	if tags.Artist != nil {
		keys[keyArtist] = true
	}
	if tags.Album != nil {
		keys[keyAlbum] = true
	}
	if tags.Genre != nil {
		keys[keyGenre] = true
	}
	if tags.Year != nil {
		keys[keyDate] = true
	}
	if tags.TrackNumber != nil {
		keys[keyTrack] = true
	}
	return keys
}

func withoutKeys(entries []string, keys map[string]bool) []string {
	kept := make([]string, 0, len(entries))
	for _, entry := range entries {
		split := strings.SplitN(entry, "=", 2)
		if len(split) == 2 && keys[strings.ToUpper(split[0])] {
			continue
		}
		kept = append(kept, entry)
	}
	return kept
}

func addComment(comment *flacvorbis.MetaDataBlockVorbisComment, key string, value *string) {
	if value != nil {
		comment.Add(key, *value)
	}
}

func decodeYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

func decodePicture(meta blocks) *model.Image {
	var picture *flacpicture.MetadataBlockPicture
	for _, block := range meta {
		if block.Type != flac.Picture {
			continue
		}
		parsed, err := flacpicture.ParseFromMetaDataBlock(*block)
		if err != nil {
			continue
		}
		// Take the first picture, but prefer a front cover.
		if picture == nil || parsed.PictureType == flacpicture.PictureTypeFrontCover {
			picture = parsed
			if picture.PictureType == flacpicture.PictureTypeFrontCover {
				break
			}
		}
	}
	if picture == nil {
		return nil
	}

	mimeType := picture.MIME
	if mimeType == "" {
		mimeType = http.DetectContentType(picture.ImageData)
	}

	return &model.Image{
		MimeType:    mimeType,
		Data:        picture.ImageData,
		Description: picture.Description,
	}
}

func setString(dst **string, value string) {
	if value != "" {
		*dst = &value
	}
}
