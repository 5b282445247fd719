package m4a

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/abema/go-mp4"
	"golang.org/x/exp/slices"

	"github.com/aeiou/albumtag/internal/model"
)

// ErrStructuralRewrite is returned when resizing the metadata subtree
// would shift the byte offsets the sample tables point at. Rewriting
// stco/co64 offset tables is not supported, so the file is rejected
// instead of silently corrupted.
var ErrStructuralRewrite = errors.New("metadata resize would shift chunk offsets")

// Codec reads and rewrites the ilst metadata subtree of an MP4/M4A atom
// tree (moov > udta > meta > ilst). Ancestor atom sizes are recomputed on
// the way out; a resize that would move the audio payload is rejected
// with ErrStructuralRewrite.
type Codec struct{}

var (
	parentBoxes = []string{"moov", "udta", "meta", "ilst"}
	itemBoxes   = []string{"(c)nam", "(c)ART", "(c)alb", "(c)gen", "(c)day", "trkn", "covr"}
)

func (c *Codec) Decode(raw []byte) (*model.Tags, bool) {
	tags := &model.Tags{}

	var itemName string

	_, err := mp4.ReadBoxStructure(bytes.NewReader(raw), func(h *mp4.ReadHandle) (interface{}, error) {
		if !h.BoxInfo.IsSupportedType() {
			return nil, nil
		}

		typeName := h.BoxInfo.Type.String()

		if slices.Contains(parentBoxes, typeName) || slices.Contains(itemBoxes, typeName) {
			itemName = typeName
			return h.Expand()
		}

		if typeName != "data" {
			return nil, nil
		}

		buf := new(bytes.Buffer)
		if _, err := h.ReadData(buf); err != nil {
			return nil, err
		}
		// The first 8 payload bytes are the data type and locale.
		if buf.Len() <= 8 {
			return nil, nil
		}
		data := buf.Bytes()[8:]

		switch itemName {
		case "(c)nam":
			tags.Title = model.String(string(data))
		case "(c)ART":
			tags.Artist = model.String(string(data))
		case "(c)alb":
			tags.Album = model.String(string(data))
		case "(c)gen":
			tags.Genre = model.String(string(data))
		case "(c)day":
			if year := decodeYear(string(data)); year != 0 {
				tags.Year = &year
			}
		case "trkn":
			if len(data) >= 4 {
				if number := int(binary.BigEndian.Uint16(data[2:4])); number > 0 {
					tags.TrackNumber = &number
				}
			}
		case "covr":
			tags.Cover = &model.Image{
				MimeType: http.DetectContentType(data),
				Data:     data,
			}
		}
		return nil, nil
	})
	if err != nil {
		return &model.Tags{}, true
	}

	return tags, false
}

func (c *Codec) Encode(tags *model.Tags, raw []byte) ([]byte, error) {
	moovFirst, err := moovPrecedesMdat(raw)
	if err != nil {
		return nil, err
	}

	reader := bytes.NewReader(raw)

	udtaBoxes, err := mp4.ExtractBox(reader, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta()})
	if err != nil {
		return nil, fmt.Errorf("inspect udta: %w", err)
	}
	metaBoxes, err := mp4.ExtractBox(reader, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta(), mp4.BoxTypeMeta()})
	if err != nil {
		return nil, fmt.Errorf("inspect meta: %w", err)
	}
	ilstBoxes, err := mp4.ExtractBox(reader, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta(), mp4.BoxTypeMeta(), mp4.BoxTypeIlst()})
	if err != nil {
		return nil, fmt.Errorf("inspect ilst: %w", err)
	}
	hasUdta := len(udtaBoxes) > 0
	hasMeta := len(metaBoxes) > 0
	hasIlst := len(ilstBoxes) > 0

	overwritten := overwrittenItems(tags)

	out := newBufferSeeker(len(raw))
	w := mp4.NewWriter(out)

	_, err = mp4.ReadBoxStructure(reader, func(h *mp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case mp4.BoxTypeMoov(), mp4.BoxTypeUdta(), mp4.BoxTypeMeta():
			if _, err := w.StartBox(&h.BoxInfo); err != nil {
				return nil, err
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if _, err := mp4.Marshal(w, box, h.BoxInfo.Context); err != nil {
				return nil, err
			}

			// Synthesize the missing part of the moov>udta>meta>ilst chain
			// at the deepest ancestor that does exist.
			switch {
			case h.BoxInfo.Type == mp4.BoxTypeMoov() && !hasUdta:
				err = writeUdtaChain(w, tags)
			case h.BoxInfo.Type == mp4.BoxTypeUdta() && !hasMeta:
				err = writeMetaChain(w, tags)
			case h.BoxInfo.Type == mp4.BoxTypeMeta() && !hasIlst:
				err = writeIlst(w, tags)
			}
			if err != nil {
				return nil, err
			}

			if _, err := h.Expand(); err != nil {
				return nil, err
			}
			_, err = w.EndBox()
			return nil, err

		case mp4.BoxTypeIlst():
			// Fresh items first, then the existing items the model does
			// not cover are carried over below.
			if _, err := w.StartBox(&h.BoxInfo); err != nil {
				return nil, err
			}
			if err := writeItems(w, tags); err != nil {
				return nil, err
			}
			if _, err := h.Expand(); err != nil {
				return nil, err
			}
			_, err := w.EndBox()
			return nil, err

		default:
			if h.BoxInfo.Context.UnderIlst && overwritten[h.BoxInfo.Type.String()] {
				// A fresh item of this name was already written.
				return nil, nil
			}
			return nil, w.CopyBox(reader, &h.BoxInfo)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("rewrite box tree: %w", err)
	}

	rewritten := out.Bytes()
	if moovFirst && len(rewritten) != len(raw) {
		return nil, ErrStructuralRewrite
	}

	return rewritten, nil
}

// moovPrecedesMdat walks the top-level box headers of the original file.
// When moov sits in front of mdat, growing or shrinking moov moves the
// audio payload, invalidating every chunk offset.
func moovPrecedesMdat(raw []byte) (bool, error) {
	var moovAt, mdatAt, offset int64 = -1, -1, 0
	size := int64(len(raw))

	for offset+8 <= size {
		boxSize := int64(binary.BigEndian.Uint32(raw[offset : offset+4]))
		boxType := string(raw[offset+4 : offset+8])
		switch boxSize {
		case 0:
			// Box extends to the end of the file.
			boxSize = size - offset
		case 1:
			if offset+16 > size {
				return false, fmt.Errorf("truncated largesize box %q", boxType)
			}
			boxSize = int64(binary.BigEndian.Uint64(raw[offset+8 : offset+16]))
		}
		if boxSize < 8 || offset+boxSize > size {
			return false, fmt.Errorf("box %q has invalid size %d", boxType, boxSize)
		}
		switch boxType {
		case "moov":
			moovAt = offset
		case "mdat":
			mdatAt = offset
		}
		offset += boxSize
	}

	if moovAt < 0 {
		return false, errors.New("no moov box")
	}
	return mdatAt >= 0 && moovAt < mdatAt, nil
}

func writeUdtaChain(w *mp4.Writer, tags *model.Tags) error {
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeUdta()}); err != nil {
		return err
	}
	if err := writeMetaChain(w, tags); err != nil {
		return err
	}
	_, err := w.EndBox()
	return err
}

func writeMetaChain(w *mp4.Writer, tags *model.Tags) error {
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeMeta()}); err != nil {
		return err
	}
	if _, err := mp4.Marshal(w, &mp4.Meta{}, mp4.Context{UnderUdta: true}); err != nil {
		return err
	}
	if err := writeIlst(w, tags); err != nil {
		return err
	}
	_, err := w.EndBox()
	return err
}

// overwrittenItems names the ilst item boxes the set model fields rebuild.
// On-disk items outside this set survive a rewrite untouched.
func overwrittenItems(tags *model.Tags) map[string]bool {
	items := make(map[string]bool)
	if tags.Title != nil {
		items["(c)nam"] = true
	}
	if tags.Artist != nil {
		items["(c)ART"] = true
	}
	if tags.Album != nil {
		items["(c)alb"] = true
	}
	if tags.Genre != nil {
		items["(c)gen"] = true
	}
	if tags.Year != nil {
		items["(c)day"] = true
	}
	if tags.TrackNumber != nil {
		items["trkn"] = true
	}
	if tags.Cover != nil {
		items["covr"] = true
	}
	return items
}

func writeIlst(w *mp4.Writer, tags *model.Tags) error {
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeIlst()}); err != nil {
		return err
	}
	if err := writeItems(w, tags); err != nil {
		return err
	}
	_, err := w.EndBox()
	return err
}

func writeItems(w *mp4.Writer, tags *model.Tags) error {
	if tags.Title != nil {
		if err := writeStringItem(w, "\251nam", *tags.Title); err != nil {
			return err
		}
	}
	if tags.Artist != nil {
		if err := writeStringItem(w, "\251ART", *tags.Artist); err != nil {
			return err
		}
	}
	if tags.Album != nil {
		if err := writeStringItem(w, "\251alb", *tags.Album); err != nil {
			return err
		}
	}
	if tags.Genre != nil {
		if err := writeStringItem(w, "\251gen", *tags.Genre); err != nil {
			return err
		}
	}
	if tags.Year != nil {
		if err := writeStringItem(w, "\251day", strconv.Itoa(*tags.Year)); err != nil {
			return err
		}
	}
	if tags.TrackNumber != nil {
		if err := writeTrackItem(w, *tags.TrackNumber); err != nil {
			return err
		}
	}
	if tags.Cover != nil {
		if err := writeBinaryItem(w, "covr", tags.Cover.Data); err != nil {
			return err
		}
	}
	return nil
}

func writeStringItem(w *mp4.Writer, name string, value string) error {
	return writeItem(w, name, &mp4.Data{
		DataType: mp4.DataTypeStringUTF8,
		Data:     []byte(value),
	})
}

func writeBinaryItem(w *mp4.Writer, name string, value []byte) error {
	return writeItem(w, name, &mp4.Data{
		DataType: mp4.DataTypeBinary,
		Data:     value,
	})
}

func writeTrackItem(w *mp4.Writer, number int) error {
	data := make([]byte, 8)
	binary.BigEndian.PutUint16(data[2:4], uint16(number))
	return writeItem(w, "trkn", &mp4.Data{
		DataType: mp4.DataTypeBinary,
		Data:     data,
	})
}

func writeItem(w *mp4.Writer, name string, data *mp4.Data) error {
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxType([]byte(name))}); err != nil {
		return err
	}
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeData()}); err != nil {
		return err
	}

	if _, err := mp4.Marshal(w, data, mp4.Context{UnderIlstMeta: true}); err != nil {
		return err
	}

	if _, err := w.EndBox(); err != nil {
		return err
	}
	_, err := w.EndBox()
	return err
}

func decodeYear(day string) int {
	// (c)day holds a year or a full date, "2016" or "2016-05-01".
	if len(day) < 4 {
		return 0
	}
	year, err := strconv.Atoi(day[:4])
	if err != nil {
		return 0
	}
	return year
}
