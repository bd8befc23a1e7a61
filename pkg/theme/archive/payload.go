package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// Payload layout, little-endian:
//
//	"TPAY" | count u32 | record...
//	record: kind u8 | idLen u16 | id | bodyLen u32 | body
//	colour body: r g b a
//	bitmap body: role u8 | width u32 | height u32 | width*height*4 NRGBA bytes
//
// Every record carries its length so a reader can step over kinds it does
// not know.
const payloadMagic = "TPAY"

const (
	recordColor  uint8 = 1
	recordBitmap uint8 = 2
)

// record is one decoded payload entry. known is false for kinds this codec
// cannot interpret; such records are always dropped.
type record struct {
	id     asset.ID
	kind   uint8
	known  bool
	color  color.NRGBA
	role   asset.Role
	width  int
	height int
	pixels []byte
}

// encodePayload serializes table in id order, so the same table always
// produces the same bytes.
func encodePayload(table *asset.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(payloadMagic)
	writeU32(&buf, uint32(table.Len()))

	for _, id := range table.SortedIDs() {
		a, _ := table.Get(id)
		if len(id) > 0xFFFF {
			return nil, fmt.Errorf("%w: id of %d bytes", themeerrors.ErrMalformedAsset, len(id))
		}

		if c, ok := a.Color(); ok {
			buf.WriteByte(recordColor)
			writeU16(&buf, uint16(len(id)))
			buf.WriteString(string(id))
			writeU32(&buf, 4)
			buf.Write([]byte{c.R, c.G, c.B, c.A})
			continue
		}

		bm, _ := a.Bitmap()
		w, h := bm.Width(), bm.Height()
		buf.WriteByte(recordBitmap)
		writeU16(&buf, uint16(len(id)))
		buf.WriteString(string(id))
		writeU32(&buf, uint32(9+w*h*4))
		buf.WriteByte(byte(bm.Role))
		writeU32(&buf, uint32(w))
		writeU32(&buf, uint32(h))
		for y := 0; y < h; y++ {
			off := bm.Image.PixOffset(0, y)
			buf.Write(bm.Image.Pix[off : off+w*4])
		}
	}

	return buf.Bytes(), nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// decodePayload parses data. Framing errors are reported as plain errors for
// the caller to classify; sizes over limits are ErrResourceExhausted.
func decodePayload(data []byte, limits asset.Limits) ([]record, error) {
	if len(data) < 8 || string(data[:4]) != payloadMagic {
		return nil, fmt.Errorf("payload has no %s header", payloadMagic)
	}
	count := binary.LittleEndian.Uint32(data[4:8])
	if err := limits.CheckCount(uint64(count)); err != nil {
		return nil, err
	}
	// Smallest record: kind + idLen + 1-byte id + bodyLen
	rest := data[8:]
	if uint64(count)*8 > uint64(len(rest)) {
		return nil, fmt.Errorf("payload claims %d records in %d bytes", count, len(rest))
	}

	records := make([]record, 0, count)
	seen := make(map[asset.ID]struct{}, count)
	for i := uint32(0); i < count; i++ {
		if len(rest) < 3 {
			return nil, fmt.Errorf("record %d: truncated", i)
		}
		kind := rest[0]
		idLen := int(binary.LittleEndian.Uint16(rest[1:3]))
		rest = rest[3:]
		if idLen == 0 {
			return nil, fmt.Errorf("record %d: empty id", i)
		}
		if err := limits.CheckIDLength(uint64(idLen)); err != nil {
			return nil, err
		}
		if len(rest) < idLen+4 {
			return nil, fmt.Errorf("record %d: truncated", i)
		}
		id := asset.ID(rest[:idLen])
		bodyLen := binary.LittleEndian.Uint32(rest[idLen : idLen+4])
		rest = rest[idLen+4:]
		if uint64(bodyLen) > uint64(len(rest)) {
			return nil, fmt.Errorf("record %q: body of %d bytes runs past end of payload", id, bodyLen)
		}
		body := rest[:bodyLen]
		rest = rest[bodyLen:]

		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("record %q appears twice", id)
		}
		seen[id] = struct{}{}

		rec := record{id: id, kind: kind}
		switch kind {
		case recordColor:
			if len(body) != 4 {
				return nil, fmt.Errorf("colour %q: body is %d bytes", id, len(body))
			}
			rec.known = true
			rec.color = color.NRGBA{R: body[0], G: body[1], B: body[2], A: body[3]}
		case recordBitmap:
			if len(body) < 9 {
				return nil, fmt.Errorf("bitmap %q: body is %d bytes", id, len(body))
			}
			w := binary.LittleEndian.Uint32(body[1:5])
			h := binary.LittleEndian.Uint32(body[5:9])
			if err := limits.CheckPixels(uint64(w), uint64(h)); err != nil {
				return nil, fmt.Errorf("bitmap %q: %w", id, err)
			}
			if w == 0 || h == 0 || uint64(len(body)-9) != uint64(w)*uint64(h)*4 {
				return nil, fmt.Errorf("bitmap %q: %dx%d does not match %d pixel bytes", id, w, h, len(body)-9)
			}
			role := asset.Role(body[0])
			if role != asset.RoleIcon && role != asset.RoleOther {
				return nil, fmt.Errorf("bitmap %q: unknown role %d", id, body[0])
			}
			rec.known = true
			rec.role = role
			rec.width, rec.height = int(w), int(h)
			rec.pixels = body[9:]
		}
		records = append(records, rec)
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("%d trailing payload bytes", len(rest))
	}
	return records, nil
}

// dropped lists, in id order, the records a reader that knows only known
// would ignore: unknown kinds, and ids outside known.
func dropped(records []record, known asset.IDSet) []asset.ID {
	var out []asset.ID
	for _, r := range records {
		if !r.known || !known.Contains(r.id) {
			out = append(out, r.id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// toAsset builds an asset that owns a private copy of the pixels.
func (r *record) toAsset() (asset.Asset, error) {
	if r.kind == recordColor {
		return asset.NewColor(r.id, r.color)
	}
	img := image.NewNRGBA(image.Rect(0, 0, r.width, r.height))
	copy(img.Pix, r.pixels)
	return asset.NewBitmap(r.id, r.role, img)
}
