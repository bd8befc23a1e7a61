package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image/color"
	"sort"

	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/atlas"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

const (
	layoutMagic   = "TLAY"
	layoutVersion = 1

	// magic + version + flags + width + height + entries + colors
	layoutHeaderSize = 4 + 2 + 2 + 4 + 4 + 4 + 4
	layoutCRCSize    = 4
	entryFixedSize   = 2 + 1 + 4*4
	colorFixedSize   = 2 + 4
)

// ColorEntry is one colour asset as carried in the layout map.
type ColorEntry struct {
	ID    asset.ID
	Color color.NRGBA
}

// LayoutMap is the companion payload of an atlas: where every bitmap sits,
// plus the colour assets, which have no spatial layout.
type LayoutMap struct {
	Layout atlas.Layout
	Colors []ColorEntry
}

// MarshalBinary encodes m. Colours are written in id order so the output does
// not depend on table insertion order.
func (m *LayoutMap) MarshalBinary() ([]byte, error) {
	colors := append([]ColorEntry(nil), m.Colors...)
	sort.Slice(colors, func(i, j int) bool { return colors[i].ID < colors[j].ID })

	buf := new(bytes.Buffer)
	header := make([]byte, layoutHeaderSize)
	copy(header[0:4], layoutMagic)
	binary.LittleEndian.PutUint16(header[4:6], layoutVersion)
	binary.LittleEndian.PutUint16(header[6:8], 0)
	binary.LittleEndian.PutUint32(header[8:12], uint32(m.Layout.Width))
	binary.LittleEndian.PutUint32(header[12:16], uint32(m.Layout.Height))
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(m.Layout.Entries)))
	binary.LittleEndian.PutUint32(header[20:24], uint32(len(colors)))
	buf.Write(header)

	for _, e := range m.Layout.Entries {
		if err := writeID(buf, e.ID); err != nil {
			return nil, err
		}
		fixed := make([]byte, entryFixedSize-2)
		fixed[0] = byte(e.Role)
		binary.LittleEndian.PutUint32(fixed[1:5], uint32(e.X))
		binary.LittleEndian.PutUint32(fixed[5:9], uint32(e.Y))
		binary.LittleEndian.PutUint32(fixed[9:13], uint32(e.Width))
		binary.LittleEndian.PutUint32(fixed[13:17], uint32(e.Height))
		buf.Write(fixed)
	}

	for _, c := range colors {
		if err := writeID(buf, c.ID); err != nil {
			return nil, err
		}
		buf.Write([]byte{c.Color.R, c.Color.G, c.Color.B, c.Color.A})
	}

	crc := make([]byte, layoutCRCSize)
	binary.LittleEndian.PutUint32(crc, crc32.ChecksumIEEE(buf.Bytes()))
	buf.Write(crc)

	return buf.Bytes(), nil
}

func writeID(buf *bytes.Buffer, id asset.ID) error {
	if len(id) == 0 || len(id) > 0xFFFF {
		return fmt.Errorf("%w: id length %d", themeerrors.ErrMalformedAsset, len(id))
	}
	var n [2]byte
	binary.LittleEndian.PutUint16(n[:], uint16(len(id)))
	buf.Write(n[:])
	buf.WriteString(string(id))
	return nil
}

// UnmarshalLayoutMap decodes data. Framing problems and checksum mismatches
// are ErrCorruptLayout; counts and sizes over limits are ErrResourceExhausted
// and are rejected before anything is allocated for them.
func UnmarshalLayoutMap(data []byte, limits asset.Limits) (*LayoutMap, error) {
	limits = limits.OrDefault()

	if len(data) < layoutHeaderSize+layoutCRCSize {
		return nil, fmt.Errorf("%w: layout map is %d bytes", themeerrors.ErrCorruptLayout, len(data))
	}
	if string(data[0:4]) != layoutMagic {
		return nil, fmt.Errorf("%w: bad magic %q", themeerrors.ErrCorruptLayout, data[0:4])
	}

	body, trailer := data[:len(data)-layoutCRCSize], data[len(data)-layoutCRCSize:]
	if got, want := crc32.ChecksumIEEE(body), binary.LittleEndian.Uint32(trailer); got != want {
		return nil, fmt.Errorf("%w: checksum %08x, expected %08x", themeerrors.ErrCorruptLayout, got, want)
	}

	if v := binary.LittleEndian.Uint16(data[4:6]); v != layoutVersion {
		return nil, fmt.Errorf("%w: unknown layout version %d", themeerrors.ErrCorruptLayout, v)
	}

	width := binary.LittleEndian.Uint32(data[8:12])
	height := binary.LittleEndian.Uint32(data[12:16])
	nEntries := binary.LittleEndian.Uint32(data[16:20])
	nColors := binary.LittleEndian.Uint32(data[20:24])

	if err := limits.CheckPixels(uint64(width), uint64(height)); err != nil {
		return nil, err
	}
	if err := limits.CheckCount(uint64(nEntries) + uint64(nColors)); err != nil {
		return nil, err
	}

	// Every record has a fixed minimum size, so the counts can be checked
	// against what is actually there before allocating.
	rest := body[layoutHeaderSize:]
	minSize := uint64(nEntries)*(entryFixedSize+1) + uint64(nColors)*(colorFixedSize+1)
	if minSize > uint64(len(rest)) {
		return nil, fmt.Errorf("%w: %d entries and %d colours do not fit in %d bytes",
			themeerrors.ErrCorruptLayout, nEntries, nColors, len(rest))
	}

	m := &LayoutMap{
		Layout: atlas.Layout{
			Width:  int(width),
			Height: int(height),
		},
	}
	if nEntries > 0 {
		m.Layout.Entries = make([]atlas.Entry, 0, nEntries)
	}
	if nColors > 0 {
		m.Colors = make([]ColorEntry, 0, nColors)
	}

	r := &reader{data: rest, limits: limits}
	for i := uint32(0); i < nEntries; i++ {
		id := r.id()
		fixed := r.next(entryFixedSize - 2)
		if r.err != nil {
			return nil, r.err
		}
		role := asset.Role(fixed[0])
		if role != asset.RoleIcon && role != asset.RoleOther {
			return nil, fmt.Errorf("%w: %q has unknown role %d", themeerrors.ErrCorruptLayout, id, fixed[0])
		}
		m.Layout.Entries = append(m.Layout.Entries, atlas.Entry{
			ID:     id,
			Role:   role,
			X:      int(binary.LittleEndian.Uint32(fixed[1:5])),
			Y:      int(binary.LittleEndian.Uint32(fixed[5:9])),
			Width:  int(binary.LittleEndian.Uint32(fixed[9:13])),
			Height: int(binary.LittleEndian.Uint32(fixed[13:17])),
		})
	}

	for i := uint32(0); i < nColors; i++ {
		id := r.id()
		rgba := r.next(4)
		if r.err != nil {
			return nil, r.err
		}
		m.Colors = append(m.Colors, ColorEntry{
			ID:    id,
			Color: color.NRGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]},
		})
	}

	if len(r.data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", themeerrors.ErrCorruptLayout, len(r.data))
	}

	return m, nil
}

// reader walks a byte slice and latches the first error.
type reader struct {
	data   []byte
	limits asset.Limits
	err    error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > len(r.data) {
		r.err = fmt.Errorf("%w: truncated", themeerrors.ErrCorruptLayout)
		return nil
	}
	b := r.data[:n]
	r.data = r.data[n:]
	return b
}

func (r *reader) id() asset.ID {
	n := r.next(2)
	if r.err != nil {
		return ""
	}
	size := binary.LittleEndian.Uint16(n)
	if size == 0 {
		r.err = fmt.Errorf("%w: empty id", themeerrors.ErrCorruptLayout)
		return ""
	}
	if err := r.limits.CheckIDLength(uint64(size)); err != nil {
		r.err = err
		return ""
	}
	return asset.ID(r.next(int(size)))
}
