package asset

import (
	"fmt"
	"image"
	"sort"

	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// Table maps asset ids to assets. Iteration follows insertion order; codecs
// must not rely on it for their output.
//
// A Table is not safe for concurrent use.
type Table struct {
	order   []ID
	entries map[ID]Asset
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[ID]Asset)}
}

// Len returns the number of assets.
func (t *Table) Len() int { return len(t.order) }

// Add inserts a. An id that is already present is ErrDuplicateAsset.
func (t *Table) Add(a Asset) error {
	if a.kind == 0 {
		return fmt.Errorf("%w: zero asset", themeerrors.ErrMalformedAsset)
	}
	if _, ok := t.entries[a.id]; ok {
		return fmt.Errorf("%w: %q", themeerrors.ErrDuplicateAsset, a.id)
	}
	t.entries[a.id] = a
	t.order = append(t.order, a.id)
	return nil
}

// Put inserts a, replacing any asset with the same id in place.
func (t *Table) Put(a Asset) {
	if _, ok := t.entries[a.id]; !ok {
		t.order = append(t.order, a.id)
	}
	t.entries[a.id] = a
}

// Get returns the asset for id.
func (t *Table) Get(id ID) (Asset, bool) {
	a, ok := t.entries[id]
	return a, ok
}

// Remove deletes id and reports whether it was present.
func (t *Table) Remove(id ID) bool {
	if _, ok := t.entries[id]; !ok {
		return false
	}
	delete(t.entries, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// IDs returns all ids in insertion order.
func (t *Table) IDs() []ID {
	return append([]ID(nil), t.order...)
}

// SortedIDs returns all ids in byte-wise order.
func (t *Table) SortedIDs() []ID {
	ids := t.IDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Assets returns every asset in insertion order.
func (t *Table) Assets() []Asset {
	out := make([]Asset, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.entries[id])
	}
	return out
}

// Bitmaps returns the bitmap assets in insertion order.
func (t *Table) Bitmaps() []Asset {
	return t.ofKind(KindBitmap)
}

// Colors returns the colour assets in insertion order.
func (t *Table) Colors() []Asset {
	return t.ofKind(KindColor)
}

func (t *Table) ofKind(k Kind) []Asset {
	var out []Asset
	for _, id := range t.order {
		if a := t.entries[id]; a.kind == k {
			out = append(out, a)
		}
	}
	return out
}

// Equal reports whether t and other hold the same assets, regardless of
// insertion order.
func (t *Table) Equal(other *Table) bool {
	if t.Len() != other.Len() {
		return false
	}
	for id, a := range t.entries {
		b, ok := other.entries[id]
		if !ok || !a.Equal(b) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of t; bitmap pixels are copied too.
func (t *Table) Clone() *Table {
	c := NewTable()
	for _, id := range t.order {
		a := t.entries[id]
		if a.kind == KindBitmap {
			img := image.NewNRGBA(a.bitmap.Image.Rect)
			copy(img.Pix, a.bitmap.Image.Pix)
			a.bitmap = &Bitmap{Role: a.bitmap.Role, Image: img}
		}
		c.entries[id] = a
		c.order = append(c.order, id)
	}
	return c
}

// IDSet is a set of asset ids, typically the ids a running program knows how
// to use.
type IDSet map[ID]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...ID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in s. A nil set contains every id.
func (s IDSet) Contains(id ID) bool {
	if s == nil {
		return true
	}
	_, ok := s[id]
	return ok
}

// KnownIDs returns the ids of t as a set.
func (t *Table) KnownIDs() IDSet {
	return NewIDSet(t.order...)
}
