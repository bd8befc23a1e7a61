package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/adler32"
)

// Header is the fixed 64-byte block at offset 0 of a package.
type Header struct {
	FramingVersion   uint32 // FramingVersion
	EntryCount       uint32 // Number of descriptors in the entry table
	EntryTableOffset uint64 // Offset to entry table
	EntryTableSize   uint64 // Size of entry table
	PackageSize      uint64 // Total file size
	HeaderChecksum   uint32 // Adler-32 of header block (with this field as 0)
	EntryChecksum    uint32 // Adler-32 of entry table
	// 8 reserved bytes
}

// Pack serializes the header to bytes
func (h *Header) Pack() []byte {
	buf := make([]byte, HeaderSize)

	copy(buf[0:8], Magic)
	binary.LittleEndian.PutUint32(buf[8:12], h.FramingVersion)
	binary.LittleEndian.PutUint32(buf[12:16], h.EntryCount)
	binary.LittleEndian.PutUint64(buf[16:24], h.EntryTableOffset)
	binary.LittleEndian.PutUint64(buf[24:32], h.EntryTableSize)
	binary.LittleEndian.PutUint64(buf[32:40], h.PackageSize)
	binary.LittleEndian.PutUint32(buf[40:44], h.HeaderChecksum)
	binary.LittleEndian.PutUint32(buf[44:48], h.EntryChecksum)
	// 48:64 reserved

	return buf
}

// Seal computes HeaderChecksum and returns the packed header.
func (h *Header) Seal() []byte {
	h.HeaderChecksum = 0
	h.HeaderChecksum = adler32.Checksum(h.Pack())
	return h.Pack()
}

// Unpack deserializes the header from bytes and verifies magic and
// checksum.
func (h *Header) Unpack(data []byte) error {
	if len(data) != HeaderSize {
		return fmt.Errorf("invalid header size: %d", len(data))
	}
	if !bytes.Equal(data[0:8], Magic) {
		return fmt.Errorf("invalid magic: % x", data[0:8])
	}

	h.FramingVersion = binary.LittleEndian.Uint32(data[8:12])
	h.EntryCount = binary.LittleEndian.Uint32(data[12:16])
	h.EntryTableOffset = binary.LittleEndian.Uint64(data[16:24])
	h.EntryTableSize = binary.LittleEndian.Uint64(data[24:32])
	h.PackageSize = binary.LittleEndian.Uint64(data[32:40])
	h.HeaderChecksum = binary.LittleEndian.Uint32(data[40:44])
	h.EntryChecksum = binary.LittleEndian.Uint32(data[44:48])

	zeroed := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(zeroed[40:44], 0)
	if got := adler32.Checksum(zeroed); got != h.HeaderChecksum {
		return fmt.Errorf("header checksum 0x%08x, expected 0x%08x", got, h.HeaderChecksum)
	}

	return nil
}

// Descriptor locates one entry.
type Descriptor struct {
	Kind       uint16 // EntryMetadata, EntryPayload, ...
	Flags      uint16 // Reserved, zero
	Checksum   uint32 // Adler-32 of stored bytes, or 0 when unchecked
	Offset     uint64 // Offset from start of file
	Size       uint64 // Stored size
	OrigSize   uint64 // Size after reversing Operations
	Operations uint64 // Packed operation chain
}

// Pack serializes the descriptor to bytes
func (d *Descriptor) Pack() []byte {
	buf := make([]byte, DescriptorSize)

	binary.LittleEndian.PutUint16(buf[0:2], d.Kind)
	binary.LittleEndian.PutUint16(buf[2:4], d.Flags)
	binary.LittleEndian.PutUint32(buf[4:8], d.Checksum)
	binary.LittleEndian.PutUint64(buf[8:16], d.Offset)
	binary.LittleEndian.PutUint64(buf[16:24], d.Size)
	binary.LittleEndian.PutUint64(buf[24:32], d.OrigSize)
	binary.LittleEndian.PutUint64(buf[32:40], d.Operations)

	return buf
}

// Unpack deserializes the descriptor from bytes
func (d *Descriptor) Unpack(data []byte) error {
	if len(data) != DescriptorSize {
		return fmt.Errorf("invalid descriptor size: %d", len(data))
	}

	d.Kind = binary.LittleEndian.Uint16(data[0:2])
	d.Flags = binary.LittleEndian.Uint16(data[2:4])
	d.Checksum = binary.LittleEndian.Uint32(data[4:8])
	d.Offset = binary.LittleEndian.Uint64(data[8:16])
	d.Size = binary.LittleEndian.Uint64(data[16:24])
	d.OrigSize = binary.LittleEndian.Uint64(data[24:32])
	d.Operations = binary.LittleEndian.Uint64(data[32:40])

	return nil
}

// within reports whether [offset, offset+size) lies inside a file of
// fileSize bytes, without overflowing.
func within(offset, size, fileSize uint64) bool {
	return offset <= fileSize && size <= fileSize-offset
}
