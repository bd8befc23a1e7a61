package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

// layoutChunk is a private, ancillary, safe-to-copy PNG chunk type. Image
// editors that honour the safe-to-copy bit keep it when pixels are edited.
const layoutChunk = "thLy"

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// embedChunk returns a copy of pngData with a chunk of the given type
// inserted straight after IHDR.
func embedChunk(pngData []byte, typ string, payload []byte) ([]byte, error) {
	if !bytes.HasPrefix(pngData, pngSignature) {
		return nil, fmt.Errorf("%w: missing PNG signature", themeerrors.ErrUnsupportedPixelFormat)
	}

	// Signature, then IHDR: length(4) type(4) data(13) crc(4)
	ihdrEnd := len(pngSignature) + 4 + 4 + 13 + 4
	if len(pngData) < ihdrEnd || string(pngData[12:16]) != "IHDR" {
		return nil, fmt.Errorf("%w: missing IHDR chunk", themeerrors.ErrUnsupportedPixelFormat)
	}

	out := make([]byte, 0, len(pngData)+12+len(payload))
	out = append(out, pngData[:ihdrEnd]...)
	out = appendChunk(out, typ, payload)
	out = append(out, pngData[ihdrEnd:]...)
	return out, nil
}

func appendChunk(dst []byte, typ string, payload []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(payload)))
	dst = append(dst, n[:]...)

	start := len(dst)
	dst = append(dst, typ...)
	dst = append(dst, payload...)

	binary.BigEndian.PutUint32(n[:], crc32.ChecksumIEEE(dst[start:]))
	return append(dst, n[:]...)
}

// extractChunk finds the first chunk of the given type. found is false when
// the file is a well-formed PNG without one.
func extractChunk(pngData []byte, typ string) (payload []byte, found bool, err error) {
	if !bytes.HasPrefix(pngData, pngSignature) {
		return nil, false, fmt.Errorf("%w: missing PNG signature", themeerrors.ErrUnsupportedPixelFormat)
	}

	rest := pngData[len(pngSignature):]
	for len(rest) >= 12 {
		length := binary.BigEndian.Uint32(rest[0:4])
		if uint64(length) > uint64(len(rest)-12) {
			return nil, false, fmt.Errorf("%w: PNG chunk length %d runs past end of file",
				themeerrors.ErrCorruptLayout, length)
		}
		kind := string(rest[4:8])
		body := rest[8 : 8+length]
		crc := binary.BigEndian.Uint32(rest[8+length : 12+length])

		if kind == typ {
			if crc32.ChecksumIEEE(rest[4:8+length]) != crc {
				return nil, false, fmt.Errorf("%w: %s chunk checksum mismatch", themeerrors.ErrCorruptLayout, typ)
			}
			return body, true, nil
		}
		if kind == "IEND" {
			break
		}
		rest = rest[12+length:]
	}
	return nil, false, nil
}
