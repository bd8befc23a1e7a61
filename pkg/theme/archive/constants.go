package archive

import "github.com/provide-io/themepack/go/themepack/pkg/theme/compat"

// Magic opens every theme package: 🎨 followed by "TPKG".
var Magic = []byte{0xF0, 0x9F, 0x8E, 0xA8, 'T', 'P', 'K', 'G'}

const (
	// FormatVersion is the theme format this codec writes and reads in full.
	FormatVersion compat.Version = 1

	// FormatName is stored in metadata so other tools can tell the file apart.
	FormatName = "themepack"

	// FramingVersion versions the container layout below, independently of
	// the theme format carried inside it.
	FramingVersion = 1

	// Fixed sizes - part of the container layout
	HeaderSize     = 64
	DescriptorSize = 40

	// MaxEntries bounds the entry table. Real packages have two.
	MaxEntries = 64
)

// Entry kinds. Kinds a reader does not know are skipped.
const (
	EntryMetadata uint16 = 1 // gzip JSON Metadata
	EntryPayload  uint16 = 2 // serialized asset table, transformed by the descriptor's operations
)

// DefaultOperations is the payload chain Write uses unless told otherwise.
const DefaultOperations = "zstd"
