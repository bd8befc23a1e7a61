package archive

import (
	"fmt"
	"hash/adler32"
	"io"
	"runtime"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/themepack/go/themepack/internal/atomicfile"
	"github.com/provide-io/themepack/go/themepack/pkg/logging"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/compat"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/operations"
)

// WriteOptions configure a Writer.
type WriteOptions struct {
	Operations string            // payload chain, e.g. "zstd" or "bzip2|zstd"; DefaultOperations when empty
	Checksum   ChecksumAlgorithm // integrity token algorithm
	Tool       string            // recorded in build info
	Version    string            // tool version, recorded in build info
	Logger     hclog.Logger
}

// Writer writes theme packages.
type Writer struct {
	operations uint64
	checksum   ChecksumAlgorithm
	tool       string
	version    string
	logger     hclog.Logger

	// formatVersion is stamped into every package. Only tests change it, to
	// produce packages from other codec versions.
	formatVersion compat.Version
}

// NewWriter validates opts and returns a Writer.
func NewWriter(opts WriteOptions) (*Writer, error) {
	chain := opts.Operations
	if chain == "" {
		chain = DefaultOperations
	}
	packed, err := operations.StringToOperations(chain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", themeerrors.ErrInvalidArgument, err)
	}
	for _, op := range operations.UnpackOperations(packed) {
		if _, err := operations.Get(op); err != nil {
			return nil, fmt.Errorf("%w: %v", themeerrors.ErrInvalidArgument, err)
		}
	}

	tool := opts.Tool
	if tool == "" {
		tool = FormatName
	}

	return &Writer{
		operations:    packed,
		checksum:      opts.Checksum,
		tool:          tool,
		version:       opts.Version,
		logger:        logging.OrNull(opts.Logger),
		formatVersion: FormatVersion,
	}, nil
}

// Write stores table at path with the default options.
func Write(table *asset.Table, meta Metadata, path string) error {
	w, err := NewWriter(WriteOptions{})
	if err != nil {
		return err
	}
	return w.Write(table, meta, path)
}

// Write stamps the current format version into meta, recomputes the
// integrity token and publishes the package at path atomically. A zero
// MinCompatibleVersion means "this version only"; one above the format
// version is ErrInvalidArgument.
func (w *Writer) Write(table *asset.Table, meta Metadata, path string) error {
	meta.Format = FormatName
	meta.FormatVersion = w.formatVersion
	if meta.MinCompatibleVersion == 0 {
		meta.MinCompatibleVersion = w.formatVersion
	}
	if meta.MinCompatibleVersion > meta.FormatVersion {
		return fmt.Errorf("%w: minimum compatible version %d is above format version %d",
			themeerrors.ErrInvalidArgument, meta.MinCompatibleVersion, meta.FormatVersion)
	}

	raw, err := encodePayload(table)
	if err != nil {
		return err
	}
	return w.writePayload(raw, table.Len(), meta, path)
}

// writePayload frames an already serialized payload holding count records.
func (w *Writer) writePayload(raw []byte, count int, meta Metadata, path string) error {
	stored, err := operations.ApplyChain(raw, w.operations)
	if err != nil {
		return fmt.Errorf("failed to transform payload: %w", err)
	}

	meta.Integrity = CalculateChecksum(stored, w.checksum)
	meta.Operations = operations.OperationsToString(w.operations)
	meta.AssetCount = count
	if meta.Build == nil {
		meta.Build = &BuildInfo{
			Tool:        w.tool,
			ToolVersion: w.version,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Platform:    PlatformInfo{OS: runtime.GOOS, Arch: runtime.GOARCH},
		}
	}

	metaBytes, err := encodeMetadata(&meta)
	if err != nil {
		return err
	}

	// header | entry table | metadata | payload
	tableOffset := uint64(HeaderSize)
	metaOffset := tableOffset + 2*DescriptorSize
	payloadOffset := metaOffset + uint64(len(metaBytes))
	total := payloadOffset + uint64(len(stored))

	entries := []Descriptor{
		{
			Kind:     EntryMetadata,
			Checksum: adler32.Checksum(metaBytes),
			Offset:   metaOffset,
			Size:     uint64(len(metaBytes)),
			OrigSize: uint64(len(metaBytes)),
		},
		{
			Kind:       EntryPayload,
			Offset:     payloadOffset,
			Size:       uint64(len(stored)),
			OrigSize:   uint64(len(raw)),
			Operations: w.operations,
		},
	}
	var entryTable []byte
	for i := range entries {
		entryTable = append(entryTable, entries[i].Pack()...)
	}

	header := Header{
		FramingVersion:   FramingVersion,
		EntryCount:       uint32(len(entries)),
		EntryTableOffset: tableOffset,
		EntryTableSize:   uint64(len(entryTable)),
		PackageSize:      total,
		EntryChecksum:    adler32.Checksum(entryTable),
	}

	err = atomicfile.Write(path, 0o644, w.logger, func(out io.Writer) error {
		for _, part := range [][]byte{header.Seal(), entryTable, metaBytes, stored} {
			if _, err := out.Write(part); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return themeerrors.Operational("write", path, err)
	}

	w.logger.Info("📦 Wrote theme package",
		"path", path,
		"format_version", meta.FormatVersion,
		"min_compatible_version", meta.MinCompatibleVersion,
		"assets", meta.AssetCount,
		"operations", meta.Operations,
		"size", total,
	)
	return nil
}
