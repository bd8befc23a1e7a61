// Package archive reads and writes theme packages: a single file holding an
// asset table plus metadata (format version, minimum compatible version and
// an integrity token over the payload).
//
// Reading happens in three steps. Open parses the container framing only.
// Validate checks payload integrity and decides compatibility. Materialize
// builds the asset table and may only be called after Validate reported a
// loadable outcome.
package archive

import (
	"errors"
	"fmt"
	"hash/adler32"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/themepack/go/themepack/pkg/logging"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/compat"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/operations"
	_ "github.com/provide-io/themepack/go/themepack/pkg/theme/operations/compress"
)

// ReadOptions configure Open.
type ReadOptions struct {
	Limits asset.Limits
	Logger hclog.Logger
}

// RawPackage is a structurally valid package whose payload has not been
// checked yet.
type RawPackage struct {
	path     string
	header   Header
	entries  []Descriptor
	metadata *Metadata
	payload  Descriptor
	stored   []byte // payload bytes exactly as stored
	limits   asset.Limits
	logger   hclog.Logger

	validated bool
	outcome   compat.Outcome
	records   []record
}

// Open reads the container at path. Data problems are ArchiveErrors of type
// InvalidArchive, environment problems of type OperationalError; size fields
// over the limits fail with ErrResourceExhausted.
func Open(path string) (*RawPackage, error) {
	return OpenWithOptions(path, ReadOptions{})
}

// OpenWithOptions is Open with explicit limits and logger.
func OpenWithOptions(path string, opts ReadOptions) (*RawPackage, error) {
	p := &RawPackage{
		path:   path,
		limits: opts.Limits.OrDefault(),
		logger: logging.OrNull(opts.Logger),
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, themeerrors.Operational("open", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, themeerrors.Operational("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, themeerrors.Operational("open", path, fmt.Errorf("not a regular file"))
	}
	fileSize := uint64(info.Size())

	if fileSize < HeaderSize {
		return nil, themeerrors.Invalid("read header", path, fmt.Errorf("file is %d bytes", fileSize))
	}
	raw, err := p.readAt(f, 0, HeaderSize, "read header")
	if err != nil {
		return nil, err
	}
	if err := p.header.Unpack(raw); err != nil {
		return nil, themeerrors.Invalid("read header", path, err)
	}
	h := &p.header

	if h.FramingVersion != FramingVersion {
		return nil, themeerrors.Invalid("read header", path,
			fmt.Errorf("framing version %d, expected %d", h.FramingVersion, FramingVersion))
	}
	if h.PackageSize != fileSize {
		return nil, themeerrors.Invalid("read header", path,
			fmt.Errorf("header says %d bytes, file has %d", h.PackageSize, fileSize))
	}
	if h.EntryCount > MaxEntries {
		return nil, fmt.Errorf("%w: %d entries (limit %d)", themeerrors.ErrResourceExhausted, h.EntryCount, MaxEntries)
	}
	if h.EntryTableSize != uint64(h.EntryCount)*DescriptorSize || !within(h.EntryTableOffset, h.EntryTableSize, fileSize) {
		return nil, themeerrors.Invalid("read entry table", path,
			fmt.Errorf("%d entries at %d+%d do not fit", h.EntryCount, h.EntryTableOffset, h.EntryTableSize))
	}

	table, err := p.readAt(f, h.EntryTableOffset, h.EntryTableSize, "read entry table")
	if err != nil {
		return nil, err
	}
	if got := adler32.Checksum(table); got != h.EntryChecksum {
		return nil, themeerrors.Invalid("read entry table", path,
			fmt.Errorf("checksum 0x%08x, expected 0x%08x", got, h.EntryChecksum))
	}

	metaIdx, payloadIdx := -1, -1
	for i := 0; i < int(h.EntryCount); i++ {
		var d Descriptor
		if err := d.Unpack(table[i*DescriptorSize : (i+1)*DescriptorSize]); err != nil {
			return nil, themeerrors.Invalid("read entry table", path, err)
		}
		if !within(d.Offset, d.Size, fileSize) {
			return nil, themeerrors.Invalid("read entry table", path,
				fmt.Errorf("entry %d at %d+%d lies outside the file", i, d.Offset, d.Size))
		}
		p.entries = append(p.entries, d)

		switch d.Kind {
		case EntryMetadata:
			if metaIdx >= 0 {
				return nil, themeerrors.Invalid("read entry table", path, fmt.Errorf("duplicate metadata entry"))
			}
			metaIdx = i
		case EntryPayload:
			if payloadIdx >= 0 {
				return nil, themeerrors.Invalid("read entry table", path, fmt.Errorf("duplicate payload entry"))
			}
			payloadIdx = i
		default:
			p.logger.Debug("Skipping unknown entry", "kind", d.Kind, "size", d.Size)
		}
	}
	if metaIdx < 0 || payloadIdx < 0 {
		return nil, themeerrors.Invalid("read entry table", path, fmt.Errorf("missing metadata or payload entry"))
	}
	metaDesc, payloadDesc := p.entries[metaIdx], p.entries[payloadIdx]

	if metaDesc.Size > maxMetadataSize {
		return nil, fmt.Errorf("%w: metadata of %d bytes", themeerrors.ErrResourceExhausted, metaDesc.Size)
	}
	stored, err := p.readAt(f, metaDesc.Offset, metaDesc.Size, "read metadata")
	if err != nil {
		return nil, err
	}
	if got := adler32.Checksum(stored); got != metaDesc.Checksum {
		return nil, themeerrors.Invalid("read metadata", path,
			fmt.Errorf("checksum 0x%08x, expected 0x%08x", got, metaDesc.Checksum))
	}
	if p.metadata, err = decodeMetadata(stored); err != nil {
		if errors.Is(err, themeerrors.ErrResourceExhausted) {
			return nil, err
		}
		return nil, themeerrors.Invalid("read metadata", path, err)
	}

	if payloadDesc.Size > uint64(p.limits.MaxBytes) || payloadDesc.OrigSize > uint64(p.limits.MaxBytes) {
		return nil, fmt.Errorf("%w: payload of %d bytes (%d stored, limit %d)",
			themeerrors.ErrResourceExhausted, payloadDesc.OrigSize, payloadDesc.Size, p.limits.MaxBytes)
	}
	p.payload = payloadDesc
	if p.stored, err = p.readAt(f, payloadDesc.Offset, payloadDesc.Size, "read payload"); err != nil {
		return nil, err
	}

	p.logger.Debug("📦 Opened theme package",
		"path", path,
		"format_version", p.metadata.FormatVersion,
		"min_compatible_version", p.metadata.MinCompatibleVersion,
		"entries", h.EntryCount,
		"payload_size", payloadDesc.Size,
	)
	return p, nil
}

// readAt reads exactly size bytes at offset. The range was checked against
// the file size, so running out of data means the file shrank under us.
func (p *RawPackage) readAt(f *os.File, offset, size uint64, op string) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, int64(offset)); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, themeerrors.Invalid(op, p.path, io.ErrUnexpectedEOF)
		}
		return nil, themeerrors.Operational(op, p.path, err)
	}
	return buf, nil
}

// Path returns the file the package was read from.
func (p *RawPackage) Path() string { return p.path }

// Metadata returns the package metadata. It is not verified against the
// payload until Validate runs.
func (p *RawPackage) Metadata() Metadata { return *p.metadata }

// Entries returns the entry table as read.
func (p *RawPackage) Entries() []Descriptor {
	return append([]Descriptor(nil), p.entries...)
}

// Validate checks the integrity token over the stored payload, then decides
// compatibility with the running format version. For CompatibleWithLoss the
// outcome lists every id that Materialize will leave out: ids absent from
// known (nil means every id is known) and records of kinds this codec cannot
// read.
//
// A checksum mismatch is ErrCorruptPayload regardless of version. An
// Incompatible outcome is returned with a nil error.
func (p *RawPackage) Validate(running compat.Version, known asset.IDSet) (compat.Outcome, error) {
	p.validated, p.records = false, nil

	ok, err := VerifyChecksum(p.stored, p.metadata.Integrity)
	if err != nil {
		return compat.Outcome{}, themeerrors.Invalid("validate", p.path, err)
	}
	if !ok {
		return compat.Outcome{}, fmt.Errorf("%w: %s does not match %s",
			themeerrors.ErrCorruptPayload, p.path, p.metadata.Integrity)
	}

	outcome := compat.Decide(p.metadata.FormatVersion, p.metadata.MinCompatibleVersion, running)
	if !outcome.Loadable() {
		p.logger.Warn("Theme package is incompatible", "path", p.path, "reason", outcome.Reason)
		p.outcome, p.validated = outcome, true
		return outcome, nil
	}

	records, err := p.decode()
	if err != nil {
		return compat.Outcome{}, err
	}

	if outcome.Status == compat.CompatibleWithLoss {
		outcome = outcome.WithDropped(dropped(records, known))
		p.logger.Info("Theme package is newer than this reader",
			"path", p.path,
			"format_version", p.metadata.FormatVersion,
			"running", running,
			"dropped", len(outcome.Dropped),
		)
	} else {
		for _, r := range records {
			if !r.known {
				return compat.Outcome{}, themeerrors.Invalid("validate", p.path,
					fmt.Errorf("record %q has kind %d, unknown in its own format version", r.id, r.kind))
			}
		}
	}

	p.outcome, p.records, p.validated = outcome, records, true
	return outcome, nil
}

// decode reverses the payload operations and parses the records.
func (p *RawPackage) decode() ([]record, error) {
	data, err := operations.ReverseChain(p.stored, p.payload.Operations, int64(p.payload.OrigSize))
	if err != nil {
		if errors.Is(err, themeerrors.ErrResourceExhausted) {
			return nil, err
		}
		return nil, themeerrors.Invalid("decode payload", p.path, err)
	}
	if uint64(len(data)) != p.payload.OrigSize {
		return nil, themeerrors.Invalid("decode payload", p.path,
			fmt.Errorf("payload is %d bytes, descriptor says %d", len(data), p.payload.OrigSize))
	}

	records, err := decodePayload(data, p.limits)
	if err != nil {
		if errors.Is(err, themeerrors.ErrResourceExhausted) {
			return nil, err
		}
		return nil, themeerrors.Invalid("decode payload", p.path, err)
	}
	return records, nil
}

// Materialize builds a fresh asset table from a validated package, leaving
// out exactly the ids the outcome lists as dropped.
//
// Calling Materialize before Validate, or after Validate returned an error or
// an Incompatible outcome, is a programming error and panics.
func (p *RawPackage) Materialize() *asset.Table {
	if !p.validated || !p.outcome.Loadable() {
		panic("archive: Materialize called without a loadable Validate outcome")
	}

	skip := asset.NewIDSet(p.outcome.Dropped...)
	table := asset.NewTable()
	for i := range p.records {
		r := &p.records[i]
		if _, drop := skip[r.id]; drop {
			continue
		}
		a, err := r.toAsset()
		if err != nil {
			// decodePayload already rejected empty ids and zero sizes
			panic(fmt.Sprintf("archive: validated record %q: %v", r.id, err))
		}
		table.Put(a)
	}

	p.logger.Debug("Materialized theme package", "path", p.path, "assets", table.Len())
	return table
}
