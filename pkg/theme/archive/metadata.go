package archive

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/gzip"

	"github.com/provide-io/themepack/go/themepack/pkg/theme/compat"
	"github.com/provide-io/themepack/go/themepack/pkg/theme/operations"
)

// maxMetadataSize bounds the decompressed metadata JSON.
const maxMetadataSize = 1 << 20

// Metadata describes a package. Write fills FormatVersion, Integrity,
// AssetCount and Operations; the caller supplies the rest.
type Metadata struct {
	Format               string         `json:"format"`
	FormatVersion        compat.Version `json:"format_version"`
	MinCompatibleVersion compat.Version `json:"min_compatible_version"`
	Integrity            string         `json:"integrity"`
	Operations           string         `json:"operations"`
	AssetCount           int            `json:"asset_count"`
	Theme                ThemeInfo      `json:"theme"`
	Build                *BuildInfo     `json:"build,omitempty"`
}

type ThemeInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type BuildInfo struct {
	Tool        string       `json:"tool"`
	ToolVersion string       `json:"tool_version"`
	Timestamp   string       `json:"timestamp"`
	Platform    PlatformInfo `json:"platform"`
}

type PlatformInfo struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
}

func encodeMetadata(m *Metadata) ([]byte, error) {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		gw.Close()
		return nil, fmt.Errorf("failed to compress metadata: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress metadata: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeMetadata(stored []byte) (*Metadata, error) {
	gr, err := gzip.NewReader(bytes.NewReader(stored))
	if err != nil {
		return nil, fmt.Errorf("metadata is not gzip: %w", err)
	}
	defer gr.Close()

	raw, err := operations.ReadLimited(gr, maxMetadataSize)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if m.Format != FormatName {
		return nil, fmt.Errorf("metadata format %q, expected %q", m.Format, FormatName)
	}
	if m.Integrity == "" {
		return nil, fmt.Errorf("metadata has no integrity token")
	}
	return &m, nil
}
