// Package snapshot describes dataset snapshots with a manifest sidecar.
//
// The snapshot blob itself is the raw dataset layout with no header. The
// manifest is a separate JSON blob named <snapshot>.manifest.json that
// records where the bytes came from and a CRC32C of the whole blob, so a
// loader can reject a snapshot built by another engine or damaged in
// transit.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/rxgo/blobstore"
)

// CurrentVersion is the manifest format version written by Write.
const CurrentVersion = 1

const manifestSuffix = ".manifest.json"

var (
	// ErrChecksumMismatch is returned when snapshot bytes do not match the
	// checksum recorded in the manifest.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

	// ErrManifestMismatch is returned when a manifest describes a different
	// engine or dataset geometry than the loader expects.
	ErrManifestMismatch = errors.New("snapshot manifest mismatch")
)

// Manifest describes one snapshot blob.
type Manifest struct {
	Version        int       `json:"version"`
	Engine         string    `json:"engine"`
	ItemCount      uint64    `json:"item_count"`
	ItemSize       int       `json:"item_size"`
	Size           int64     `json:"size"`
	KeyFingerprint string    `json:"key_fingerprint,omitempty"` // hex BLAKE3-256 of the key
	CRC32C         uint32    `json:"crc32c"`
	CreatedAt      time.Time `json:"created_at"`
}

// ManifestName returns the name of the manifest blob for a snapshot blob.
func ManifestName(blob string) string {
	return blob + manifestSuffix
}

// Write stores m next to the snapshot blob.
func Write(ctx context.Context, store blobstore.BlobStore, blob string, m *Manifest) error {
	m.Version = CurrentVersion
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return store.Put(ctx, ManifestName(blob), data)
}

// Read loads the manifest of a snapshot blob. A missing manifest is
// reported with an error matching blobstore.ErrNotFound.
func Read(ctx context.Context, store blobstore.BlobStore, blob string) (*Manifest, error) {
	b, err := store.Open(ctx, ManifestName(blob))
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = b.Close() }()

	data, err := blobstore.ReadAll(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported manifest version: %d (expected %d)", m.Version, CurrentVersion)
	}
	return &m, nil
}

// Validate checks that m describes a snapshot of the given engine and
// geometry.
func (m *Manifest) Validate(engine string, itemCount uint64, itemSize int) error {
	switch {
	case m.Engine != engine:
		return fmt.Errorf("%w: engine %q, want %q", ErrManifestMismatch, m.Engine, engine)
	case m.ItemCount != itemCount || m.ItemSize != itemSize:
		return fmt.Errorf("%w: %d items of %d bytes, want %d of %d",
			ErrManifestMismatch, m.ItemCount, m.ItemSize, itemCount, itemSize)
	case m.Size != int64(itemCount)*int64(itemSize):
		return fmt.Errorf("%w: size %d does not match geometry", ErrManifestMismatch, m.Size)
	}
	return nil
}

// VerifyChecksum compares sum with the recorded CRC32C.
func (m *Manifest) VerifyChecksum(sum uint32) error {
	if sum != m.CRC32C {
		return fmt.Errorf("%w: crc32c %08x, manifest says %08x", ErrChecksumMismatch, sum, m.CRC32C)
	}
	return nil
}
