package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rxgo/blobstore"
)

func TestWriteRead(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	in := &Manifest{
		Engine:         "reference",
		ItemCount:      1024,
		ItemSize:       64,
		Size:           1024 * 64,
		KeyFingerprint: "ab",
		CRC32C:         0xdeadbeef,
	}
	require.NoError(t, Write(ctx, store, "epoch.dat", in))
	assert.Equal(t, CurrentVersion, in.Version)
	assert.False(t, in.CreatedAt.IsZero())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"epoch.dat.manifest.json"}, names)

	out, err := Read(ctx, store, "epoch.dat")
	require.NoError(t, err)
	assert.Equal(t, in.Engine, out.Engine)
	assert.Equal(t, in.ItemCount, out.ItemCount)
	assert.Equal(t, in.CRC32C, out.CRC32C)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))

	require.NoError(t, out.Validate("reference", 1024, 64))
	require.NoError(t, out.VerifyChecksum(0xdeadbeef))
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(context.Background(), blobstore.NewMemoryStore(), "nope")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestRead_UnsupportedVersion(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, ManifestName("x"), []byte(`{"version": 7}`)))

	_, err := Read(ctx, store, "x")
	assert.ErrorContains(t, err, "unsupported manifest version")
}

func TestValidate(t *testing.T) {
	m := &Manifest{Engine: "reference", ItemCount: 10, ItemSize: 64, Size: 640}

	tests := []struct {
		name     string
		engine   string
		items    uint64
		itemSize int
	}{
		{"engine", "randomx", 10, 64},
		{"items", "reference", 11, 64},
		{"item size", "reference", 10, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, m.Validate(tt.engine, tt.items, tt.itemSize), ErrManifestMismatch)
		})
	}

	bad := *m
	bad.Size = 1
	assert.ErrorIs(t, bad.Validate("reference", 10, 64), ErrManifestMismatch)
}

func TestVerifyChecksum(t *testing.T) {
	m := &Manifest{CRC32C: 1}
	assert.ErrorIs(t, m.VerifyChecksum(2), ErrChecksumMismatch)
}
