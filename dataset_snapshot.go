package rxgo

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/hupe1980/rxgo/blobstore"
	"github.com/hupe1980/rxgo/internal/hash"
	"github.com/hupe1980/rxgo/resource"
	"github.com/hupe1980/rxgo/snapshot"
)

// OpenDataset allocates a dataset and fills it from the snapshot blob name
// in store instead of deriving it from a key.
//
// The blob must hold exactly ItemCount*ItemSize bytes laid out as
// NewDataset produces them. Its size is checked before anything is copied;
// a mismatch fails with *SnapshotSizeError. Contents are not verified
// unless WithVerify(true) is given, in which case the manifest sidecar
// written by Save must exist and match.
func OpenDataset(ctx context.Context, flags Flags, store blobstore.BlobStore, name string, opts ...Option) (*Dataset, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := checkFlags(flags); err != nil {
		return nil, err
	}

	start := time.Now()
	ds, err := openDataset(ctx, flags, store, name, o)
	var n int64
	if ds != nil {
		n = ds.Size()
	}

	o.metrics.RecordSnapshotLoad(n, time.Since(start), err)
	o.logger.WithEngine(o.engine.Name()).LogSnapshot(ctx, "load", name, n, err)
	return ds, err
}

// OpenDatasetFile is OpenDataset for a snapshot file on the local file
// system. The file is memory-mapped and copied into the dataset region. If
// the file is truncated while it is being copied, the fault on the missing
// pages is recovered and reported as *SnapshotSizeError.
func OpenDatasetFile(ctx context.Context, flags Flags, path string, opts ...Option) (*Dataset, error) {
	return OpenDataset(ctx, flags, blobstore.NewLocalStore(filepath.Dir(path)), filepath.Base(path), opts...)
}

func openDataset(ctx context.Context, flags Flags, store blobstore.BlobStore, name string, o options) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := o.engine.DatasetItemCount()
	itemSize := o.engine.DatasetItemSize()
	want := int64(items) * int64(itemSize)

	var manifest *snapshot.Manifest
	if o.verify {
		m, err := snapshot.Read(ctx, store, name)
		if err != nil {
			return nil, err
		}
		if err := m.Validate(o.engine.Name(), items, itemSize); err != nil {
			return nil, err
		}
		manifest = m
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %q: %w", name, err)
	}
	defer func() { _ = blob.Close() }()

	if got := blob.Size(); got != want {
		return nil, &SnapshotSizeError{Expected: want, Actual: got}
	}

	ds, err := allocDataset(flags, o)
	if err != nil {
		return nil, err
	}

	crc, err := copySnapshot(ctx, blob, ds.memory(), o)
	if err == nil && manifest != nil {
		err = manifest.VerifyChecksum(crc)
	}
	if err != nil {
		ds.free()
		return nil, err
	}

	if manifest != nil {
		if fp, err := hex.DecodeString(manifest.KeyFingerprint); err == nil && len(fp) == len(ds.keyID) {
			copy(ds.keyID[:], fp)
			ds.hasKeyID = true
		}
	}
	return ds, nil
}

// copySnapshot fills dst from blob in chunks, charging each chunk to the
// IO limiter, and returns the CRC32C of the copied bytes.
func copySnapshot(ctx context.Context, blob blobstore.Blob, dst []byte, o options) (uint32, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if m, ok := blob.(blobstore.Mappable); ok {
		if src, err := m.Bytes(); err == nil && len(src) == len(dst) {
			var crc uint32
			for off := 0; off < len(dst); off += o.chunkSize {
				end := min(off+o.chunkSize, len(dst))
				if err := o.resources.AcquireIO(ctx, end-off); err != nil {
					return 0, err
				}
				if err := copyMapped(dst[off:end], src[off:end]); err != nil {
					return 0, &SnapshotSizeError{Expected: int64(len(dst)), Actual: int64(off)}
				}
				crc = hash.UpdateCRC32C(crc, dst[off:end])
			}
			return crc, nil
		}
	}

	rc, err := blob.ReadRange(ctx, 0, int64(len(dst)))
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}
	defer func() { _ = rc.Close() }()

	r := resource.NewRateLimitedReader(ctx, rc, o.resources)
	var crc uint32
	for off := 0; off < len(dst); off += o.chunkSize {
		end := min(off+o.chunkSize, len(dst))
		n, err := io.ReadFull(r, dst[off:end])
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			// The blob shrank after its size was checked.
			return 0, &SnapshotSizeError{Expected: int64(len(dst)), Actual: int64(off + n)}
		}
		if err != nil {
			return 0, fmt.Errorf("read snapshot: %w", err)
		}
		crc = hash.UpdateCRC32C(crc, dst[off:end])
	}
	return crc, nil
}

// copyMapped copies a memory-mapped src into dst. A fault on src, raised
// when the backing file shrank after it was mapped, is returned as an error.
func copyMapped(dst, src []byte) (err error) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(interface{ Addr() uintptr }); !ok {
				panic(r)
			}
			err = fmt.Errorf("mapped snapshot: %v", r)
		}
	}()
	copy(dst, src)
	return nil
}

// Save writes the dataset memory to store as the blob name, followed by a
// manifest sidecar (see package snapshot). The blob has no header and can
// be loaded with OpenDataset.
//
// A failed or cancelled Save aborts the write where the store supports it,
// leaving no partial blob behind.
func (d *Dataset) Save(ctx context.Context, store blobstore.BlobStore, name string) error {
	start := time.Now()
	err := d.life.guard(func() error {
		return d.save(ctx, store, name)
	})

	var n int64
	if err == nil {
		n = d.Size()
	}
	d.metrics.RecordSnapshotSave(n, time.Since(start), err)
	d.logger.WithEngine(d.eng.Name()).LogSnapshot(ctx, "save", name, n, err)
	return err
}

// SaveFile is Save to a file on the local file system. The file is
// replaced atomically.
func (d *Dataset) SaveFile(ctx context.Context, path string) error {
	return d.Save(ctx, blobstore.NewLocalStore(filepath.Dir(path)), filepath.Base(path))
}

func (d *Dataset) save(ctx context.Context, store blobstore.BlobStore, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w, err := store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("create snapshot %q: %w", name, err)
	}

	crc, err := d.writeChunks(ctx, resource.NewRateLimitedWriter(ctx, w, d.resources))
	if err != nil {
		abortWrite(w)
		return fmt.Errorf("write snapshot %q: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close snapshot %q: %w", name, err)
	}

	m := &snapshot.Manifest{
		Engine:    d.eng.Name(),
		ItemCount: d.items,
		ItemSize:  d.itemSize,
		Size:      d.Size(),
		CRC32C:    crc,
	}
	if d.hasKeyID {
		m.KeyFingerprint = hex.EncodeToString(d.keyID[:])
	}
	return snapshot.Write(ctx, store, name, m)
}

func (d *Dataset) writeChunks(ctx context.Context, w io.Writer) (uint32, error) {
	mem := d.memory()
	var crc uint32
	for off := 0; off < len(mem); off += d.chunkSize {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		end := min(off+d.chunkSize, len(mem))
		if _, err := w.Write(mem[off:end]); err != nil {
			return 0, err
		}
		crc = hash.UpdateCRC32C(crc, mem[off:end])
	}
	return crc, nil
}

func abortWrite(w blobstore.WritableBlob) {
	if a, ok := w.(blobstore.Aborter); ok {
		_ = a.Abort()
		return
	}
	_ = w.Close()
}
