// Package blobstore provides the storage abstraction for dataset snapshots.
//
// A snapshot is a flat blob of exactly item_count*item_size bytes, laid out
// like dataset memory, optionally accompanied by a small manifest blob
// (see package snapshot). BlobStore is the interface for reading and writing
// those blobs. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, mmap reads and atomic rename-on-close writes
//   - MemoryStore: in-process map, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)      // Open for reading
//	    Create(ctx, name) (WritableBlob, error)  // Create for writing
//	    Put(ctx, name, data) error         // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Blobs that can expose their contents without copying (memory mappings)
// should also implement Mappable; dataset loads then copy straight from the
// mapping instead of streaming through ReadRange.
package blobstore
