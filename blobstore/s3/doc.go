// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("epochs/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	ds, err := rxgo.OpenDataset(ctx, flags, store, "epoch-42.dat")
//
// # Features
//
//   - Range reads for streaming snapshot loads
//   - Multipart uploads with CRC32C checksums for large snapshots
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
