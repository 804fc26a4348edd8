// Package hash provides the CRC32-Castagnoli checksums recorded in snapshot
// manifests and sent to S3 with uploads.
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For streaming checksums over a dataset copied chunk by chunk:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash
