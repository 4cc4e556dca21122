// Package blobstore abstracts where graph shard files live.
//
// The walk engine and the ranking stage read shards through the BlobStore
// interface and do not care whether the bytes come from the local disk, an
// in-memory map, or an S3-compatible object store. Backends:
//
//   - LocalStore: memory-mapped local files (the common case)
//   - MemoryStore: in-process, for tests
//   - minio.Store: MinIO / any S3-compatible endpoint
//   - s3.Store: AWS S3 via the official SDK
package blobstore
