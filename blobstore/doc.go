// Package blobstore abstracts where knowledge files and chunk directories live.
//
// A BlobStore addresses blobs by slash-separated names relative to a root.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, reads are memory mapped
//   - MemoryStore: in-process map, used by tests and ephemeral builds
//   - s3.Store: Amazon S3, multipart uploads through the transfer manager
//   - minio.Store: MinIO and other S3-compatible servers
//
// Open reports a missing blob with an error satisfying
// errors.Is(err, ErrNotFound).
package blobstore
