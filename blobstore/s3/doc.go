// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil { ... }
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "rag/")
//
// Put goes through the S3 transfer manager, so large knowledge files are
// uploaded in parallel parts. List follows continuation tokens.
package s3
