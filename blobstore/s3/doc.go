// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "experiments/")
//	reports := results.NewStore(store)
//
// # Features
//
//   - Multipart uploads through the SDK upload manager
//   - CRC32C integrity validation on upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
