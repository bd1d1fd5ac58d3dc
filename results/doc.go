// Package results persists run reports.
//
// A Report captures one RBP reconstruction or SE prediction: its
// configuration, MSE trace, terminal state and diagnostics. A Store writes
// reports to any blobstore.BlobStore as
//
//	<prefix>/<id>.json        uncompressed
//	<prefix>/<id>.json.zst    zstd
//	<prefix>/<id>.json.lz4    lz4 block with a size header
//
// Load detects the compression from the name, so stores written with
// different settings can be read back together.
package results
