// Package minio stores reports in a MinIO bucket, or any other
// S3-compatible service reachable through minio-go (Ceph, Garage,
// SeaweedFS), without pulling in the AWS SDK.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4(accessKey, secretKey, ""),
//	})
//	if err != nil {
//	    return err
//	}
//	reports := results.NewStore(minioblob.NewStore(client, "experiments", "quantcs/"))
//
// Objects are written with a content type derived from the report
// encoding: application/json, application/zstd or
// application/octet-stream. Deleting a missing object is not an error.
package minio
