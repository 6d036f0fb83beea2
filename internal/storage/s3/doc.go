/*
Package s3 stores originals and variants in AWS S3 or an S3-compatible
endpoint through aws-sdk-go-v2.

Backend implements the four primitives the pipeline needs:

	List    paginated ListObjectsV2, filtered by extension, skipping "dir/" keys
	Exists  HeadObject; a 404 is (false, nil), anything else is an error
	Put     PutObject with Content-Type and Cache-Control
	Get     GetObject, full body

Errors are translated into pkg/errors codes (OBJECT_NOT_FOUND,
BUCKET_NOT_FOUND, ACCESS_DENIED, STORAGE_READ, STORAGE_WRITE,
STORAGE_LIST). Every call is bounded by Config.RequestTimeout and counted
in BackendMetrics; SetRecorder forwards the same measurements to the
Prometheus collector.

Static credentials are only needed for LocalStack or non-AWS endpoints;
otherwise the default AWS credential chain applies.

	backend, err := s3.NewBackend(ctx, "fuji-images", &s3.Config{
		Region:         "us-east-2",
		MaxRetries:     3,
		RequestTimeout: 30 * time.Second,
	})

The LocalStack suite runs with -tags integration and needs Docker.
*/
package s3
