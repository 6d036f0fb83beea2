/*
Package config holds photovariant configuration with multi-source support.

Sources are applied in increasing precedence:

	defaults (NewDefault) -> YAML file (LoadFromFile) -> environment (LoadFromEnv) -> CLI flags

# Sections

	global:      log level, log file, metrics and HTTP ports
	storage:     backend (s3 or minio), bucket, region, endpoint, retries, timeout
	delivery:    optional CDN domain for public URLs
	variants:    widths, formats, per-format quality, workers, upload attempts, cache control
	cache:       existence cache capacity and shard count
	catalog:     listing prefix and extension filters
	metadata:    metadata document path or inline JSON
	monitoring:  metrics toggle and log format

# Environment

The variables already used by gallery deployments are honored as-is:
S3_BUCKET, AWS_REGION, CLOUDFRONT_DOMAIN and METADATA_PATH. Everything
else uses the PHOTOVARIANT_ prefix, e.g. PHOTOVARIANT_WIDTHS=1600,960.

Widths are sorted descending after every load, and Matrix converts the
variants section into a naming.Matrix whose format order is fixed
(avif, webp, jpeg) regardless of how the list was written.
*/
package config
