/*
Package types provides the interfaces and data structures shared by the
photovariant packages.

	┌─────────────────────────────────────────────┐
	│        cmd/photovariant, internal/gallery   │
	└─────────────────────────────────────────────┘
	          │             │              │
	┌─────────┴───┐ ┌───────┴──────┐ ┌─────┴─────┐
	│  generator  │ │   resolver   │ │ metadata  │
	└─────────────┘ └──────────────┘ └───────────┘
	          │             │
	          │       ┌─────┴─────┐
	          │       │   cache   │
	          │       └───────────┘
	┌─────────┴─────────────┴─────────────────────┐
	│           Store (s3, minio, memory)         │
	└─────────────────────────────────────────────┘

Store is the only contract between the pipeline and object storage. It has
four primitives: list-with-prefix filtered by extension, an existence
probe, put with content type and cache control, and get.
*/
package types
