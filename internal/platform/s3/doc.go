// Package s3 stores reconciliation outcome records in an S3 bucket.
//
// The client creates the archive bucket at startup if needed and uploads one
// object per reconciliation. It works against AWS S3 and S3-compatible
// endpoints.
package s3
