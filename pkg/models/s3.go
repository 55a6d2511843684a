package models

import (
	"fmt"
	"strings"
)

// S3Object locates one remote log object.
type S3Object struct {
	Region string `json:"region"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// NewS3Object is a constructor of S3Object
func NewS3Object(region, bucket, key string) S3Object {
	return S3Object{
		Region: region,
		Bucket: bucket,
		Key:    key,
	}
}

// Path returns s3:// style URI of the object
func (x S3Object) Path() string {
	return fmt.Sprintf("s3://%s/%s", x.Bucket, x.Key)
}

// IsS3URI checks if uri has the s3:// scheme
func IsS3URI(uri string) bool {
	return strings.HasPrefix(uri, "s3://")
}

// ParseS3URI parses s3://bucket/key style URI. Region is not part of
// the URI and must be supplied by the caller.
func ParseS3URI(uri, region string) (S3Object, error) {
	if !IsS3URI(uri) {
		return S3Object{}, fmt.Errorf("Not a S3 URI: %s", uri)
	}

	path := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return S3Object{}, fmt.Errorf("Invalid S3 URI, expected s3://bucket/key: %s", uri)
	}

	return NewS3Object(region, parts[0], parts[1]), nil
}
