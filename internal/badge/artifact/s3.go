package artifact

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the subset of the S3 client used here.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads artifacts to a single bucket.
type S3Store struct {
	client s3API
	bucket string
	host   string
	acl    types.ObjectCannedACL
}

// S3Option configures an S3Store.
type S3Option func(*S3Store)

// WithPublicHost overrides the host used in returned URLs (for a CDN or
// custom domain). Default is "<bucket>.s3.amazonaws.com".
func WithPublicHost(host string) S3Option {
	return func(s *S3Store) {
		if host != "" {
			s.host = host
		}
	}
}

// WithACL sets the canned ACL applied to uploads. Default is public-read;
// pass "" for buckets that enforce owner-only object ownership.
func WithACL(acl types.ObjectCannedACL) S3Option {
	return func(s *S3Store) {
		s.acl = acl
	}
}

// NewS3 constructs an S3-backed store.
func NewS3(client s3API, bucket string, opts ...S3Option) *S3Store {
	s := &S3Store{
		client: client,
		bucket: bucket,
		host:   bucket + ".s3.amazonaws.com",
		acl:    types.ObjectCannedACLPublicRead,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put uploads body under "<key>.<ext>" and returns its public URL.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	objectKey, err := ObjectKey(key, contentType)
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if s.acl != "" {
		input.ACL = s.acl
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, objectKey, err)
	}
	return PublicURL(s.host, objectKey), nil
}
