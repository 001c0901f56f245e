package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

// S3API is the subset of the S3 client used here
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewS3Client builds a client from the default AWS credential chain
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// IsS3URI reports whether s starts with s3://
func IsS3URI(s string) bool {
	return strings.HasPrefix(s, s3Scheme)
}

// ParseS3URI splits s3://bucket/key into bucket and key
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	rest := strings.TrimPrefix(uri, s3Scheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 uri %q has no bucket", uri)
	}
	return bucket, key, nil
}

// S3Storage reads inputs from and writes reports to one bucket
type S3Storage struct {
	client S3API
}

// NewS3Storage wraps an S3 client
func NewS3Storage(client S3API) *S3Storage {
	return &S3Storage{client: client}
}

// Source opens s3://bucket/key for ranged reads. Only the bytes the
// footer locator asks for are downloaded.
func (s *S3Storage) Source(ctx context.Context, uri string) (Source, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return Source{}, err
	}
	if key == "" {
		return Source{}, fmt.Errorf("s3 uri %q has no key", uri)
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Source{}, fmt.Errorf("heading object %s: %w", uri, err)
	}

	return Source{
		Name:   path.Base(key),
		Size:   aws.ToInt64(head.ContentLength),
		reader: &s3ReaderAt{ctx: ctx, client: s.client, bucket: bucket, key: key},
	}, nil
}

// List returns the s3:// URIs of objects under a prefix whose names have
// one of the given extensions, in key order
func (s *S3Storage) List(ctx context.Context, uri string, extensions []string) ([]string, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	var out []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			ext := strings.ToLower(path.Ext(key))
			for _, e := range extensions {
				if ext == strings.ToLower(e) {
					out = append(out, s3Scheme+bucket+"/"+key)
					break
				}
			}
		}
	}
	return out, nil
}

// Write uploads a report to s3://bucket/key
func (s *S3Storage) Write(ctx context.Context, uri string, body io.ReadSeeker, contentType string) error {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting object: %w", err)
	}
	return nil
}

// s3ReaderAt serves ReadAt with ranged GetObject calls
type s3ReaderAt struct {
	ctx    context.Context
	client S3API
	bucket string
	key    string
}

func (r *s3ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	out, err := r.client.GetObject(r.ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1)),
	})
	if err != nil {
		return 0, fmt.Errorf("getting object range: %w", err)
	}
	defer out.Body.Close()

	n, err := io.ReadFull(out.Body, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return n, io.EOF
	}
	return n, err
}
