package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"relaybot/internal/engine"
)

// S3Store is an S3-backed implementation of the ObjectStore interface.
// Uploads go through the transfer manager so large artifacts stream in
// parts; signed URLs come from the presign client.
type S3Store struct {
	client    *s3.Client
	uploader  *manager.Uploader
	presigner *s3.PresignClient
	bucket    string
	prefix    string
}

var _ engine.ObjectStore = (*S3Store)(nil)

// NewS3Store creates an S3 object store for the given bucket. prefix is
// prepended to every object path, allowing one bucket to serve several
// deployments.
func NewS3Store(ctx context.Context, bucket, prefix, region string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:    client,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		prefix:    prefix,
	}, nil
}

func (s *S3Store) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

func (s *S3Store) Upload(ctx context.Context, path string, r io.Reader, _ int64) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
		Body:   r,
	})
	if err != nil {
		return s3Err("uploading object", err)
	}
	return nil
}

func (s *S3Store) Download(ctx context.Context, path string, w io.Writer) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return s3Err("downloading object", err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("reading object body: %w", err))
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]engine.ObjectInfo, error) {
	var out []engine.ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s3Err("listing objects", err)
		}
		for _, obj := range page.Contents {
			name := aws.ToString(obj.Key)
			if s.prefix != "" && len(name) > len(s.prefix)+1 {
				name = name[len(s.prefix)+1:]
			}
			out = append(out, engine.ObjectInfo{
				Name:      name,
				Size:      aws.ToInt64(obj.Size),
				CreatedAt: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	// S3 DeleteObject succeeds for missing keys, matching the interface
	// contract.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return s3Err("deleting object", err)
	}
	return nil
}

func (s *S3Store) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", s3Err("presigning object", err)
	}
	return req.URL, nil
}

func (s *S3Store) ValidateSetup(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return s3Err("validating bucket access", err)
	}
	return nil
}

// s3Err maps AWS SDK errors into the object store taxonomy.
func s3Err(msg string, err error) error {
	wrapped := fmt.Errorf("%s: %w", msg, err)

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return engine.NewObjectStoreError(engine.ObjectNotFound, wrapped)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return engine.NewObjectStoreError(engine.ObjectNotFound, wrapped)
		case "AccessDenied", "Forbidden":
			return engine.NewObjectStoreError(engine.ObjectAccessDenied, wrapped)
		}
	}
	return engine.NewObjectStoreError(engine.ObjectUnknown, wrapped)
}
