package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dukerupert/qrapi/internal/metrics"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// S3 stores images as objects under a single key prefix.
type S3 struct {
	client s3Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3 builds an S3 store with static credentials and path-style
// addressing so MinIO and similar services work unchanged.
func NewS3(cfg S3Config, logger *slog.Logger) *S3 {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return newS3WithClient(s3.New(opts), cfg.Bucket, cfg.Prefix, logger)
}

func newS3WithClient(client s3Client, bucket, prefix string, logger *slog.Logger) *S3 {
	return &S3{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

func (s *S3) Backend() string { return "s3" }

func (s *S3) key(name string) (string, error) {
	base, err := BaseName(name)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return base, nil
	}
	return s.prefix + "/" + base, nil
}

func (s *S3) Put(ctx context.Context, name string, data []byte, contentType string) (err error) {
	defer func() {
		metrics.StorageOperationsTotal.WithLabelValues(s.Backend(), "put", metrics.Outcome(err)).Inc()
	}()

	key, err := s.key(name)
	if err != nil {
		return err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return ErrExists
	}
	if !isNotFound(err) {
		return fmt.Errorf("head object: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	s.logger.Debug("image uploaded", "key", key, "bytes", len(data))
	return nil
}

func (s *S3) Open(ctx context.Context, name string) (obj *Object, err error) {
	defer func() {
		status := metrics.Outcome(err)
		if errors.Is(err, ErrNotFound) {
			status = "not_found"
		}
		metrics.StorageOperationsTotal.WithLabelValues(s.Backend(), "open", status).Inc()
	}()

	key, err := s.key(name)
	if err != nil {
		return nil, ErrNotFound
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object: %w", err)
	}

	obj = &Object{
		Body:        out.Body,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}
	if obj.ContentType == "" {
		obj.ContentType = "application/octet-stream"
	}
	return obj, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}
