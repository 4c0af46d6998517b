package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

// S3Config describes a bucket holding key records.
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // S3-compatible services, forces path-style addressing

	AccessKey string
	SecretKey string
}

// S3Backend stores key records as objects in an S3 bucket.
// Without static credentials the default AWS credential chain applies.
type S3Backend struct {
	client *s3.S3
	cfg    S3Config
	log    *slog.Logger
}

// NewS3Backend creates an S3 backend for cfg.
func NewS3Backend(cfg S3Config, log *slog.Logger) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", interfaces.ErrInvalidLocationURI)
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.AccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}

	return &S3Backend{client: s3.New(sess), cfg: cfg, log: log}, nil
}

// Fetch reads the object stored under key.
func (b *S3Backend) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if isS3NotFound(err) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		b.log.Error("S3 get failed", "bucket", b.cfg.Bucket, "key", key, "err", err)
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// Store writes data under key, replacing the previous object.
func (b *S3Backend) Store(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.cfg.Bucket),
		Key:         aws.String(b.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}

	b.log.Debug("Stored key record in S3", "bucket", b.cfg.Bucket, "key", key, "size", len(data))
	return nil
}

// Available reports whether the bucket can be reached.
func (b *S3Backend) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.cfg.Bucket)})
	if err != nil {
		b.log.Warn("S3 bucket unavailable", "bucket", b.cfg.Bucket, "err", err)
		return false
	}
	return true
}

func (b *S3Backend) Name() string {
	return "s3-" + b.cfg.Bucket
}

// LocationURI returns the backend URI with the secret key redacted.
func (b *S3Backend) LocationURI() string {
	u := url.URL{Scheme: "s3", Host: b.cfg.Bucket, Path: "/" + b.cfg.Prefix}
	if b.cfg.AccessKey != "" {
		u.User = url.UserPassword(b.cfg.AccessKey, "***")
	}
	q := url.Values{}
	if b.cfg.Region != "" {
		q.Set("region", b.cfg.Region)
	}
	if b.cfg.Endpoint != "" {
		q.Set("endpoint", b.cfg.Endpoint)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (b *S3Backend) objectKey(key string) string {
	return path.Join(b.cfg.Prefix, key)
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
}
