// Package storage uploads chat images to object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
)

// PutObjectAPI is the slice of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures an S3Uploader.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // custom endpoint, e.g. MinIO; enables path-style addressing
	AccessKey string
	SecretKey string
	// PublicBaseURL prefixes object keys in returned URLs. When empty the
	// URL is derived from Endpoint or the AWS virtual-host form.
	PublicBaseURL string
	KeyPrefix     string
}

// S3Uploader stores images in an S3 compatible bucket.
type S3Uploader struct {
	api     PutObjectAPI
	cfg     S3Config
	baseURL string
	now     func() time.Time
}

// NewS3Uploader builds an S3 client from cfg.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3UploaderWithAPI(client, cfg), nil
}

// NewS3UploaderWithAPI wraps an existing client. Used by tests.
func NewS3UploaderWithAPI(api PutObjectAPI, cfg S3Config) *S3Uploader {
	return &S3Uploader{
		api:     api,
		cfg:     cfg,
		baseURL: publicBaseURL(cfg),
		now:     time.Now,
	}
}

// Upload puts data under a fresh key and returns its public URL.
func (u *S3Uploader) Upload(ctx context.Context, data []byte, mimeType, filename string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image")
	}

	key := u.objectKey(mimeType, filename)
	_, err := u.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return u.baseURL + "/" + escapeKey(key), nil
}

// objectKey is <prefix>/<yyyy>/<mm>/<dd>/<ulid><ext>.
func (u *S3Uploader) objectKey(mimeType, filename string) string {
	name := ulid.Make().String() + extension(mimeType, filename)
	day := u.now().UTC().Format("2006/01/02")
	if u.cfg.KeyPrefix == "" {
		return day + "/" + name
	}
	return strings.Trim(u.cfg.KeyPrefix, "/") + "/" + day + "/" + name
}

var mimeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

func extension(mimeType, filename string) string {
	if ext, ok := mimeExtensions[strings.ToLower(mimeType)]; ok {
		return ext
	}
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 1 && len(ext) <= 6 {
		return ext
	}
	return ""
}

func publicBaseURL(cfg S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
