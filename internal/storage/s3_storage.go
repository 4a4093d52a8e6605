package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"pakolx/market/internal/config"
)

const presignExpiry = 15 * time.Minute

var (
	ErrInvalidFolder      = errors.New("invalid upload folder")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrFileTooLarge       = errors.New("file too large")
	ErrObjectNotFound     = errors.New("object not found")
	ErrStorageUnavailable = errors.New("object storage is not configured")
)

// Upload folders accepted from clients.
var allowedFolders = map[string]bool{
	"ads":      true,
	"stores":   true,
	"payments": true,
	"avatars":  true,
}

var extensionByType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ObjectStore is the subset of S3 used by the image worker.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) (io.ReadCloser, string, error)
	PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error
}

// IS3Storage defines the interface for S3 operations.
type IS3Storage interface {
	ObjectStore
	Upload(ctx context.Context, folder, userID, contentType string, body io.Reader, size int64) (*UploadResult, error)
	GeneratePresignedPutURL(ctx context.Context, folder, userID, contentType string, size int64) (*PresignResult, error)
	DeleteObject(ctx context.Context, key string) error
	PublicURL(key string) string
}

// UploadResult is returned to clients after a successful upload.
type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// PresignResult describes a direct browser upload.
type PresignResult struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ObjectKey checks the upload parameters and builds the object key
// <folder>/<user id>/<uuid>.<ext>.
func ObjectKey(folder, userID, contentType string, size, maxBytes int64) (string, error) {
	folder = strings.ToLower(strings.TrimSpace(folder))
	if !allowedFolders[folder] {
		return "", fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
	ext, ok := extensionByType[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if size <= 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}
	if maxBytes > 0 && size > maxBytes {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, size, maxBytes)
	}
	return fmt.Sprintf("%s/%s/%s.%s", folder, userID, uuid.NewString(), ext), nil
}

// IsRaster reports whether the worker can decode and resize the content type.
func IsRaster(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/png", "image/gif":
		return true
	}
	return false
}

type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Client builds the S3 client from static credentials. A custom
// endpoint (MinIO, LocalStack) switches to path-style addressing.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(ctx,
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AwsS3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AwsS3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(cfg *config.Config, client *s3.Client) IS3Storage {
	return &s3Storage{
		cfg:           cfg,
		s3Client:      client,
		presignClient: s3.NewPresignClient(client),
	}
}

func (s *s3Storage) bucket() (*string, error) {
	if s.cfg.AwsS3Bucket == "" {
		return nil, ErrStorageUnavailable
	}
	return aws.String(s.cfg.AwsS3Bucket), nil
}

func (s *s3Storage) Upload(ctx context.Context, folder, userID, contentType string, body io.Reader, size int64) (*UploadResult, error) {
	key, err := ObjectKey(folder, userID, contentType, size, s.cfg.ImageMaxSizeBytes())
	if err != nil {
		return nil, err
	}
	if err := s.PutObject(ctx, key, contentType, body, size); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"key": key, "size": size}).Info("Uploaded object")
	return &UploadResult{Key: key, URL: s.PublicURL(key)}, nil
}

// GeneratePresignedPutURL creates a pre-signed URL for a direct upload with
// the same folder and type rules as Upload.
func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, folder, userID, contentType string, size int64) (*PresignResult, error) {
	bucket, err := s.bucket()
	if err != nil {
		return nil, err
	}
	key, err := ObjectKey(folder, userID, contentType, size, s.cfg.ImageMaxSizeBytes())
	if err != nil {
		return nil, err
	}
	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        bucket,
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", key, err)
	}
	return &PresignResult{
		UploadURL: req.URL,
		Key:       key,
		URL:       s.PublicURL(key),
		ExpiresAt: time.Now().UTC().Add(presignExpiry),
	}, nil
}

func (s *s3Storage) GetObject(ctx context.Context, key string) (io.ReadCloser, string, error) {
	bucket, err := s.bucket()
	if err != nil {
		return nil, "", err
	}
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{Bucket: bucket, Key: aws.String(key)})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, "", fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

func (s *s3Storage) PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	bucket, err := s.bucket()
	if err != nil {
		return err
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        bucket,
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (s *s3Storage) DeleteObject(ctx context.Context, key string) error {
	bucket, err := s.bucket()
	if err != nil {
		return err
	}
	if _, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: bucket, Key: aws.String(key)}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// PublicURL is the address clients use to fetch key.
func (s *s3Storage) PublicURL(key string) string {
	if s.cfg.ImageBaseS3URL != "" {
		return s.cfg.ImageBaseS3URL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.AwsS3Bucket, s.cfg.AwsRegion, key)
}
