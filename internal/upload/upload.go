// Package upload puts story cover images into S3-compatible object storage,
// either through the server or through short-lived signed URLs.
package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/singleflight"

	"github.com/alphabot-ai/storyshelf/internal/model"
)

const (
	DefaultKeyPrefix  = "story-covers"
	DefaultMaxBytes   = 5 << 20
	DefaultPresignTTL = 5 * time.Minute
)

// S3API is the subset of *s3.Client used by the service.
type S3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketPolicy(ctx context.Context, in *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner is the subset of *s3.PresignClient used by the service.
type Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Options struct {
	Bucket string
	Region string
	// PublicBaseURL prefixes object keys to form public URLs. Defaults to
	// https://<bucket>.s3.amazonaws.com.
	PublicBaseURL string
	KeyPrefix     string
	MaxBytes      int64
	PresignTTL    time.Duration
	Logger        *slog.Logger
}

type Service struct {
	client    S3API
	presigner Presigner
	opts      Options
	logger    *slog.Logger
	now       func() time.Time

	provision singleflight.Group
}

func New(client S3API, presigner Presigner, opts Options) *Service {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	opts.KeyPrefix = strings.Trim(opts.KeyPrefix, "/")
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = DefaultPresignTTL
	}
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = "https://" + opts.Bucket + ".s3.amazonaws.com"
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, presigner: presigner, opts: opts, logger: logger, now: time.Now}
}

func (s *Service) Bucket() string { return s.opts.Bucket }

func (s *Service) MaxBytes() int64 { return s.opts.MaxBytes }

// PublicURL returns the address the object under key is served from.
func (s *Service) PublicURL(key string) string {
	return s.opts.PublicBaseURL + "/" + key
}

// Upload stores body under a fresh key after checking its content type and
// size.
func (s *Service) Upload(ctx context.Context, fileName, contentType string, body io.Reader) (model.UploadResult, error) {
	mediaType, err := CheckContentType(contentType)
	if err != nil {
		return model.UploadResult{}, err
	}
	data, err := io.ReadAll(io.LimitReader(body, s.opts.MaxBytes+1))
	if err != nil {
		return model.UploadResult{}, &UploadError{Op: "read body", Err: err}
	}
	if int64(len(data)) > s.opts.MaxBytes {
		return model.UploadResult{}, &TooLargeError{Limit: s.opts.MaxBytes}
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return model.UploadResult{}, err
	}

	key := newKey(s.opts.KeyPrefix, fileName)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mediaType),
	})
	if err != nil {
		return model.UploadResult{}, &UploadError{Op: "put object", Err: err}
	}
	s.logger.Debug("object uploaded", "bucket", s.opts.Bucket, "key", key, "size", len(data))
	return model.UploadResult{
		URL:         s.PublicURL(key),
		Key:         key,
		FileName:    fileName,
		FileSize:    int64(len(data)),
		ContentType: mediaType,
	}, nil
}

// Presign issues a signed URL for a single public-read PUT of contentType to
// a fresh key. The URL does not bound the object size.
func (s *Service) Presign(ctx context.Context, fileName, contentType string) (model.PresignedUpload, error) {
	mediaType, err := CheckContentType(contentType)
	if err != nil {
		return model.PresignedUpload{}, err
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return model.PresignedUpload{}, err
	}

	key := newKey(s.opts.KeyPrefix, fileName)
	issued := s.now()
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(mediaType),
		ACL:         types.ObjectCannedACLPublicRead,
	}, s3.WithPresignExpires(s.opts.PresignTTL))
	if err != nil {
		return model.PresignedUpload{}, &UploadError{Op: "presign put object", Err: err}
	}

	headers := make(map[string]string, len(req.SignedHeader))
	for name, values := range req.SignedHeader {
		if strings.EqualFold(name, "Host") || len(values) == 0 {
			continue
		}
		headers[http.CanonicalHeaderKey(name)] = values[0]
	}
	if _, ok := headers["Content-Type"]; !ok {
		headers["Content-Type"] = mediaType
	}
	return model.PresignedUpload{
		UploadURL: req.URL,
		Key:       key,
		PublicURL: s.PublicURL(key),
		Method:    req.Method,
		Headers:   headers,
		ExpiresAt: issued.Add(s.opts.PresignTTL).UTC(),
	}, nil
}

// Delete removes a previously uploaded object.
func (s *Service) Delete(ctx context.Context, key string) error {
	if key == "" || !strings.HasPrefix(key, s.opts.KeyPrefix+"/") || strings.Contains(key, "..") {
		return ErrForeignKey
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &UploadError{Op: "delete object", Err: err}
	}
	return nil
}

// IsClientError reports whether err was caused by the request rather than by
// storage.
func IsClientError(err error) bool {
	var media *UnsupportedMediaTypeError
	var size *TooLargeError
	return errors.As(err, &media) || errors.As(err, &size) || errors.Is(err, ErrForeignKey)
}
