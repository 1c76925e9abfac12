package upload

import (
	"errors"
	"fmt"
)

// ErrForeignKey is returned when asked to touch an object outside the upload
// prefix.
var ErrForeignKey = errors.New("key is outside the upload prefix")

// UnsupportedMediaTypeError rejects a content type outside the allow-list.
type UnsupportedMediaTypeError struct {
	ContentType string
}

func (e *UnsupportedMediaTypeError) Error() string {
	return fmt.Sprintf("only JPEG, PNG, and WebP images are allowed (got %q)", e.ContentType)
}

// TooLargeError rejects a body bigger than the configured limit.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	if e.Limit%(1<<20) == 0 {
		return fmt.Sprintf("file size must be less than %dMB", e.Limit>>20)
	}
	return fmt.Sprintf("file size must be less than %d bytes", e.Limit)
}

// UploadError wraps a failure reported by the storage provider.
type UploadError struct {
	Op  string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload: %s: %v", e.Op, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
