package httpapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/alphabot-ai/storyshelf/internal/model"
	"github.com/alphabot-ai/storyshelf/internal/upload"
)

// Uploader is the object storage side of the API. *upload.Service
// implements it.
type Uploader interface {
	Upload(ctx context.Context, fileName, contentType string, body io.Reader) (model.UploadResult, error)
	Presign(ctx context.Context, fileName, contentType string) (model.PresignedUpload, error)
	Delete(ctx context.Context, key string) error
	MaxBytes() int64
}

// multipartOverhead is the allowance for multipart framing on top of the
// file size limit.
const multipartOverhead = 64 << 10

var (
	errNoFile          = errors.New("No file uploaded")
	errUnsupportedType = errors.New("Only JPEG, PNG, and WebP images are allowed")
	errPresignFields   = errors.New("fileName and contentType are required")
	errInvalidKey      = errors.New("Invalid file key")
)

func tooLarge(limit int64) error {
	return fmt.Errorf("File size must be less than %dMB", limit>>20)
}

// handleUpload godoc
//
//	@Summary		Upload a cover image
//	@Description	Upload through the server. Accepts JPEG, PNG and WebP up to the configured size.
//	@Tags			Uploads
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Success		200		{object}	envelope{data=model.UploadResult}
//	@Failure		400		{object}	envelope	"No file, bad type or too large"
//	@Failure		429		{object}	envelope	"Rate limited"
//	@Failure		500		{object}	envelope	"Failed to upload file"
//	@Router			/api/upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "upload", s.cfg.RateLimits.UploadPerMinute) {
		return
	}
	limit := s.uploads.MaxBytes()
	if r.ContentLength > limit+multipartOverhead {
		writeError(w, http.StatusBadRequest, tooLarge(limit))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, tooLarge(limit))
			return
		}
		writeError(w, http.StatusBadRequest, errNoFile)
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	res, err := s.uploads.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		var media *upload.UnsupportedMediaTypeError
		var size *upload.TooLargeError
		switch {
		case errors.As(err, &media):
			writeError(w, http.StatusBadRequest, errUnsupportedType)
		case errors.As(err, &size):
			writeError(w, http.StatusBadRequest, tooLarge(size.Limit))
		default:
			s.internalError(w, r, err, "Failed to upload file")
		}
		return
	}
	writeData(w, http.StatusOK, res)
}

// handlePresign godoc
//
//	@Summary		Get a signed upload URL
//	@Description	Returns a short-lived URL the client PUTs the image to directly, with the headers it must send.
//	@Tags			Uploads
//	@Accept			json
//	@Produce		json
//	@Param			request	body		object{fileName=string,contentType=string}	true	"File metadata"
//	@Success		200		{object}	envelope{data=model.PresignedUpload}
//	@Failure		400		{object}	envelope	"Missing fields or bad type"
//	@Failure		429		{object}	envelope	"Rate limited"
//	@Failure		500		{object}	envelope	"Failed to generate presigned URL"
//	@Router			/api/upload/presigned [post]
func (s *Server) handlePresign(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "upload", s.cfg.RateLimits.UploadPerMinute) {
		return
	}
	var req struct {
		FileName    string `json:"fileName"`
		ContentType string `json:"contentType"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if strings.TrimSpace(req.FileName) == "" || strings.TrimSpace(req.ContentType) == "" {
		writeError(w, http.StatusBadRequest, errPresignFields)
		return
	}

	res, err := s.uploads.Presign(r.Context(), req.FileName, req.ContentType)
	if err != nil {
		var media *upload.UnsupportedMediaTypeError
		if errors.As(err, &media) {
			writeError(w, http.StatusBadRequest, errUnsupportedType)
			return
		}
		s.internalError(w, r, err, "Failed to generate presigned URL")
		return
	}
	writeData(w, http.StatusOK, res)
}

// handleDeleteUpload godoc
//
//	@Summary	Delete an uploaded image
//	@Tags		Uploads
//	@Produce	json
//	@Param		key	path		string	true	"Object key returned by an upload"
//	@Success	200	{object}	envelope{data=object{key=string}}
//	@Failure	400	{object}	envelope	"Invalid file key"
//	@Failure	500	{object}	envelope	"Failed to delete file"
//	@Router		/api/upload/{key} [delete]
func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := s.uploads.Delete(r.Context(), key); err != nil {
		if errors.Is(err, upload.ErrForeignKey) {
			writeError(w, http.StatusBadRequest, errInvalidKey)
			return
		}
		s.internalError(w, r, err, "Failed to delete file")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"key": key})
}
