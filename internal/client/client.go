// Package client provides a Go client for the Storyshelf API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/alphabot-ai/storyshelf/internal/model"
)

// MaxFileSize is the largest cover image the server accepts.
const MaxFileSize = 5 << 20

// ErrUploadFailed is returned when storage rejects a signed PUT.
var ErrUploadFailed = errors.New("upload to storage failed")

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// APIError is a failure reported by the server in its response envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// Client is a Storyshelf API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a new Storyshelf client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewStory is the input for CreateStory.
type NewStory struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CoverImage string `json:"coverImage,omitempty"`
	AuthorName string `json:"authorName"`
}

// NewComment is the input for CreateComment.
type NewComment struct {
	Text          string `json:"text"`
	CommenterName string `json:"commenterName"`
}

// ListStories returns all stories, newest first.
func (c *Client) ListStories(ctx context.Context) ([]model.Story, error) {
	var stories []model.Story
	err := c.do(ctx, http.MethodGet, "/api/stories", nil, &stories)
	return stories, err
}

// CreateStory publishes a story.
func (c *Client) CreateStory(ctx context.Context, in NewStory) (model.Story, error) {
	var story model.Story
	err := c.do(ctx, http.MethodPost, "/api/stories", in, &story)
	return story, err
}

// GetStory returns a story with its comments.
func (c *Client) GetStory(ctx context.Context, id string) (model.StoryDetail, error) {
	var detail model.StoryDetail
	err := c.do(ctx, http.MethodGet, "/api/stories/"+url.PathEscape(id), nil, &detail)
	return detail, err
}

// ListComments returns the comments on a story, newest first.
func (c *Client) ListComments(ctx context.Context, storyID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := c.do(ctx, http.MethodGet, "/api/stories/"+url.PathEscape(storyID)+"/comments", nil, &comments)
	return comments, err
}

// CreateComment adds a comment to a story.
func (c *Client) CreateComment(ctx context.Context, storyID string, in NewComment) (model.Comment, error) {
	var comment model.Comment
	err := c.do(ctx, http.MethodPost, "/api/stories/"+url.PathEscape(storyID)+"/comments", in, &comment)
	return comment, err
}

// ValidateFile applies the server's type and size rules before any bytes
// are sent.
func ValidateFile(contentType string, size int64) error {
	if !allowedTypes[strings.ToLower(strings.TrimSpace(contentType))] {
		return errors.New("only JPEG, PNG, and WebP images are allowed")
	}
	if size > MaxFileSize {
		return fmt.Errorf("file size must be less than %dMB", MaxFileSize>>20)
	}
	return nil
}

// UploadFile sends the image through the server.
func (c *Client) UploadFile(ctx context.Context, fileName, contentType string, data []byte) (model.UploadResult, error) {
	if err := ValidateFile(contentType, int64(len(data))); err != nil {
		return model.UploadResult{}, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(fileName)))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return model.UploadResult{}, err
	}
	if _, err := part.Write(data); err != nil {
		return model.UploadResult{}, err
	}
	if err := mw.Close(); err != nil {
		return model.UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/upload", &buf)
	if err != nil {
		return model.UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res model.UploadResult
	err = c.send(req, &res)
	return res, err
}

// Presign asks the server for a signed upload URL.
func (c *Client) Presign(ctx context.Context, fileName, contentType string) (model.PresignedUpload, error) {
	var p model.PresignedUpload
	err := c.do(ctx, http.MethodPost, "/api/upload/presigned", map[string]string{
		"fileName":    fileName,
		"contentType": contentType,
	}, &p)
	return p, err
}

// PutPresigned sends data straight to storage using a signed URL. It does not
// retry.
func (c *Client) PutPresigned(ctx context.Context, p model.PresignedUpload, data []byte) error {
	method := p.Method
	if method == "" {
		method = http.MethodPut
	}
	req, err := http.NewRequestWithContext(ctx, method, p.UploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w (%d): %s", ErrUploadFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// UploadWithPresignedURL validates, presigns and uploads in one call,
// returning the public URL of the stored image.
func (c *Client) UploadWithPresignedURL(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	if err := ValidateFile(contentType, int64(len(data))); err != nil {
		return "", err
	}
	p, err := c.Presign(ctx, fileName, contentType)
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	if err := c.PutPresigned(ctx, p, data); err != nil {
		return "", err
	}
	return p.PublicURL, nil
}

// DeleteUpload removes a previously uploaded image by key.
func (c *Client) DeleteUpload(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/api/upload/"+key, nil, nil)
}

// do performs a JSON request against the API.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
