package model

import "time"

type Story struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CoverImage string    `json:"coverImage,omitempty"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Comment struct {
	ID            string    `json:"id"`
	StoryID       string    `json:"storyId"`
	Text          string    `json:"text"`
	CommenterName string    `json:"commenterName"`
	Timestamp     time.Time `json:"timestamp"`
}

// StoryDetail is a story together with its comments, newest first.
type StoryDetail struct {
	Story    Story     `json:"story"`
	Comments []Comment `json:"comments"`
}

// UploadResult identifies an object written through the server.
type UploadResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	FileName    string `json:"fileName,omitempty"`
	FileSize    int64  `json:"fileSize,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// PresignedUpload authorizes one direct PUT of an object to storage.
type PresignedUpload struct {
	UploadURL string            `json:"uploadUrl"`
	Key       string            `json:"key"`
	PublicURL string            `json:"publicUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt time.Time         `json:"expiresAt"`
}
