package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/alphabot-ai/storyshelf/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrInvalidID = errors.New("invalid id")
)

// ConnectionError reports that the backing database could not be reached or
// is misconfigured.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

type Store interface {
	StoryStore
	CommentStore
	Close() error
}

type StoryStore interface {
	// CreateStory validates the story, assigns ID and CreatedAt and persists it.
	CreateStory(ctx context.Context, story *model.Story) error
	GetStory(ctx context.Context, id string) (model.Story, error)
	ListStories(ctx context.Context) ([]model.Story, error)
}

type CommentStore interface {
	// CreateComment validates the comment, assigns ID and Timestamp and
	// persists it. Callers check that the story exists beforehand.
	CreateComment(ctx context.Context, comment *model.Comment) error
	// ListComments never fails on an unknown or malformed story id; it
	// returns an empty list instead.
	ListComments(ctx context.Context, storyID string) ([]model.Comment, error)
}
