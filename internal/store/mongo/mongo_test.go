package mongo

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alphabot-ai/storyshelf/internal/model"
	"github.com/alphabot-ai/storyshelf/internal/store"
)

// newTestStore connects to STORYSHELF_TEST_MONGO_URI and uses a database
// private to the test.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("STORYSHELF_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("STORYSHELF_TEST_MONGO_URI not set")
	}
	dbName := "storyshelf_test_" + strings.ToLower(store.NewID())
	conn := NewConnector(uri, dbName, 10*time.Second)
	st := New(conn)
	t.Cleanup(func() {
		ctx := context.Background()
		if db, err := conn.Database(ctx); err == nil {
			_ = db.Drop(ctx)
		}
		_ = st.Close()
	})
	return st
}

func TestMongoStoryLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	story := model.Story{Title: "Mongo Story", Content: "Body", AuthorName: "Ann"}
	if err := st.CreateStory(ctx, &story); err != nil {
		t.Fatalf("create story: %v", err)
	}
	got, err := st.GetStory(ctx, story.ID)
	if err != nil {
		t.Fatalf("get story: %v", err)
	}
	if got.Title != story.Title || !got.CreatedAt.Equal(story.CreatedAt) {
		t.Fatalf("unexpected story %+v, want %+v", got, story)
	}
	if _, err := st.GetStory(ctx, store.NewID()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	older := story
	next := model.Story{Title: "Second", Content: "Body", AuthorName: "Bob"}
	if err := st.CreateStory(ctx, &next); err != nil {
		t.Fatalf("create story: %v", err)
	}
	stories, err := st.ListStories(ctx)
	if err != nil {
		t.Fatalf("list stories: %v", err)
	}
	if len(stories) != 2 || stories[0].ID != next.ID || stories[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", stories)
	}
}

func TestMongoComments(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	story := model.Story{Title: "Story", Content: "Body", AuthorName: "Ann"}
	if err := st.CreateStory(ctx, &story); err != nil {
		t.Fatalf("create story: %v", err)
	}
	first := model.Comment{StoryID: story.ID, Text: "first", CommenterName: "Ann"}
	if err := st.CreateComment(ctx, &first); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	second := model.Comment{StoryID: story.ID, Text: "hi", CommenterName: "Bob"}
	if err := st.CreateComment(ctx, &second); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	comments, err := st.ListComments(ctx, story.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 2 || comments[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", comments)
	}
	if comments[0].StoryID != story.ID {
		t.Fatalf("storyId not preserved: %s", comments[0].StoryID)
	}
}
