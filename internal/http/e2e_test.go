package httpapp_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alphabot-ai/storyshelf/internal/client"
	"github.com/alphabot-ai/storyshelf/internal/config"
	httpapp "github.com/alphabot-ai/storyshelf/internal/http"
	"github.com/alphabot-ai/storyshelf/internal/rate"
	"github.com/alphabot-ai/storyshelf/internal/store/sqlite"
	"github.com/alphabot-ai/storyshelf/internal/testsupport"
	"github.com/alphabot-ai/storyshelf/internal/upload"
)

func TestEndToEndServer(t *testing.T) {
	st, err := sqlite.Open("file:e2e_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	fake := testsupport.NewS3Fake()
	defer fake.Close()
	s3Client := s3.New(s3.Options{
		Region:           "eu-west-1",
		Credentials:      credentials.NewStaticCredentialsProvider("test", "test", ""),
		BaseEndpoint:     aws.String(fake.URL()),
		UsePathStyle:     true,
		RetryMaxAttempts: 1,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uploads := upload.New(s3Client, s3.NewPresignClient(s3Client), upload.Options{
		Bucket:        "e2e-covers",
		Region:        "eu-west-1",
		PublicBaseURL: fake.URL() + "/e2e-covers",
		Logger:        logger,
	})

	cfg := config.Config{
		Addr:       ":0",
		RateLimits: config.RateLimits{StoryPerMinute: 1000, CommentPerMinute: 1000, UploadPerMinute: 1000},
	}
	server, err := httpapp.NewServer(st, uploads, rate.NewMemory(), cfg, logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	httpServer := &http.Server{Handler: server}
	go func() {
		_ = httpServer.Serve(listener)
	}()
	defer httpServer.Close()

	ctx := context.Background()
	c := client.New("http://" + listener.Addr().String())

	coverURL, err := c.UploadWithPresignedURL(ctx, "cover.jpg", "image/jpeg", []byte("jpeg bytes"))
	if err != nil {
		t.Fatalf("presigned upload: %v", err)
	}
	inline, err := c.UploadFile(ctx, "inline.png", "image/png", []byte("png bytes"))
	if err != nil {
		t.Fatalf("server upload: %v", err)
	}
	if fake.Creates() != 1 {
		t.Fatalf("expected bucket to be created once, got %d", fake.Creates())
	}

	story, err := c.CreateStory(ctx, client.NewStory{
		Title:      "E2E Story",
		Content:    "Told end to end.",
		CoverImage: coverURL,
		AuthorName: "Tester",
	})
	if err != nil {
		t.Fatalf("create story: %v", err)
	}
	if _, err := c.CreateComment(ctx, story.ID, client.NewComment{Text: "Great read", CommenterName: "Reader"}); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	detail, err := c.GetStory(ctx, story.ID)
	if err != nil {
		t.Fatalf("get story: %v", err)
	}
	if detail.Story.CoverImage != coverURL || len(detail.Comments) != 1 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	stories, err := c.ListStories(ctx)
	if err != nil || len(stories) != 1 {
		t.Fatalf("list stories: %v (%d)", err, len(stories))
	}

	_, err = c.CreateComment(ctx, "507f1f77bcf86cd799439011", client.NewComment{Text: "orphan", CommenterName: "Reader"})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 api error, got %v", err)
	}

	if err := c.DeleteUpload(ctx, inline.Key); err != nil {
		t.Fatalf("delete upload: %v", err)
	}
}
