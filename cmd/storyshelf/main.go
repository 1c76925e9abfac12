package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alphabot-ai/storyshelf/internal/client"
	"github.com/alphabot-ai/storyshelf/internal/config"
	httpapp "github.com/alphabot-ai/storyshelf/internal/http"
	"github.com/alphabot-ai/storyshelf/internal/rate"
	"github.com/alphabot-ai/storyshelf/internal/store"
	"github.com/alphabot-ai/storyshelf/internal/store/mongo"
	"github.com/alphabot-ai/storyshelf/internal/store/sqlite"
	"github.com/alphabot-ai/storyshelf/internal/upload"
)

const defaultBaseURL = "http://localhost:8080"

func main() {
	if len(os.Args) < 2 {
		runServer()
		return
	}

	cmd := os.Args[1]

	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println("storyshelf v0.1.0")
		return
	}

	if strings.HasPrefix(cmd, "-") {
		runServer()
		return
	}

	args := os.Args[2:]

	switch cmd {
	case "server", "serve":
		runServer()
	case "post", "submit":
		cmdPost(args)
	case "comment":
		cmdComment(args)
	case "read", "list":
		cmdRead(args)
	case "upload":
		cmdUpload(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`storyshelf - short stories with cover images

Usage: storyshelf <command> [options]

Client Commands:
  post                Publish a story
  comment             Comment on a story
  read                List stories, or show one with its comments
  upload              Upload a cover image

Server:
  server              Start the Storyshelf server (default if no command)

Examples:
  storyshelf upload --file cover.png
  storyshelf upload --file cover.png --presigned
  storyshelf post --title "The Lighthouse" --content "It was a dark night." --author Grace --cover https://...
  storyshelf comment --story 665f1c2e9b1d4a0012345678 --text "Loved it" --name Bo
  storyshelf read
  storyshelf read --story 665f1c2e9b1d4a0012345678

Client commands talk to --url, or STORYSHELF_URL (default: http://localhost:8080).

Environment Variables (server):
  STORYSHELF_ADDR               Listen address (default: :8080, or :$PORT)
  STORYSHELF_DB_DRIVER          mongo or sqlite (default: mongo)
  MONGODB_URI                   MongoDB connection string
  MONGODB_DATABASE              Database name (default: storyshelf)
  STORYSHELF_SQLITE_PATH        SQLite file (default: storyshelf.db)
  AWS_REGION                    Bucket region (default: us-east-1)
  AWS_ACCESS_KEY_ID             Static credentials (optional)
  AWS_SECRET_ACCESS_KEY         Static credentials (optional)
  AWS_S3_BUCKET                 Cover image bucket (required)
  STORYSHELF_S3_ENDPOINT        S3-compatible endpoint (optional)
  STORYSHELF_S3_PATH_STYLE      Path-style addressing (default: false)
  STORYSHELF_S3_PUBLIC_URL      Public base URL for objects
  STORYSHELF_CORS_ORIGINS       Allowed origins (default: *)
  STORYSHELF_LOG_LEVEL          debug, info, warn, error (default: info)
  STORYSHELF_LOG_FORMAT         text or json (default: text)

A .env file in the working directory is read if present.`)
}

func runServer() {
	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	uploads, err := upload.NewFromConfig(ctx, upload.ClientConfig{
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Endpoint:        cfg.Storage.Endpoint,
		UsePathStyle:    cfg.Storage.UsePathStyle,
	}, upload.Options{
		Bucket:        cfg.Storage.Bucket,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		MaxBytes:      cfg.Storage.MaxUploadBytes,
		PresignTTL:    cfg.Storage.PresignTTL,
		Logger:        logger,
	})
	if err != nil {
		log.Fatalf("failed to initialize uploads: %v", err)
	}

	server, err := httpapp.NewServer(st, uploads, rate.NewMemory(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize server: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("storyshelf listening", "addr", cfg.Addr, "driver", cfg.Database.Driver, "bucket", cfg.Storage.Bucket)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverMongo:
		conn := mongo.NewConnector(cfg.Database.MongoURI, cfg.Database.MongoDatabase, cfg.Database.ConnectTimeout)
		// Connect eagerly so the first request does not pay for it. A failure
		// here is not fatal; requests retry the connection.
		go func() {
			if _, err := conn.Database(ctx); err != nil {
				logger.Warn("database not reachable yet", "error", err)
				return
			}
			logger.Info("database connected", "database", cfg.Database.MongoDatabase)
		}()
		return mongo.New(conn), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// ============================================================================
// CLIENT COMMANDS
// ============================================================================

func newClient(baseURL string) *client.Client {
	if baseURL == "" {
		baseURL = os.Getenv("STORYSHELF_URL")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return client.New(baseURL)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdPost(args []string) {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	baseURL := fs.String("url", "", "Server URL")
	title := fs.String("title", "", "Story title (required, max 200 chars)")
	content := fs.String("content", "", "Story text (required)")
	author := fs.String("author", "", "Author name (required, max 100 chars)")
	cover := fs.String("cover", "", "Cover image URL (see: storyshelf upload)")
	fs.Parse(args)

	if *title == "" || *content == "" || *author == "" {
		fmt.Fprintln(os.Stderr, "Error: --title, --content and --author are required")
		os.Exit(1)
	}

	story, err := newClient(*baseURL).CreateStory(context.Background(), client.NewStory{
		Title:      *title,
		Content:    *content,
		CoverImage: *cover,
		AuthorName: *author,
	})
	if err != nil {
		fail(err)
	}

	fmt.Printf("✓ Posted: %s\n", story.Title)
	fmt.Printf("  ID: %s\n", story.ID)
}

func cmdComment(args []string) {
	fs := flag.NewFlagSet("comment", flag.ExitOnError)
	baseURL := fs.String("url", "", "Server URL")
	storyID := fs.String("story", "", "Story ID (required)")
	text := fs.String("text", "", "Comment text (required, max 500 chars)")
	name := fs.String("name", "", "Your name (required, max 100 chars)")
	fs.Parse(args)

	if *storyID == "" || *text == "" || *name == "" {
		fmt.Fprintln(os.Stderr, "Error: --story, --text and --name are required")
		os.Exit(1)
	}

	comment, err := newClient(*baseURL).CreateComment(context.Background(), *storyID, client.NewComment{
		Text:          *text,
		CommenterName: *name,
	})
	if err != nil {
		fail(err)
	}

	fmt.Printf("✓ Commented on story %s\n", *storyID)
	fmt.Printf("  ID: %s\n", comment.ID)
}

func cmdRead(args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	baseURL := fs.String("url", "", "Server URL")
	storyID := fs.String("story", "", "Show a specific story with comments")
	limit := fs.Int("limit", 10, "Number of stories")
	fs.Parse(args)

	c := newClient(*baseURL)
	ctx := context.Background()

	if *storyID != "" {
		detail, err := c.GetStory(ctx, *storyID)
		if err != nil {
			fail(err)
		}
		s := detail.Story
		fmt.Printf("\n%s\n", s.Title)
		fmt.Printf("  by %s | %s\n", s.AuthorName, s.CreatedAt.Local().Format(time.DateTime))
		if s.CoverImage != "" {
			fmt.Printf("  Cover: %s\n", s.CoverImage)
		}
		fmt.Printf("\n  %s\n", s.Content)
		if len(detail.Comments) > 0 {
			fmt.Printf("\n  --- Comments (%d) ---\n", len(detail.Comments))
			for _, comment := range detail.Comments {
				fmt.Printf("  %s: %s\n", comment.CommenterName, comment.Text)
			}
		}
		return
	}

	stories, err := c.ListStories(ctx)
	if err != nil {
		fail(err)
	}
	if *limit > 0 && len(stories) > *limit {
		stories = stories[:*limit]
	}

	fmt.Printf("\n📚 Storyshelf\n\n")
	for i, s := range stories {
		fmt.Printf("%d. %s\n", i+1, s.Title)
		fmt.Printf("   by %s | #%s\n\n", s.AuthorName, s.ID)
	}
}

func cmdUpload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	baseURL := fs.String("url", "", "Server URL")
	path := fs.String("file", "", "Image file (required; JPEG, PNG or WebP, max 5MB)")
	presigned := fs.Bool("presigned", false, "Upload directly to storage with a signed URL")
	fs.Parse(args)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		os.Exit(1)
	}
	data, err := os.ReadFile(*path)
	if err != nil {
		fail(err)
	}
	contentType := detectContentType(*path, data)
	if err := client.ValidateFile(contentType, int64(len(data))); err != nil {
		fail(err)
	}

	c := newClient(*baseURL)
	ctx := context.Background()
	name := filepath.Base(*path)

	if *presigned {
		publicURL, err := c.UploadWithPresignedURL(ctx, name, contentType, data)
		if err != nil {
			fail(err)
		}
		fmt.Printf("✓ Uploaded %s\n", name)
		fmt.Printf("  URL: %s\n", publicURL)
		return
	}

	res, err := c.UploadFile(ctx, name, contentType, data)
	if err != nil {
		fail(err)
	}
	fmt.Printf("✓ Uploaded %s (%d bytes)\n", name, res.FileSize)
	fmt.Printf("  URL: %s\n", res.URL)
	fmt.Printf("  Key: %s\n", res.Key)
}

func detectContentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
	}
	ct := http.DetectContentType(data)
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return ct
}
