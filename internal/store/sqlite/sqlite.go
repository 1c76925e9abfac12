package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alphabot-ai/storyshelf/internal/model"
	"github.com/alphabot-ai/storyshelf/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &store.ConnectionError{Err: err}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &store.ConnectionError{Err: err}
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: store.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS stories (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	cover_image TEXT,
	author_name TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stories_created_at ON stories(created_at DESC);

CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	story_id TEXT NOT NULL,
	text TEXT NOT NULL,
	commenter_name TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_story_id ON comments(story_id, timestamp DESC);
`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) CreateStory(ctx context.Context, story *model.Story) error {
	if err := store.ValidateStory(story); err != nil {
		return err
	}
	id := store.NewID()
	created := s.now()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO stories (id, title, content, cover_image, author_name, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, id, story.Title, story.Content, nullIfEmpty(story.CoverImage), story.AuthorName, created.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	story.ID = id
	story.CreatedAt = created
	return nil
}

func (s *Store) GetStory(ctx context.Context, id string) (model.Story, error) {
	if _, err := store.ParseID(id); err != nil {
		return model.Story{}, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, content, cover_image, author_name, created_at
FROM stories
WHERE id = ?
LIMIT 1
`, id)
	return scanStory(row)
}

func (s *Store) ListStories(ctx context.Context) ([]model.Story, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, content, cover_image, author_name, created_at
FROM stories
ORDER BY created_at DESC, id DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	stories := make([]model.Story, 0)
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	return stories, rows.Err()
}

func (s *Store) CreateComment(ctx context.Context, comment *model.Comment) error {
	if err := store.ValidateComment(comment); err != nil {
		return err
	}
	id := store.NewID()
	ts := s.now()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO comments (id, story_id, text, commenter_name, timestamp)
VALUES (?, ?, ?, ?, ?)
`, id, comment.StoryID, comment.Text, comment.CommenterName, ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	comment.ID = id
	comment.Timestamp = ts
	return nil
}

func (s *Store) ListComments(ctx context.Context, storyID string) ([]model.Comment, error) {
	comments := make([]model.Comment, 0)
	if !store.ValidID(storyID) {
		return comments, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, story_id, text, commenter_name, timestamp
FROM comments
WHERE story_id = ?
ORDER BY timestamp DESC, id DESC
`, storyID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Comment
		var ts int64
		if err := rows.Scan(&c.ID, &c.StoryID, &c.Text, &c.CommenterName, &ts); err != nil {
			return nil, err
		}
		c.Timestamp = time.UnixMilli(ts).UTC()
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func scanStory(scanner interface{ Scan(dest ...any) error }) (model.Story, error) {
	var s model.Story
	var cover sql.NullString
	var created int64
	if err := scanner.Scan(&s.ID, &s.Title, &s.Content, &cover, &s.AuthorName, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Story{}, store.ErrNotFound
		}
		return model.Story{}, err
	}
	if cover.Valid {
		s.CoverImage = cover.String
	}
	s.CreatedAt = time.UnixMilli(created).UTC()
	return s, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
