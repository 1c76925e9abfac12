package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alphabot-ai/storyshelf/internal/model"
)

func TestValidateStoryBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		story   model.Story
		wantErr []string
	}{
		{
			name:  "valid",
			story: model.Story{Title: "A title", Content: "Body", AuthorName: "Ann"},
		},
		{
			name:  "title at limit",
			story: model.Story{Title: strings.Repeat("a", 200), Content: "Body", AuthorName: "Ann"},
		},
		{
			name:    "title over limit",
			story:   model.Story{Title: strings.Repeat("a", 201), Content: "Body", AuthorName: "Ann"},
			wantErr: []string{"title"},
		},
		{
			name:  "multibyte title at limit",
			story: model.Story{Title: strings.Repeat("é", 200), Content: "Body", AuthorName: "Ann"},
		},
		{
			name:    "author over limit",
			story:   model.Story{Title: "t", Content: "Body", AuthorName: strings.Repeat("b", 101)},
			wantErr: []string{"authorName"},
		},
		{
			name:    "all missing",
			story:   model.Story{Title: "  ", CoverImage: "https://example.com/x.png"},
			wantErr: []string{"title", "content", "authorName"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStory(&tc.story)
			if len(tc.wantErr) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields) != len(tc.wantErr) {
				t.Fatalf("expected %d fields, got %v", len(tc.wantErr), verr.Fields)
			}
			for _, field := range tc.wantErr {
				if !verr.Has(field) {
					t.Fatalf("expected %s in %v", field, verr.Fields)
				}
			}
		})
	}
}

func TestValidateStoryTrims(t *testing.T) {
	story := model.Story{Title: "  Hello ", Content: "\tworld\n", AuthorName: " Ann "}
	if err := ValidateStory(&story); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if story.Title != "Hello" || story.Content != "world" || story.AuthorName != "Ann" {
		t.Fatalf("fields not trimmed: %+v", story)
	}
}

func TestValidateCommentBoundaries(t *testing.T) {
	storyID := NewID()
	ok := model.Comment{StoryID: storyID, Text: strings.Repeat("x", 500), CommenterName: "Bob"}
	if err := ValidateComment(&ok); err != nil {
		t.Fatalf("500 chars should pass: %v", err)
	}

	long := model.Comment{StoryID: storyID, Text: strings.Repeat("x", 501), CommenterName: "Bob"}
	var verr *ValidationError
	if err := ValidateComment(&long); !errors.As(err, &verr) || !verr.Has("text") {
		t.Fatalf("expected text error, got %v", err)
	}

	name := model.Comment{StoryID: storyID, Text: "hi", CommenterName: strings.Repeat("n", 101)}
	if err := ValidateComment(&name); !errors.As(err, &verr) || !verr.Has("commenterName") {
		t.Fatalf("expected commenterName error, got %v", err)
	}

	badRef := model.Comment{StoryID: "not-an-id", Text: "hi", CommenterName: "Bob"}
	if err := ValidateComment(&badRef); !errors.As(err, &verr) || !verr.Has("storyId") {
		t.Fatalf("expected storyId error, got %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	story := model.Story{}
	err := ValidateStory(&story)
	want := "title is required; content is required; author name is required"
	if err == nil || err.Error() != want {
		t.Fatalf("expected %q, got %v", want, err)
	}
}

func TestParseID(t *testing.T) {
	if _, err := ParseID("not-an-id"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	id := NewID()
	oid, err := ParseID(id)
	if err != nil {
		t.Fatalf("parse generated id: %v", err)
	}
	if oid.Hex() != id {
		t.Fatalf("round trip mismatch: %s != %s", oid.Hex(), id)
	}
}

func TestStamperNeverGoesBackwards(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Second), base.Add(1500 * time.Microsecond)}
	i := 0
	s := NewStamper(func() time.Time {
		t := ticks[i]
		i++
		return t
	})

	first := s.Now()
	second := s.Now()
	third := s.Now()
	if second.Before(first) {
		t.Fatalf("second stamp %v before first %v", second, first)
	}
	if !third.Equal(base.Add(time.Millisecond)) {
		t.Fatalf("expected millisecond truncation, got %v", third)
	}
}
