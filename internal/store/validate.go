package store

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alphabot-ai/storyshelf/internal/model"
)

const (
	MaxTitleLen         = 200
	MaxAuthorNameLen    = 100
	MaxCommentTextLen   = 500
	MaxCommenterNameLen = 100
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field is among the rejected fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type validator struct {
	fields []FieldError
}

func (v *validator) required(field, value, label string) bool {
	if value == "" {
		v.fields = append(v.fields, FieldError{Field: field, Message: label + " is required"})
		return false
	}
	return true
}

func (v *validator) maxLen(field, value, label string, max int) {
	if utf8.RuneCountInString(value) > max {
		v.fields = append(v.fields, FieldError{
			Field:   field,
			Message: label + " cannot be more than " + strconv.Itoa(max) + " characters",
		})
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// ValidateStory trims the story's text fields in place and checks them.
// It returns nil or a *ValidationError.
func ValidateStory(story *model.Story) error {
	story.Title = strings.TrimSpace(story.Title)
	story.Content = strings.TrimSpace(story.Content)
	story.AuthorName = strings.TrimSpace(story.AuthorName)
	story.CoverImage = strings.TrimSpace(story.CoverImage)

	var v validator
	if v.required("title", story.Title, "title") {
		v.maxLen("title", story.Title, "title", MaxTitleLen)
	}
	v.required("content", story.Content, "content")
	if v.required("authorName", story.AuthorName, "author name") {
		v.maxLen("authorName", story.AuthorName, "author name", MaxAuthorNameLen)
	}
	return v.err()
}

// ValidateComment trims the comment's text fields in place and checks them
// together with the story reference.
func ValidateComment(comment *model.Comment) error {
	comment.Text = strings.TrimSpace(comment.Text)
	comment.CommenterName = strings.TrimSpace(comment.CommenterName)

	var v validator
	if !ValidID(comment.StoryID) {
		v.fields = append(v.fields, FieldError{Field: "storyId", Message: "story id is invalid"})
	}
	if v.required("text", comment.Text, "comment text") {
		v.maxLen("text", comment.Text, "comment text", MaxCommentTextLen)
	}
	if v.required("commenterName", comment.CommenterName, "commenter name") {
		v.maxLen("commenterName", comment.CommenterName, "commenter name", MaxCommenterNameLen)
	}
	return v.err()
}
