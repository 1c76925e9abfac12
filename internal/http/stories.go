package httpapp

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alphabot-ai/storyshelf/internal/model"
	"github.com/alphabot-ai/storyshelf/internal/store"
)

var (
	errInvalidBody    = errors.New("Invalid request body")
	errInvalidStoryID = errors.New("Invalid story ID")
	errStoryNotFound  = errors.New("Story not found")
)

// handleListStories godoc
//
//	@Summary		List stories
//	@Description	All stories, newest first, without comments.
//	@Tags			Stories
//	@Produce		json
//	@Success		200	{object}	envelope{data=[]model.Story}
//	@Failure		500	{object}	envelope	"Failed to fetch stories"
//	@Router			/api/stories [get]
func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := s.store.ListStories(r.Context())
	if err != nil {
		s.internalError(w, r, err, "Failed to fetch stories")
		return
	}
	writeData(w, http.StatusOK, stories)
}

// handleCreateStory godoc
//
//	@Summary		Create a story
//	@Tags			Stories
//	@Accept			json
//	@Produce		json
//	@Param			story	body		object{title=string,content=string,coverImage=string,authorName=string}	true	"Story data"
//	@Success		201		{object}	envelope{data=model.Story}
//	@Failure		400		{object}	envelope	"Validation error"
//	@Failure		429		{object}	envelope	"Rate limited"
//	@Failure		500		{object}	envelope	"Failed to create story"
//	@Router			/api/stories [post]
func (s *Server) handleCreateStory(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "story", s.cfg.RateLimits.StoryPerMinute) {
		return
	}
	var req struct {
		Title      string `json:"title"`
		Content    string `json:"content"`
		CoverImage string `json:"coverImage"`
		AuthorName string `json:"authorName"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	story := model.Story{
		Title:      req.Title,
		Content:    req.Content,
		CoverImage: req.CoverImage,
		AuthorName: req.AuthorName,
	}
	if err := s.store.CreateStory(r.Context(), &story); err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr)
			return
		}
		s.internalError(w, r, err, "Failed to create story")
		return
	}
	writeData(w, http.StatusCreated, story)
}

// handleGetStory godoc
//
//	@Summary		Get a story
//	@Description	A story with its comments, newest first.
//	@Tags			Stories
//	@Produce		json
//	@Param			id	path		string	true	"Story ID"
//	@Success		200	{object}	envelope{data=model.StoryDetail}
//	@Failure		400	{object}	envelope	"Invalid story ID"
//	@Failure		404	{object}	envelope	"Story not found"
//	@Failure		500	{object}	envelope	"Failed to fetch story"
//	@Router			/api/stories/{id} [get]
func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	id, ok := storyID(w, r)
	if !ok {
		return
	}
	story, err := s.store.GetStory(r.Context(), id)
	if err != nil {
		s.storyLookupError(w, r, err, "Failed to fetch story")
		return
	}
	comments, err := s.store.ListComments(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err, "Failed to fetch story")
		return
	}
	writeData(w, http.StatusOK, model.StoryDetail{Story: story, Comments: comments})
}

// handleListComments godoc
//
//	@Summary	List comments on a story
//	@Tags		Comments
//	@Produce	json
//	@Param		id	path		string	true	"Story ID"
//	@Success	200	{object}	envelope{data=[]model.Comment}
//	@Failure	400	{object}	envelope	"Invalid story ID"
//	@Failure	500	{object}	envelope	"Failed to fetch comments"
//	@Router		/api/stories/{id}/comments [get]
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := storyID(w, r)
	if !ok {
		return
	}
	comments, err := s.store.ListComments(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err, "Failed to fetch comments")
		return
	}
	writeData(w, http.StatusOK, comments)
}

// handleCreateComment godoc
//
//	@Summary	Comment on a story
//	@Tags		Comments
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string								true	"Story ID"
//	@Param		comment	body		object{text=string,commenterName=string}	true	"Comment data"
//	@Success	201		{object}	envelope{data=model.Comment}
//	@Failure	400		{object}	envelope	"Invalid story ID or validation error"
//	@Failure	404		{object}	envelope	"Story not found"
//	@Failure	429		{object}	envelope	"Rate limited"
//	@Failure	500		{object}	envelope	"Failed to create comment"
//	@Router		/api/stories/{id}/comments [post]
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "comment", s.cfg.RateLimits.CommentPerMinute) {
		return
	}
	id, ok := storyID(w, r)
	if !ok {
		return
	}
	var req struct {
		Text          string `json:"text"`
		CommenterName string `json:"commenterName"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	if _, err := s.store.GetStory(r.Context(), id); err != nil {
		s.storyLookupError(w, r, err, "Failed to create comment")
		return
	}
	comment := model.Comment{StoryID: id, Text: req.Text, CommenterName: req.CommenterName}
	if err := s.store.CreateComment(r.Context(), &comment); err != nil {
		var verr *store.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr)
			return
		}
		s.internalError(w, r, err, "Failed to create comment")
		return
	}
	writeData(w, http.StatusCreated, comment)
}

// storyID extracts the {id} path variable, answering 400 when it is not a
// well-formed identifier.
func storyID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if !store.ValidID(id) {
		writeError(w, http.StatusBadRequest, errInvalidStoryID)
		return "", false
	}
	return id, true
}

func (s *Server) storyLookupError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, errStoryNotFound)
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, errInvalidStoryID)
	default:
		s.internalError(w, r, err, message)
	}
}
