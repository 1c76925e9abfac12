package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/alphabot-ai/storyshelf/internal/model"
	"github.com/alphabot-ai/storyshelf/internal/store"
)

// Field names are camelCase to stay readable from the mongo shell.
type storyDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	Title      string             `bson:"title"`
	Content    string             `bson:"content"`
	CoverImage string             `bson:"coverImage,omitempty"`
	AuthorName string             `bson:"authorName"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

type commentDoc struct {
	ID            primitive.ObjectID `bson:"_id"`
	StoryID       primitive.ObjectID `bson:"storyId"`
	Text          string             `bson:"text"`
	CommenterName string             `bson:"commenterName"`
	Timestamp     time.Time          `bson:"timestamp"`
}

var storySummaryProjection = bson.D{
	{Key: "title", Value: 1},
	{Key: "content", Value: 1},
	{Key: "coverImage", Value: 1},
	{Key: "authorName", Value: 1},
	{Key: "createdAt", Value: 1},
}

type Store struct {
	conn *Connector
	now  func() time.Time
}

func New(conn *Connector) *Store {
	return &Store{conn: conn, now: store.Now}
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.conn.Close(ctx)
}

func (s *Store) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := s.conn.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

func (s *Store) CreateStory(ctx context.Context, story *model.Story) error {
	if err := store.ValidateStory(story); err != nil {
		return err
	}
	coll, err := s.collection(ctx, storiesCollection)
	if err != nil {
		return err
	}
	doc := storyDoc{
		ID:         primitive.NewObjectID(),
		Title:      story.Title,
		Content:    story.Content,
		CoverImage: story.CoverImage,
		AuthorName: story.AuthorName,
		CreatedAt:  s.now(),
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert story: %w", err)
	}
	*story = doc.model()
	return nil
}

func (s *Store) GetStory(ctx context.Context, id string) (model.Story, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return model.Story{}, err
	}
	coll, err := s.collection(ctx, storiesCollection)
	if err != nil {
		return model.Story{}, err
	}
	var doc storyDoc
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Story{}, store.ErrNotFound
		}
		return model.Story{}, fmt.Errorf("find story: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) ListStories(ctx context.Context) ([]model.Story, error) {
	coll, err := s.collection(ctx, storiesCollection)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(storySummaryProjection)
	cur, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find stories: %w", err)
	}
	var docs []storyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode stories: %w", err)
	}
	stories := make([]model.Story, 0, len(docs))
	for _, doc := range docs {
		stories = append(stories, doc.model())
	}
	return stories, nil
}

func (s *Store) CreateComment(ctx context.Context, comment *model.Comment) error {
	if err := store.ValidateComment(comment); err != nil {
		return err
	}
	storyID, err := store.ParseID(comment.StoryID)
	if err != nil {
		return err
	}
	coll, err := s.collection(ctx, commentsCollection)
	if err != nil {
		return err
	}
	doc := commentDoc{
		ID:            primitive.NewObjectID(),
		StoryID:       storyID,
		Text:          comment.Text,
		CommenterName: comment.CommenterName,
		Timestamp:     s.now(),
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	*comment = doc.model()
	return nil
}

func (s *Store) ListComments(ctx context.Context, storyID string) ([]model.Comment, error) {
	comments := make([]model.Comment, 0)
	oid, err := store.ParseID(storyID)
	if err != nil {
		return comments, nil
	}
	coll, err := s.collection(ctx, commentsCollection)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := coll.Find(ctx, bson.M{"storyId": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}
	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	for _, doc := range docs {
		comments = append(comments, doc.model())
	}
	return comments, nil
}

func (d storyDoc) model() model.Story {
	return model.Story{
		ID:         d.ID.Hex(),
		Title:      d.Title,
		Content:    d.Content,
		CoverImage: d.CoverImage,
		AuthorName: d.AuthorName,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

func (d commentDoc) model() model.Comment {
	return model.Comment{
		ID:            d.ID.Hex(),
		StoryID:       d.StoryID.Hex(),
		Text:          d.Text,
		CommenterName: d.CommenterName,
		Timestamp:     d.Timestamp.UTC(),
	}
}
