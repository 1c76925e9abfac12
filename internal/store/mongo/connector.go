// Package mongo stores stories and comments in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"

	"github.com/alphabot-ai/storyshelf/internal/store"
)

const (
	storiesCollection  = "stories"
	commentsCollection = "comments"
)

// DialFunc opens a client that is ready for use.
type DialFunc func(ctx context.Context) (*mongo.Client, error)

// Connector lazily opens one shared client and hands out its database.
// It is safe for concurrent use; concurrent first callers share a single
// connection attempt.
type Connector struct {
	dbName  string
	timeout time.Duration
	dial    DialFunc
	setup   func(ctx context.Context, db *mongo.Database) error

	group singleflight.Group

	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

// NewConnector returns a connector for uri. Nothing is dialed until the
// first call to Database.
func NewConnector(uri, dbName string, timeout time.Duration) *Connector {
	c := &Connector{dbName: dbName, timeout: timeout, setup: ensureIndexes}
	c.dial = func(ctx context.Context) (*mongo.Client, error) {
		if uri == "" {
			return nil, errors.New("missing connection string")
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return client, nil
	}
	return c
}

// NewConnectorWithDial is NewConnector with a custom dialer. Index creation
// is left to the dialer.
func NewConnectorWithDial(dbName string, timeout time.Duration, dial DialFunc) *Connector {
	return &Connector{dbName: dbName, timeout: timeout, dial: dial}
}

// Database returns the shared database handle, connecting on first use.
// Failures are returned as *store.ConnectionError and are not cached: the
// next call makes a fresh attempt.
func (c *Connector) Database(ctx context.Context) (*mongo.Database, error) {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()
	if db != nil {
		return db, nil
	}

	ch := c.group.DoChan("connect", func() (any, error) {
		return c.connect(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mongo.Database), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Connector) connect(ctx context.Context) (*mongo.Database, error) {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()
	if db != nil {
		return db, nil
	}

	// The attempt is shared by every waiter, so one caller going away must
	// not cancel it.
	ctx = context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	client, err := c.dial(ctx)
	if err != nil {
		return nil, &store.ConnectionError{Err: err}
	}
	db = client.Database(c.dbName)
	if c.setup != nil {
		if err := c.setup(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, &store.ConnectionError{Err: fmt.Errorf("create indexes: %w", err)}
		}
	}

	c.mu.Lock()
	c.client = client
	c.db = db
	c.mu.Unlock()
	return db, nil
}

// Close disconnects the shared client if one was opened.
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.db = nil
	c.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(storiesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return err
	}
	_, err := db.Collection(commentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "storyId", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	return err
}
