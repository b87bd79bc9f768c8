package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no document matches an id or filter
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when an insert collides with an existing id or unique index
	ErrDuplicate = errors.New("duplicate document")
	// ErrConditionFailed is returned when a conditional increment would cross its floor
	ErrConditionFailed = errors.New("update condition not met")
)

// Filter matches documents whose top-level fields equal the given values
type Filter map[string]interface{}

// FindOptions controls ordering of Find results
type FindOptions struct {
	NewestFirst bool
}

// Fields maps top-level document fields to their new values
type Fields map[string]interface{}

// Delta describes an atomic numeric adjustment of a single field.
// When Floor is set the adjustment is only applied if the result stays >= *Floor.
type Delta struct {
	Field  string
	Amount float64
	Floor  *float64
}

// DocumentStore is the persistence contract every backend implements.
// Documents are keyed by their string id within a collection.
type DocumentStore interface {
	Insert(ctx context.Context, collection, id string, doc interface{}) error
	Upsert(ctx context.Context, collection, id string, doc interface{}) error
	FindByID(ctx context.Context, collection, id string, out interface{}) error
	FindOne(ctx context.Context, collection string, filter Filter, out interface{}) error
	// Find decodes all matching documents into out, which must point to a slice
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions, out interface{}) error
	Replace(ctx context.Context, collection, id string, doc interface{}) error
	// Set overwrites only the given fields and decodes the updated document into out
	Set(ctx context.Context, collection, id string, fields Fields, out interface{}) error
	Delete(ctx context.Context, collection, id string) error
	// Increment applies delta atomically and decodes the updated document into out
	Increment(ctx context.Context, collection, id string, delta Delta, out interface{}) error
	// NextSequence atomically increments the named counter and returns its new value
	NextSequence(ctx context.Context, name string) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and configures a backend
type Options struct {
	Driver      string
	MongoURL    string
	MongoDB     string
	PostgresURL string
}

// Open connects the configured backend
func Open(ctx context.Context, opts Options) (DocumentStore, error) {
	switch opts.Driver {
	case DriverMongo, "":
		return NewMongoStore(ctx, opts.MongoURL, opts.MongoDB)
	case DriverPostgres:
		return NewPostgresStore(ctx, opts.PostgresURL)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", opts.Driver)
	}
}
