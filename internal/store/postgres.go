package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// PostgresStore keeps documents as JSONB rows keyed by (collection, id)
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new database store and applies the schema
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// GetDB returns the underlying database connection
func (s *PostgresStore) GetDB() *sqlx.DB {
	return s.db
}

// Insert adds a new document
func (s *PostgresStore) Insert(ctx context.Context, collection, id string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)",
		collection, id, string(raw))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s %s: %w", collection, id, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return nil
}

// Upsert inserts or fully replaces a document
func (s *PostgresStore) Upsert(ctx context.Context, collection, id string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		collection, id, string(raw))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s %s: %w", collection, id, ErrDuplicate)
		}
		return fmt.Errorf("failed to upsert into %s: %w", collection, err)
	}
	return nil
}

// FindByID decodes the document with the given id
func (s *PostgresStore) FindByID(ctx context.Context, collection, id string, out interface{}) error {
	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		"SELECT doc FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get from %s: %w", collection, err)
	}
	return json.Unmarshal(raw, out)
}

// FindOne decodes the oldest document matching filter
func (s *PostgresStore) FindOne(ctx context.Context, collection string, filter Filter, out interface{}) error {
	containment, err := encodeFilter(filter)
	if err != nil {
		return err
	}

	var raw []byte
	err = s.db.GetContext(ctx, &raw, `
		SELECT doc FROM documents
		WHERE collection = $1 AND doc @> $2::jsonb
		ORDER BY created_at LIMIT 1`,
		collection, containment)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get from %s: %w", collection, err)
	}
	return json.Unmarshal(raw, out)
}

// Find decodes every document matching filter using JSONB containment
func (s *PostgresStore) Find(ctx context.Context, collection string, filter Filter, opts FindOptions, out interface{}) error {
	containment, err := encodeFilter(filter)
	if err != nil {
		return err
	}

	order := "ASC"
	if opts.NewestFirst {
		order = "DESC"
	}

	var rows []string
	err = s.db.SelectContext(ctx, &rows, `
		SELECT doc FROM documents
		WHERE collection = $1 AND doc @> $2::jsonb
		ORDER BY created_at `+order,
		collection, containment)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", collection, err)
	}

	return decodeArray(rows, out)
}

// Replace overwrites an existing document
func (s *PostgresStore) Replace(ctx context.Context, collection, id string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE documents SET doc = $3, updated_at = NOW() WHERE collection = $1 AND id = $2",
		collection, id, string(raw))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s %s: %w", collection, id, ErrDuplicate)
		}
		return fmt.Errorf("failed to save %s: %w", collection, err)
	}
	return requireAffected(result)
}

// Set merges fields into the stored document with a single jsonb concatenation
func (s *PostgresStore) Set(ctx context.Context, collection, id string, fields Fields, out interface{}) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	var doc []byte
	err = s.db.GetContext(ctx, &doc, `
		UPDATE documents SET doc = doc || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2
		RETURNING doc`,
		collection, id, string(raw))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s %s: %w", collection, id, ErrDuplicate)
		}
		return fmt.Errorf("failed to update %s: %w", collection, err)
	}
	return json.Unmarshal(doc, out)
}

// Delete removes a document by id
func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	return requireAffected(result)
}

// Increment rewrites one numeric field in a single UPDATE so the row lock serializes deltas
func (s *PostgresStore) Increment(ctx context.Context, collection, id string, delta Delta, out interface{}) error {
	query := `
		UPDATE documents
		SET doc = jsonb_set(doc, ARRAY[$3::text], to_jsonb(COALESCE((doc->>$3::text)::numeric, 0) + $4::numeric)),
		    updated_at = NOW()
		WHERE collection = $1 AND id = $2`
	args := []interface{}{collection, id, delta.Field, delta.Amount}

	if delta.Floor != nil {
		query += " AND COALESCE((doc->>$3::text)::numeric, 0) + $4::numeric >= $5::numeric"
		args = append(args, *delta.Floor)
	}
	query += " RETURNING doc"

	var raw []byte
	err := s.db.GetContext(ctx, &raw, query, args...)
	if err == nil {
		return json.Unmarshal(raw, out)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to increment %s.%s: %w", collection, delta.Field, err)
	}
	if delta.Floor == nil {
		return ErrNotFound
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM documents WHERE collection = $1 AND id = $2)", collection, id); err != nil {
		return fmt.Errorf("failed to check %s: %w", collection, err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConditionFailed
}

// NextSequence upserts the counter row and returns the incremented value
func (s *PostgresStore) NextSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.GetContext(ctx, &value, `
		INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to advance counter %s: %w", name, err)
	}
	return value, nil
}

// Ping checks the connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close(_ context.Context) error {
	return s.db.Close()
}

func encodeFilter(filter Filter) (string, error) {
	if len(filter) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("failed to encode filter: %w", err)
	}
	return string(raw), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
