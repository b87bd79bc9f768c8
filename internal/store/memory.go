package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

type memoryRecord struct {
	seq  int64
	data []byte
}

// MemoryStore is a process-local DocumentStore. Documents are held as JSON so
// callers never share memory with the store.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]memoryRecord
	counters    map[string]int64
	seq         int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]memoryRecord),
		counters:    make(map[string]int64),
	}
}

func (s *MemoryStore) collection(name string) map[string]memoryRecord {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]memoryRecord)
		s.collections[name] = c
	}
	return c
}

// Insert adds a new document
func (s *MemoryStore) Insert(ctx context.Context, collection, id string, doc interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, exists := c[id]; exists {
		return fmt.Errorf("%s %s: %w", collection, id, ErrDuplicate)
	}
	s.seq++
	c[id] = memoryRecord{seq: s.seq, data: raw}
	return nil
}

// Upsert inserts or fully replaces a document
func (s *MemoryStore) Upsert(ctx context.Context, collection, id string, doc interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	rec, exists := c[id]
	if !exists {
		s.seq++
		rec.seq = s.seq
	}
	rec.data = raw
	c[id] = rec
	return nil
}

// FindByID decodes the document with the given id
func (s *MemoryStore) FindByID(ctx context.Context, collection, id string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	rec, ok := s.collection(collection)[id]
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(rec.data, out)
}

// FindOne decodes the oldest document matching filter
func (s *MemoryStore) FindOne(ctx context.Context, collection string, filter Filter, out interface{}) error {
	matches, err := s.match(ctx, collection, filter, false)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return ErrNotFound
	}
	return json.Unmarshal(matches[0].data, out)
}

// Find decodes every document matching filter
func (s *MemoryStore) Find(ctx context.Context, collection string, filter Filter, opts FindOptions, out interface{}) error {
	matches, err := s.match(ctx, collection, filter, opts.NewestFirst)
	if err != nil {
		return err
	}

	rows := make([]string, len(matches))
	for i, m := range matches {
		rows[i] = string(m.data)
	}
	return decodeArray(rows, out)
}

// Replace overwrites an existing document
func (s *MemoryStore) Replace(ctx context.Context, collection, id string, doc interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	rec, ok := c[id]
	if !ok {
		return ErrNotFound
	}
	rec.data = raw
	c[id] = rec
	return nil
}

// Set merges fields into an existing document under the store lock
func (s *MemoryStore) Set(ctx context.Context, collection, id string, fields Fields, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	update, err := normalize(Filter(fields))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	rec, ok := c[id]
	if !ok {
		return ErrNotFound
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(rec.data, &doc); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	for k, v := range update {
		doc[k] = v
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	rec.data = raw
	c[id] = rec

	return json.Unmarshal(raw, out)
}

// Delete removes a document by id
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, ok := c[id]; !ok {
		return ErrNotFound
	}
	delete(c, id)
	return nil
}

// Increment applies delta under the store lock
func (s *MemoryStore) Increment(ctx context.Context, collection, id string, delta Delta, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	rec, ok := c[id]
	if !ok {
		return ErrNotFound
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(rec.data, &doc); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	current, _ := doc[delta.Field].(float64)
	next := current + delta.Amount
	if delta.Floor != nil && next < *delta.Floor {
		return ErrConditionFailed
	}
	doc[delta.Field] = next

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	rec.data = raw
	c[id] = rec

	return json.Unmarshal(raw, out)
}

// NextSequence increments the named counter
func (s *MemoryStore) NextSequence(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[name]++
	return s.counters[name], nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}

func (s *MemoryStore) match(ctx context.Context, collection string, filter Filter, newestFirst bool) ([]memoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	want, err := normalize(filter)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []memoryRecord
	for _, rec := range s.collection(collection) {
		if len(want) > 0 {
			var doc map[string]interface{}
			if err := json.Unmarshal(rec.data, &doc); err != nil {
				return nil, fmt.Errorf("failed to decode document: %w", err)
			}
			if !contains(doc, want) {
				continue
			}
		}
		matches = append(matches, rec)
	}

	sort.Slice(matches, func(i, j int) bool {
		if newestFirst {
			return matches[i].seq > matches[j].seq
		}
		return matches[i].seq < matches[j].seq
	})
	return matches, nil
}

// normalize round-trips the filter through JSON so typed values compare equal to decoded ones
func normalize(filter Filter) (map[string]interface{}, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode filter: %w", err)
	}
	return out, nil
}

func contains(doc, want map[string]interface{}) bool {
	for k, v := range want {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, v) {
			return false
		}
	}
	return true
}

// decodeArray stitches JSON documents into one array and decodes it into out
func decodeArray(rows []string, out interface{}) error {
	raw := "[" + strings.Join(rows, ",") + "]"
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to decode documents: %w", err)
	}
	return nil
}
