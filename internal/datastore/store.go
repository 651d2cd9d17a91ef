// Package datastore keeps uploaded datasets in memory for a limited time so
// that several analyses can run against one upload.
package datastore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/chrissnell/structbreak/internal/dataset"
	"github.com/chrissnell/structbreak/internal/types"
)

// Entry is one stored upload. Tables are never modified after parsing, so an
// Entry may be shared by concurrent analyses.
type Entry struct {
	ID         string
	Name       string
	Table      *dataset.Table
	UploadedAt time.Time
	ExpiresAt  time.Time
}

// Store is an expiring in-memory dataset registry.
type Store struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// New creates a store whose entries expire after ttl of inactivity.
func New(ttl, cleanupInterval time.Duration) *Store {
	return &Store{
		cache: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// Put stores tbl under a fresh identifier.
func (s *Store) Put(tbl *dataset.Table) *Entry {
	now := time.Now()
	e := &Entry{
		ID:         uuid.NewString(),
		Name:       tbl.Name,
		Table:      tbl,
		UploadedAt: now,
		ExpiresAt:  now.Add(s.ttl),
	}
	s.cache.Set(e.ID, e, s.ttl)
	return e
}

// Get returns the entry for id and extends its lifetime.
func (s *Store) Get(id string) (*Entry, error) {
	val, found := s.cache.Get(id)
	if !found {
		return nil, fmt.Errorf("%w: %s", types.ErrDatasetNotFound, id)
	}

	e := val.(*Entry)
	touched := *e
	touched.ExpiresAt = time.Now().Add(s.ttl)
	s.cache.Set(id, &touched, s.ttl)
	return &touched, nil
}

// Delete removes id. Deleting an unknown id is an error.
func (s *Store) Delete(id string) error {
	if _, found := s.cache.Get(id); !found {
		return fmt.Errorf("%w: %s", types.ErrDatasetNotFound, id)
	}
	s.cache.Delete(id)
	return nil
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Flush removes every entry.
func (s *Store) Flush() {
	s.cache.Flush()
}
