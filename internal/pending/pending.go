// Package pending maps single-use download tokens to prepared files.
package pending

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bfjia/VeryUsefulDownloadingTool/internal/infra/fs"
)

const tokenBytes = 16

// Entry is a prepared file awaiting retrieval by token.
type Entry struct {
	Path     string
	Filename string
}

type item struct {
	Entry
	claimed atomic.Bool
}

// Store holds pending downloads in process memory. Entries expire after the
// configured TTL and expiry deletes the backing file, so abandoned tokens
// cannot grow memory or disk without bound. Nothing is persisted across
// restarts.
type Store struct {
	cache *gocache.Cache
}

// New creates a Store with the given entry TTL and sweep interval.
func New(ttl, sweep time.Duration) *Store {
	c := gocache.New(ttl, sweep)
	c.OnEvicted(func(token string, v interface{}) {
		it, ok := v.(*item)
		if !ok || it.claimed.Load() {
			return
		}
		slog.Info("Pending download expired", "filename", it.Filename)
		fs.RemoveWithDir(it.Path)
	})
	return &Store{cache: c}
}

// Create mints an unpredictable URL-safe token for the file and registers it.
func (s *Store) Create(path, filename string) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	it := &item{Entry: Entry{Path: path, Filename: filename}}
	s.cache.Set(token, it, gocache.DefaultExpiration)
	return token, nil
}

// Consume atomically removes and returns the entry for a token. A second call
// with the same token misses; the caller now owns the file and its cleanup.
func (s *Store) Consume(token string) (Entry, bool) {
	v, ok := s.cache.Get(token)
	if !ok {
		return Entry{}, false
	}
	it, ok := v.(*item)
	if !ok {
		return Entry{}, false
	}
	// First claimant wins; the eviction hook skips claimed items so the
	// delete below does not destroy the file being handed over.
	if !it.claimed.CompareAndSwap(false, true) {
		return Entry{}, false
	}
	s.cache.Delete(token)
	return it.Entry, true
}

// Len returns the number of unclaimed entries.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
