package progress

import (
	"errors"
	"sync"

	"github.com/lessonforge/playback/internal/video"
)

// ErrNotFound is returned when no progress record exists for a video.
var ErrNotFound = errors.New("progress record not found")

// Store is the durable local persistence for per-video progress. Written on
// every mutation, read once at startup (or first access per video).
type Store interface {
	Get(videoID string) (video.ProgressRecord, error)
	Put(rec video.ProgressRecord) error
}

type memoryStore struct {
	mu   sync.RWMutex
	recs map[string]video.ProgressRecord
}

// NewInMemoryStore returns a Store backed by a map, for tests and for
// running without local durability.
func NewInMemoryStore() Store {
	return &memoryStore{recs: map[string]video.ProgressRecord{}}
}

func (m *memoryStore) Get(videoID string) (video.ProgressRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[videoID]
	if !ok {
		return video.ProgressRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *memoryStore) Put(rec video.ProgressRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.VideoID] = rec
	return nil
}
