package player

import (
	"sync"

	"github.com/lessonforge/playback/internal/progress"
	"github.com/lessonforge/playback/internal/video"
)

// Manager owns one engine per loaded video.
type Manager struct {
	mu      sync.Mutex
	engines map[string]*Engine

	store  progress.Store
	submit Submitter
	opts   []Option
}

func NewManager(store progress.Store, submit Submitter, opts ...Option) *Manager {
	return &Manager{
		engines: map[string]*Engine{},
		store:   store,
		submit:  submit,
		opts:    opts,
	}
}

// Load returns the engine for the described video, creating it on first
// load. Reloading the same video keeps the existing engine and its state.
func (m *Manager) Load(desc video.VideoDescriptor) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.engines[desc.ID]; ok {
		return e
	}
	e := New(desc, m.store, m.submit, m.opts...)
	m.engines[desc.ID] = e
	return e
}

// Get returns the engine for a previously loaded video.
func (m *Manager) Get(videoID string) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engines[videoID]
	return e, ok
}
