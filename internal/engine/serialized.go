package engine

import (
	"sync"

	"github.com/aidanlsb/wlh/internal/graph"
	"github.com/aidanlsb/wlh/internal/model"
	"github.com/aidanlsb/wlh/internal/queue"
)

// Serialized runs engine calls one at a time. Hosts that dispatch events
// from several goroutines (ticker, watcher) share one Serialized.
type Serialized struct {
	mu sync.Mutex
	e  *Engine
}

func NewSerialized(e *Engine) *Serialized {
	return &Serialized{e: e}
}

// Do runs fn with exclusive access to the engine.
func (s *Serialized) Do(fn func(*Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.e)
}

func (s *Serialized) DocumentSaved(id model.DocID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.e.DocumentSaved(id)
}

func (s *Serialized) DocumentDeleted(id model.DocID) (graph.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.e.DocumentDeleted(id)
}

func (s *Serialized) Drain() (queue.DrainReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.e.Drain()
}
