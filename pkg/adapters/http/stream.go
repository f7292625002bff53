package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

var _ ports.DiffDispatcher = (*StreamManager)(nil)

// StreamManager fans StoreDiffs out to the SSE subscribers of each session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for sessionID. The returned func unsubscribes and closes it.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Subscribers returns the number of open streams for sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast sends msg to every subscriber of sessionID. Slow clients drop messages.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Dispatch implements ports.DiffDispatcher.
func (sm *StreamManager) Dispatch(diff *domain.StoreDiff) {
	if diff.IsEmpty() {
		return
	}
	bytes, err := json.Marshal(diff)
	if err != nil {
		sm.logger.Error("SSE: Failed to encode diff", "err", err, "session_id", diff.SessionID)
		return
	}
	sm.Broadcast(diff.SessionID, string(bytes))
}

// diffOf reconstructs the StoreDiff of a request from its Result.
func diffOf(sessionID string, res *domain.Result) *domain.StoreDiff {
	if res == nil || len(res.Changed) == 0 {
		return nil
	}
	changes := make(map[string]any, len(res.Changed))
	for _, k := range res.Changed {
		changes[k] = res.Store[k]
	}
	return &domain.StoreDiff{SessionID: sessionID, Changes: changes}
}
