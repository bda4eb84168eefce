package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/SpikeIreland/clarence-sub004/backend/config"
	"github.com/SpikeIreland/clarence-sub004/backend/model"
)

// SessionStore is an in-memory store for wizard sessions. The engine
// owns no persistent state; a session lives exactly as long as one
// wizard run.
type SessionStore struct {
	sessions    map[string]*model.Session
	mu          sync.RWMutex
	maxSessions int // Maximum sessions to keep, 0 = unlimited
}

var (
	globalStore *SessionStore
	storeOnce   sync.Once
)

// InitSessionStore initializes the global session store with configuration
func InitSessionStore(cfg *config.StoreConfig) {
	storeOnce.Do(func() {
		maxSessions := cfg.MaxSessions
		if maxSessions < 0 {
			maxSessions = 0
		}
		globalStore = &SessionStore{
			sessions:    make(map[string]*model.Session),
			maxSessions: maxSessions,
		}
		slog.Info("session store initialized", "max_sessions", maxSessions)
	})
}

// GetSessionStore returns the global session store
func GetSessionStore() *SessionStore {
	if globalStore == nil {
		// Fallback initialization with default settings
		globalStore = &SessionStore{
			sessions:    make(map[string]*model.Session),
			maxSessions: 100,
		}
	}
	return globalStore
}

func (s *SessionStore) Save(session *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.UpdatedAt = time.Now()
	s.sessions[session.ID] = session

	s.cleanupIfNeeded()
}

func (s *SessionStore) Get(id string) *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (s *SessionStore) GetByOwner(owner string) []*model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Session
	for _, sess := range s.sessions {
		if sess.Owner == owner {
			result = append(result, sess)
		}
	}
	return result
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// cleanupIfNeeded removes oldest sessions if store exceeds maxSessions
// Must be called with lock held
func (s *SessionStore) cleanupIfNeeded() {
	if s.maxSessions <= 0 {
		return // Unlimited
	}

	if len(s.sessions) <= s.maxSessions {
		return
	}

	sessions := make([]*model.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	removeCount := len(sessions) - s.maxSessions
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old session",
			"session_id", sessions[i].ID,
			"created_at", sessions[i].CreatedAt,
		)
		delete(s.sessions, sessions[i].ID)
	}
}

// Count returns the number of sessions in the store
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
