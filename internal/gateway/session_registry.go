package gateway

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"meshgate/pkg/logging"
)

const (
	// MaxConnectionIDLength bounds the connection ids accepted from the
	// transport. Prevents memory exhaustion from hostile ids.
	MaxConnectionIDLength = 256

	// DefaultMaxSessions limits concurrent sessions as DoS protection.
	DefaultMaxSessions = 10000
)

// sessionNamespace is the UUIDv5 namespace for deriving session ids from
// connection ids. Fixed so the same connection always resumes the same
// session across gateway restarts.
var sessionNamespace = uuid.MustParse("7c9f8d2a-1b4e-4c6a-9e3f-5a8b2d7c4e1f")

// Session is the persistent identity of one client connection. It outlives
// the ephemeral run context of any single call; the artifact index is the
// only state that carries across calls.
type Session struct {
	SessionID    string
	ConnectionID string
	CreatedAt    time.Time

	mu           sync.RWMutex
	lastActivity time.Time
	// artifacts maps filename to the latest stored version.
	artifacts map[string]int
}

// UpdateActivity refreshes the idle-eviction clock.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// RecordArtifact notes the latest version of a filename in the session's
// artifact index.
func (s *Session) RecordArtifact(filename string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[filename] = version
	s.lastActivity = time.Now()
}

// ArtifactVersion returns the latest known version of a filename.
func (s *Session) ArtifactVersion(filename string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.artifacts[filename]
	return v, ok
}

// ArtifactNames returns the filenames in the session's index, sorted.
func (s *Session) ArtifactNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.artifacts))
	for name := range s.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SessionManager owns all sessions. It is an explicitly constructed
// component with no process-wide state; its lifetime is tied to the owning
// server.
//
// Idle eviction is opt-in: with a zero idle timeout sessions live until the
// manager stops, matching the baseline behavior. Deployments that run long
// enough to care set an idle timeout and evicted sessions drop their
// artifacts too.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session // sessionID -> session

	idleTimeout time.Duration // 0 disables eviction
	maxSessions int
	onEvict     func(sessionID string)
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewSessionManager creates a session manager. idleTimeout of zero disables
// idle eviction. onEvict, when non-nil, runs for every evicted session so the
// caller can drop its artifacts.
func NewSessionManager(idleTimeout time.Duration, onEvict func(sessionID string)) *SessionManager {
	sm := &SessionManager{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		maxSessions: DefaultMaxSessions,
		onEvict:     onEvict,
		stopCleanup: make(chan struct{}),
	}
	if idleTimeout > 0 {
		go sm.cleanupLoop()
	}
	return sm
}

// SessionIDFor derives the deterministic session id for a connection id.
// Pure; the same connection id always maps to the same session id.
func SessionIDFor(connectionID string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(connectionID)).String()
}

// ValidateConnectionID rejects empty or oversized connection ids.
func ValidateConnectionID(connectionID string) error {
	if connectionID == "" {
		return fmt.Errorf("connection ID cannot be empty")
	}
	if len(connectionID) > MaxConnectionIDLength {
		return fmt.Errorf("connection ID exceeds maximum length of %d", MaxConnectionIDLength)
	}
	return nil
}

// GetOrCreateSession returns the session for a connection, creating it on
// first sight. Idempotent: the same connection id always yields the same
// session.
func (sm *SessionManager) GetOrCreateSession(connectionID string) (*Session, error) {
	if err := ValidateConnectionID(connectionID); err != nil {
		logging.Warn("SessionManager", "Rejected invalid connection ID: %v", err)
		return nil, err
	}

	sessionID := SessionIDFor(connectionID)

	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
			logging.Warn("SessionManager", "Session limit reached (%d), rejecting connection %s",
				sm.maxSessions, logging.TruncateSessionID(connectionID))
			return nil, fmt.Errorf("session limit exceeded: %d sessions", sm.maxSessions)
		}

		session = &Session{
			SessionID:    sessionID,
			ConnectionID: connectionID,
			CreatedAt:    time.Now(),
			lastActivity: time.Now(),
			artifacts:    make(map[string]int),
		}
		sm.sessions[sessionID] = session
		logging.Debug("SessionManager", "Created session %s for connection %s (total: %d)",
			logging.TruncateSessionID(sessionID), logging.TruncateSessionID(connectionID), len(sm.sessions))
	} else {
		session.UpdateActivity()
	}
	return session, nil
}

// GetSession looks a session up by its session id.
func (sm *SessionManager) GetSession(sessionID string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if exists {
		session.UpdateActivity()
	}
	return session, exists
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Stop stops the cleanup goroutine and drops all sessions.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stopCleanup) })

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions = make(map[string]*Session)
	logging.Debug("SessionManager", "Session manager stopped")
}

// minCleanupInterval keeps very short idle timeouts from spinning the
// cleanup loop.
const minCleanupInterval = time.Second

func (sm *SessionManager) cleanupLoop() {
	interval := sm.idleTimeout / 2
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.evictIdle()
		case <-sm.stopCleanup:
			return
		}
	}
}

func (sm *SessionManager) evictIdle() {
	if sm.idleTimeout <= 0 {
		return
	}
	now := time.Now()
	var evicted []string

	sm.mu.Lock()
	for sessionID, session := range sm.sessions {
		session.mu.RLock()
		idle := now.Sub(session.lastActivity)
		session.mu.RUnlock()
		if idle > sm.idleTimeout {
			delete(sm.sessions, sessionID)
			evicted = append(evicted, sessionID)
		}
	}
	sm.mu.Unlock()

	for _, sessionID := range evicted {
		if sm.onEvict != nil {
			sm.onEvict(sessionID)
		}
	}
	if len(evicted) > 0 {
		logging.Debug("SessionManager", "Evicted %d idle sessions", len(evicted))
	}
}
