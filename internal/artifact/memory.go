package artifact

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps artifacts in process memory. It is the default store and
// is suitable whenever artifacts do not need to survive a restart.
type MemoryStore struct {
	mu sync.RWMutex
	// sessions maps session ID -> artifact name -> versions in ascending
	// version order.
	sessions map[string]map[string][]*Artifact
}

// NewMemoryStore creates an empty in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]map[string][]*Artifact),
	}
}

// Put stores a new version of the named artifact.
func (s *MemoryStore) Put(_ context.Context, sessionID, name, mimeType string, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName, ok := s.sessions[sessionID]
	if !ok {
		byName = make(map[string][]*Artifact)
		s.sessions[sessionID] = byName
	}

	version := len(byName[name]) + 1
	stored := &Artifact{
		SessionID: sessionID,
		Name:      name,
		Version:   version,
		MIMEType:  mimeType,
		Data:      append([]byte(nil), data...),
		CreatedAt: time.Now(),
	}
	byName[name] = append(byName[name], stored)
	return version, nil
}

// Get returns the latest version of the named artifact.
func (s *MemoryStore) Get(_ context.Context, sessionID, name string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.sessions[sessionID][name]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	latest := versions[len(versions)-1]

	out := *latest
	out.Data = append([]byte(nil), latest.Data...)
	return &out, nil
}

// List returns metadata for the latest version of each artifact in the session.
func (s *MemoryStore) List(_ context.Context, sessionID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byName := s.sessions[sessionID]
	infos := make([]Info, 0, len(byName))
	for _, versions := range byName {
		latest := versions[len(versions)-1]
		infos = append(infos, Info{
			Name:      latest.Name,
			Version:   latest.Version,
			MIMEType:  latest.MIMEType,
			Size:      int64(len(latest.Data)),
			CreatedAt: latest.CreatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// DeleteSession removes all artifacts belonging to the session.
func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
