package gateway

import (
	"sort"
	"sync"

	"meshgate/internal/mesh"
	"meshgate/pkg/logging"
)

// toolEntry binds a derived tool id to the capability it projects.
type toolEntry struct {
	toolID    string
	agentName string
	skill     mesh.Skill
}

// ToolRegistry is the single source of truth for which tools can be called
// right now. Mutations are atomic with respect to readers: resolve and list
// either see the full pre-mutation state or the full post-mutation state.
type ToolRegistry struct {
	mu      sync.RWMutex
	entries map[string]toolEntry // keyed by tool id
	byAgent map[string][]string  // agent name -> tool ids it owns

	filter *capabilityFilter

	// updateChan signals that the visible id set changed. Buffered with
	// capacity 1 and written non-blocking, so bursts of registry churn
	// coalesce into a single pending notification.
	updateChan chan struct{}
}

// NewToolRegistry creates an empty registry guarded by the given filter
// patterns.
func NewToolRegistry(includePatterns, excludePatterns []string) *ToolRegistry {
	return &ToolRegistry{
		entries:    make(map[string]toolEntry),
		byAgent:    make(map[string][]string),
		filter:     newCapabilityFilter(includePatterns, excludePatterns),
		updateChan: make(chan struct{}, 1),
	}
}

// UpdateChannel returns the channel signalled whenever the visible tool set
// changes. Consumers use it to push tools-changed notifications to clients.
func (r *ToolRegistry) UpdateChannel() <-chan struct{} {
	return r.updateChan
}

// notifyUpdate signals a registry change without blocking. If a notification
// is already pending the new one coalesces into it.
func (r *ToolRegistry) notifyUpdate() {
	select {
	case r.updateChan <- struct{}{}:
	default:
	}
}

// RegisterAgent derives tool ids for the agent's skills, applies the
// capability filter, and replaces the agent's entry set wholesale: surviving
// skills are inserted or refreshed, and ids the agent no longer derives are
// removed. It returns the ids that became newly visible; ids already present
// are refreshed in place and excluded from the result so callers can diff
// for notification purposes.
//
// A derived id that collides with an entry owned by a different agent is
// dropped and logged; the rest of the agent's registration proceeds. Two
// skills of the same agent sanitizing to one id keep the first and drop the
// second, also logged.
func (r *ToolRegistry) RegisterAgent(agent mesh.AgentDescriptor) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := make(map[string]bool, len(agent.Skills))
	var newlyVisible []string
	for _, skill := range agent.Skills {
		toolID := makeToolID(agent.Name, skill.Name)

		if !r.filter.isAllowed(agent.Name, skill.Name, toolID) {
			logging.Debug("Registry", "Skill %s/%s filtered out", agent.Name, skill.Name)
			continue
		}

		if owned[toolID] {
			logging.Warn("Registry", "Tool id %s derived twice within agent %s, skill %s dropped: %v",
				toolID, agent.Name, skill.Name, ErrDuplicateToolID)
			continue
		}

		if existing, ok := r.entries[toolID]; ok && existing.agentName != agent.Name {
			logging.Warn("Registry", "Tool id %s from agent %s collides with agent %s: %v",
				toolID, agent.Name, existing.agentName, ErrDuplicateToolID)
			continue
		}

		if _, ok := r.entries[toolID]; !ok {
			newlyVisible = append(newlyVisible, toolID)
		}
		r.entries[toolID] = toolEntry{toolID: toolID, agentName: agent.Name, skill: skill}
		owned[toolID] = true
	}

	var removed []string
	for _, id := range r.byAgent[agent.Name] {
		if !owned[id] {
			delete(r.entries, id)
			removed = append(removed, id)
		}
	}

	if len(owned) == 0 {
		delete(r.byAgent, agent.Name)
	} else {
		ids := make([]string, 0, len(owned))
		for id := range owned {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		r.byAgent[agent.Name] = ids
	}

	if len(newlyVisible) > 0 || len(removed) > 0 {
		sort.Strings(newlyVisible)
		r.notifyUpdate()
	}
	return newlyVisible
}

// DeregisterAgent removes every entry owned by the agent and returns the
// removed ids.
func (r *ToolRegistry) DeregisterAgent(agentName string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byAgent[agentName]
	if len(ids) == 0 {
		return nil
	}

	removed := make([]string, 0, len(ids))
	for _, id := range ids {
		if entry, ok := r.entries[id]; ok && entry.agentName == agentName {
			delete(r.entries, id)
			removed = append(removed, id)
		}
	}
	delete(r.byAgent, agentName)

	if len(removed) > 0 {
		sort.Strings(removed)
		r.notifyUpdate()
	}
	return removed
}

// Resolve looks up the capability behind a tool id. Returns ErrUnknownTool
// if the id is not currently registered.
func (r *ToolRegistry) Resolve(toolID string) (agentName string, skill mesh.Skill, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[toolID]
	if !ok {
		return "", mesh.Skill{}, ErrUnknownTool
	}
	return entry.agentName, entry.skill, nil
}

// ListToolIDs returns the currently visible tool ids, sorted.
func (r *ToolRegistry) ListToolIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ListEntries returns a snapshot of every visible entry, sorted by tool id.
func (r *ToolRegistry) ListEntries() []toolEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]toolEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].toolID < entries[j].toolID })
	return entries
}
