package mesh

import (
	"context"
	"fmt"
	"sync"

	"meshgate/pkg/logging"
)

// SkillHandler executes one loopback skill invocation. The progress callback
// emits an incremental text chunk; it may be called any number of times
// before the handler returns.
type SkillHandler func(ctx context.Context, args map[string]interface{}, progress func(string)) (*ResultPayload, error)

// Loopback is an in-process mesh: agents are Go functions registered under
// an agent/skill pair. It implements both Dispatcher and DiscoveryFeed and
// is the backing mesh for demo mode and for the test suite.
type Loopback struct {
	mu       sync.RWMutex
	agents   map[string]AgentDescriptor
	handlers map[string]SkillHandler
	running  map[string]context.CancelFunc

	signals chan Signal
	events  chan RegistryEvent

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// NewLoopback creates an empty loopback mesh.
func NewLoopback() *Loopback {
	return &Loopback{
		agents:   make(map[string]AgentDescriptor),
		handlers: make(map[string]SkillHandler),
		running:  make(map[string]context.CancelFunc),
		signals:  make(chan Signal, 64),
		events:   make(chan RegistryEvent, 16),
		closed:   make(chan struct{}),
	}
}

func handlerKey(agent, skill string) string {
	return agent + "/" + skill
}

// AddAgent registers an agent and its skill handlers and announces it on the
// discovery feed. Handlers are keyed by skill name; skills in the descriptor
// without a handler fail at dispatch time.
func (l *Loopback) AddAgent(desc AgentDescriptor, handlers map[string]SkillHandler) {
	l.mu.Lock()
	l.agents[desc.Name] = desc
	for skill, h := range handlers {
		l.handlers[handlerKey(desc.Name, skill)] = h
	}
	l.mu.Unlock()

	l.emitEvent(RegistryEvent{Kind: EventAgentRegistered, Agent: desc})
}

// RemoveAgent withdraws an agent and announces the deregistration.
func (l *Loopback) RemoveAgent(name string) {
	l.mu.Lock()
	desc, ok := l.agents[name]
	if ok {
		delete(l.agents, name)
		for _, skill := range desc.Skills {
			delete(l.handlers, handlerKey(name, skill.Name))
		}
	}
	l.mu.Unlock()

	if ok {
		l.emitEvent(RegistryEvent{Kind: EventAgentDeregistered, Agent: AgentDescriptor{Name: name}})
	}
}

// Dispatch runs the skill handler on its own goroutine and returns
// immediately. Signals for the task are delivered on the Signals channel.
func (l *Loopback) Dispatch(ctx context.Context, inv Invocation) error {
	l.mu.Lock()
	handler, ok := l.handlers[handlerKey(inv.AgentName, inv.SkillName)]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("no handler for %s/%s", inv.AgentName, inv.SkillName)
	}

	// The invocation outlives the dispatching call; detach from the
	// caller's context so a returned client cannot abort mesh-side work.
	runCtx, cancel := context.WithCancel(context.Background())
	l.running[inv.TaskID] = cancel
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			l.mu.Lock()
			delete(l.running, inv.TaskID)
			l.mu.Unlock()
			cancel()
		}()

		progress := func(chunk string) {
			l.emitSignal(Signal{TaskID: inv.TaskID, Kind: SignalProgress, Text: chunk})
		}

		payload, err := handler(runCtx, inv.Arguments, progress)
		if err != nil {
			l.emitSignal(Signal{TaskID: inv.TaskID, Kind: SignalError, Err: err.Error()})
			return
		}
		if payload == nil {
			payload = &ResultPayload{}
		}
		l.emitSignal(Signal{TaskID: inv.TaskID, Kind: SignalComplete, Payload: payload})
	}()

	return nil
}

// Cancel aborts the handler context for a running task. Tasks that already
// finished are ignored.
func (l *Loopback) Cancel(ctx context.Context, taskID string) error {
	l.mu.Lock()
	cancel, ok := l.running[taskID]
	l.mu.Unlock()

	if ok {
		cancel()
	}
	return nil
}

// Signals returns the signal delivery channel.
func (l *Loopback) Signals() <-chan Signal {
	return l.signals
}

// Events returns the discovery feed channel.
func (l *Loopback) Events() <-chan RegistryEvent {
	return l.events
}

// Close cancels all running handlers and closes the signal and event
// channels once the handlers have drained.
func (l *Loopback) Close() {
	l.closeOnce.Do(func() {
		close(l.closed)

		l.mu.Lock()
		for _, cancel := range l.running {
			cancel()
		}
		l.mu.Unlock()

		l.wg.Wait()
		close(l.signals)
		close(l.events)
	})
}

func (l *Loopback) emitSignal(sig Signal) {
	select {
	case <-l.closed:
	case l.signals <- sig:
	}
}

func (l *Loopback) emitEvent(ev RegistryEvent) {
	select {
	case <-l.closed:
		logging.Debug("Mesh", "Dropping discovery event for %s: loopback closed", ev.Agent.Name)
	case l.events <- ev:
	}
}
