package mesh

import (
	"context"
	"encoding/json"
)

// Skill describes one invocable capability offered by an agent on the mesh.
// Skills are announced through the discovery feed and are immutable once
// announced; an agent that changes its skills is re-announced wholesale.
type Skill struct {
	Name        string                 `yaml:"name" json:"name"`
	Description string                 `yaml:"description" json:"description"`
	Parameters  map[string]interface{} `yaml:"parameters" json:"parameters"`

	// Detached marks a fire-and-forget skill: the caller receives an
	// acknowledgement as soon as the invocation is dispatched, without
	// waiting for a terminal signal.
	Detached bool `yaml:"detached" json:"detached,omitempty"`
}

// AgentDescriptor announces an agent and its full skill set.
type AgentDescriptor struct {
	Name   string  `yaml:"name" json:"name"`
	Skills []Skill `yaml:"skills" json:"skills"`
}

// EventKind distinguishes discovery feed events.
type EventKind int

const (
	EventAgentRegistered EventKind = iota
	EventAgentDeregistered
)

// RegistryEvent is one discovery feed entry. For EventAgentDeregistered only
// the agent name is meaningful.
type RegistryEvent struct {
	Kind  EventKind
	Agent AgentDescriptor
}

// SignalKind distinguishes signals delivered from the execution fabric.
type SignalKind int

const (
	// SignalProgress carries an incremental text chunk. Zero or more
	// progress signals may precede the terminal signal.
	SignalProgress SignalKind = iota
	// SignalComplete is the successful terminal signal.
	SignalComplete
	// SignalError is the failing terminal signal.
	SignalError
)

// ResultItem is one artifact produced by a skill invocation. Either Data
// (raw bytes with a media type) or Structured (a plain data item with no
// binary payload) is set, never both.
type ResultItem struct {
	Name       string
	MIMEType   string
	Data       []byte
	Structured json.RawMessage
}

// ResultPayload is the body of a successful terminal signal.
type ResultPayload struct {
	// Text is the agent's final textual answer. It may duplicate earlier
	// progress chunks; the correlator treats the progress buffer as
	// authoritative when any chunks were received.
	Text  string
	Items []ResultItem
}

// Signal is one entry on the fabric's delivery channel. Signals for
// different task IDs carry no ordering relationship; signals for the same
// task ID arrive in emission order.
type Signal struct {
	TaskID  string
	Kind    SignalKind
	Text    string
	Payload *ResultPayload
	Err     string
}

// Invocation is a fire-and-forget work request keyed by task ID. The run
// context ID scopes the fabric's execution history: it composes the session
// and the task, so the fabric has no memory of prior calls on the session.
type Invocation struct {
	TaskID       string
	RunContextID string
	AgentName    string
	SkillName    string
	Arguments    map[string]interface{}
}

// Dispatcher is the gateway's view of the mesh execution fabric.
// Dispatch must not block on execution: it hands the invocation to the
// fabric and returns. Results arrive asynchronously on Signals.
type Dispatcher interface {
	// Dispatch submits an invocation to the fabric. A non-nil error means
	// the invocation never left the process.
	Dispatch(ctx context.Context, inv Invocation) error

	// Cancel requests that work for the task be abandoned. Best effort:
	// the fabric may have already finished or may ignore the request.
	Cancel(ctx context.Context, taskID string) error

	// Signals returns the delivery channel for progress and terminal
	// signals. The channel is owned by the dispatcher and closed on
	// shutdown.
	Signals() <-chan Signal
}

// DiscoveryFeed announces agents joining and leaving the mesh.
type DiscoveryFeed interface {
	Events() <-chan RegistryEvent
}
