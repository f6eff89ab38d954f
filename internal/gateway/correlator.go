package gateway

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meshgate/internal/mesh"
	"meshgate/pkg/logging"
)

// TaskResult is the outcome of one task, written exactly once.
type TaskResult struct {
	// Text is the final textual content: the progress buffer, joined in
	// emission order.
	Text string

	// Items carries the non-textual result items from the terminal
	// payload, if any.
	Items []mesh.ResultItem

	// Err is the terminal error signal from the mesh, if the task failed.
	Err error

	// Cancelled is true when the task was cancelled before a terminal
	// signal arrived.
	Cancelled bool
}

// pendingTask tracks one in-flight invocation between submit and its terminal
// transition. The terminal write happens exactly once; done is closed to wake
// awaiters.
type pendingTask struct {
	taskID    string
	sessionID string
	createdAt time.Time

	// onProgress, when set, forwards each chunk to the awaiting
	// connection as it arrives. May be nil.
	onProgress func(text string)

	mu       sync.Mutex
	buffered []string
	result   *TaskResult

	resolveOnce sync.Once
	done        chan struct{}
}

// resolve performs the single terminal write. Later calls are no-ops.
func (t *pendingTask) resolve(build func(bufferedText string) *TaskResult) bool {
	won := false
	t.resolveOnce.Do(func() {
		t.mu.Lock()
		t.result = build(strings.Join(t.buffered, ""))
		t.mu.Unlock()

		close(t.done)
		won = true
	})
	return won
}

// TaskCorrelator bridges the fire-and-forget mesh dispatch to the blocking
// request/await shape of a client tool call. It owns all pending tasks and is
// the only component that touches them.
type TaskCorrelator struct {
	registry   *ToolRegistry
	dispatcher mesh.Dispatcher

	mu    sync.RWMutex
	tasks map[string]*pendingTask
}

// NewTaskCorrelator creates a correlator submitting through the given
// dispatcher and resolving tool ids against the given registry.
func NewTaskCorrelator(registry *ToolRegistry, dispatcher mesh.Dispatcher) *TaskCorrelator {
	return &TaskCorrelator{
		registry:   registry,
		dispatcher: dispatcher,
		tasks:      make(map[string]*pendingTask),
	}
}

// Run consumes the dispatcher's signal channel and routes each signal to its
// pending task, until the context is cancelled or the channel closes. Signals
// for different tasks carry no ordering relation; per-task order is the
// channel's delivery order.
func (c *TaskCorrelator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-c.dispatcher.Signals():
			if !ok {
				return nil
			}
			c.route(sig)
		}
	}
}

func (c *TaskCorrelator) route(sig mesh.Signal) {
	switch sig.Kind {
	case mesh.SignalProgress:
		c.OnProgress(sig.TaskID, sig.Text)
	case mesh.SignalComplete:
		c.OnComplete(sig.TaskID, sig.Payload)
	case mesh.SignalError:
		c.OnError(sig.TaskID, sig.Err)
	default:
		logging.Warn("Correlator", "Dropping signal of unknown kind %d for task %s", sig.Kind, sig.TaskID)
	}
}

// Submit validates the tool id, creates the pending task, and dispatches the
// invocation tagged with a fresh task id. The pending task is inserted before
// the invocation leaves the process, so a terminal signal can never arrive
// ahead of the task it resolves.
//
// onProgress, when non-nil, is invoked for every progress chunk in emission
// order, from the signal-delivery goroutine.
func (c *TaskCorrelator) Submit(ctx context.Context, sessionID, toolID string, arguments map[string]interface{}, onProgress func(text string)) (string, error) {
	agentName, skill, err := c.registry.Resolve(toolID)
	if err != nil {
		return "", err
	}

	taskID := uuid.NewString()
	task := &pendingTask{
		taskID:     taskID,
		sessionID:  sessionID,
		createdAt:  time.Now(),
		onProgress: onProgress,
		done:       make(chan struct{}),
	}

	c.mu.Lock()
	c.tasks[taskID] = task
	c.mu.Unlock()

	inv := mesh.Invocation{
		TaskID:       taskID,
		RunContextID: runContextID(sessionID, taskID),
		AgentName:    agentName,
		SkillName:    skill.Name,
		Arguments:    arguments,
	}
	if err := c.dispatcher.Dispatch(ctx, inv); err != nil {
		c.Remove(taskID)
		return "", err
	}

	logging.Debug("Correlator", "Submitted task %s for tool %s (session %s)",
		taskID, toolID, logging.TruncateSessionID(sessionID))
	return taskID, nil
}

// AwaitResult blocks until the task's terminal transition, the timeout, or
// context cancellation. Timing out does not mutate the task: a later terminal
// signal still resolves it, and a second await (internal bookkeeping) can
// still observe the result. Timeout and cancellation are distinct; a caller
// wanting both must cancel explicitly after a timeout.
func (c *TaskCorrelator) AwaitResult(ctx context.Context, taskID string, timeout time.Duration) (*TaskResult, error) {
	c.mu.RLock()
	task, ok := c.tasks[taskID]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownTask
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-task.done:
		return task.result, nil
	case <-timer.C:
		return nil, ErrBackendTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnProgress appends a chunk to the task's buffer and forwards it to the
// awaiting connection when incremental delivery is wired. Chunks arriving
// after the terminal transition are dropped.
func (c *TaskCorrelator) OnProgress(taskID, chunk string) {
	task := c.lookup(taskID)
	if task == nil {
		logging.Debug("Correlator", "Progress for unknown task %s dropped", taskID)
		return
	}

	task.mu.Lock()
	terminal := task.result != nil
	if !terminal {
		task.buffered = append(task.buffered, chunk)
	}
	task.mu.Unlock()
	if terminal {
		return
	}

	if task.onProgress != nil {
		task.onProgress(chunk)
	}
}

// OnComplete performs the terminal success write. The final text is the
// progress buffer; payload text duplicating earlier progress is ignored, and
// payload text the buffer has not seen is appended.
func (c *TaskCorrelator) OnComplete(taskID string, payload *mesh.ResultPayload) {
	task := c.lookup(taskID)
	if task == nil {
		logging.Debug("Correlator", "Completion for unknown task %s dropped", taskID)
		return
	}

	won := task.resolve(func(bufferedText string) *TaskResult {
		result := &TaskResult{Text: bufferedText}
		if payload != nil {
			if payload.Text != "" && !strings.Contains(bufferedText, payload.Text) {
				result.Text += payload.Text
			}
			result.Items = payload.Items
		}
		return result
	})
	if !won {
		logging.Warn("Correlator", "Task %s already terminal, ignoring completion", taskID)
	}
}

// OnError performs the terminal error write. The mesh error is surfaced
// verbatim; the correlator neither interprets nor retries it.
func (c *TaskCorrelator) OnError(taskID, message string) {
	task := c.lookup(taskID)
	if task == nil {
		logging.Debug("Correlator", "Error for unknown task %s dropped", taskID)
		return
	}

	won := task.resolve(func(bufferedText string) *TaskResult {
		return &TaskResult{
			Text: bufferedText,
			Err:  &BackendError{TaskID: taskID, Message: message},
		}
	})
	if !won {
		logging.Warn("Correlator", "Task %s already terminal, ignoring error signal", taskID)
	}
}

// Cancel transitions a non-terminal task to cancelled and sends a best-effort
// cancellation notice to the mesh. Work already in flight is not guaranteed
// to stop.
func (c *TaskCorrelator) Cancel(ctx context.Context, taskID string) error {
	task := c.lookup(taskID)
	if task == nil {
		return ErrUnknownTask
	}

	won := task.resolve(func(bufferedText string) *TaskResult {
		return &TaskResult{Text: bufferedText, Cancelled: true}
	})
	if !won {
		// Already terminal; nothing to do.
		return nil
	}

	if err := c.dispatcher.Cancel(ctx, taskID); err != nil {
		logging.Warn("Correlator", "Best-effort cancel of task %s failed: %v", taskID, err)
	}
	return nil
}

// Remove drops the pending task once its owning call has returned. Signals
// arriving afterwards are logged and dropped.
func (c *TaskCorrelator) Remove(taskID string) {
	c.mu.Lock()
	delete(c.tasks, taskID)
	c.mu.Unlock()
}

// PendingCount reports the number of in-flight tasks.
func (c *TaskCorrelator) PendingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tasks)
}

func (c *TaskCorrelator) lookup(taskID string) *pendingTask {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tasks[taskID]
}

// runContextID composes the ephemeral execution identity for one call. The
// mesh scopes its execution history to this id, so each call starts with no
// memory of prior calls in the same session.
func runContextID(sessionID, taskID string) string {
	return sessionID + ":" + taskID
}
