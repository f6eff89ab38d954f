package gateway

import (
	"errors"
	"fmt"
)

// Sentinel errors for the local failure modes. These never involve the mesh:
// they are produced and returned synchronously by the gateway itself.
var (
	// ErrUnknownTool indicates the tool id is not currently registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrValidation indicates the call arguments fail the skill's
	// parameter schema.
	ErrValidation = errors.New("invalid arguments")

	// ErrUnknownTask indicates the task id has no pending task, either
	// because it never existed or its owning call already returned.
	ErrUnknownTask = errors.New("unknown task")

	// ErrBackendTimeout indicates an await exceeded its deadline. The task
	// itself is left untouched; callers decide whether to cancel.
	ErrBackendTimeout = errors.New("timed out waiting for mesh result")

	// ErrResourceForbidden indicates a resource address minted by a
	// different session.
	ErrResourceForbidden = errors.New("resource belongs to a different session")

	// ErrResourceNotFound indicates the address does not resolve to a
	// stored artifact within the session.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrDuplicateToolID indicates a registration-time tool id collision.
	// The colliding capability is dropped; the rest of the agent proceeds.
	ErrDuplicateToolID = errors.New("duplicate tool id")
)

// BackendError wraps a terminal error signal from the mesh. The message is
// passed through verbatim; the gateway does not interpret or retry it.
type BackendError struct {
	TaskID  string
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("mesh execution failed for task %s: %s", e.TaskID, e.Message)
}

// IsBackendError reports whether err originated as a terminal error signal
// from the mesh.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
