package artifact

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested artifact does not exist in the
// store (or exists under a different session).
var ErrNotFound = errors.New("artifact not found")

// Artifact is one stored blob. Artifacts are versioned per (session, name):
// writing the same name again creates a new version, and reads return the
// latest one.
type Artifact struct {
	SessionID string
	Name      string
	Version   int
	MIMEType  string
	Data      []byte
	CreatedAt time.Time
}

// Info is artifact metadata without the payload.
type Info struct {
	Name      string
	Version   int
	MIMEType  string
	Size      int64
	CreatedAt time.Time
}

// Store persists session-scoped artifacts. Implementations must be safe for
// concurrent use; the gateway writes from tool-call handlers and reads from
// resource handlers on independent goroutines.
type Store interface {
	// Put stores a new version of the named artifact and returns the
	// version number it was assigned (starting at 1).
	Put(ctx context.Context, sessionID, name, mimeType string, data []byte) (int, error)

	// Get returns the latest version of the named artifact.
	// Returns ErrNotFound if the session has no artifact by that name.
	Get(ctx context.Context, sessionID, name string) (*Artifact, error)

	// List returns metadata for the latest version of every artifact in
	// the session, sorted by name.
	List(ctx context.Context, sessionID string) ([]Info, error)

	// DeleteSession removes every artifact belonging to the session.
	DeleteSession(ctx context.Context, sessionID string) error
}
