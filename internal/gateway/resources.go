package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meshgate/internal/artifact"
	"meshgate/pkg/logging"
)

// DefaultResourceScheme is the address scheme for deferred artifacts unless
// configured otherwise.
const DefaultResourceScheme = "meshgate"

// ResourceExposer publishes deferred artifacts under session-scoped addresses
// of the form scheme://session_id/filename and serves them back to the
// minting session only. It holds no state of its own: it reads through the
// session manager and writes through the artifact store.
type ResourceExposer struct {
	scheme   string
	sessions *SessionManager
	store    artifact.Store
}

// NewResourceExposer creates an exposer minting addresses under the given
// scheme. An empty scheme falls back to DefaultResourceScheme.
func NewResourceExposer(scheme string, sessions *SessionManager, store artifact.Store) *ResourceExposer {
	if scheme == "" {
		scheme = DefaultResourceScheme
	}
	return &ResourceExposer{scheme: scheme, sessions: sessions, store: store}
}

// Scheme returns the configured address scheme.
func (e *ResourceExposer) Scheme() string {
	return e.scheme
}

// Register stores the artifact under the session, records it in the
// session's index, and returns its address. The artifact is fully persisted
// before the address exists, so a client can dereference the address the
// moment it sees it.
func (e *ResourceExposer) Register(ctx context.Context, session *Session, filename, mimeType string, data []byte) (string, error) {
	filename = sanitizeFilename(filename)

	version, err := e.store.Put(ctx, session.SessionID, filename, mimeType, data)
	if err != nil {
		return "", fmt.Errorf("storing artifact %s: %w", filename, err)
	}
	session.RecordArtifact(filename, version)

	logging.Debug("Resources", "Registered artifact %s v%d (%d bytes) for session %s",
		filename, version, len(data), logging.TruncateSessionID(session.SessionID))
	return e.formatAddress(session.SessionID, filename), nil
}

// Resolve serves the artifact behind an address to the session identified by
// sessionID. An address minted under a different session fails with
// ErrResourceForbidden; mismatched ownership is checked before existence so
// the error does not leak whether the foreign artifact exists.
func (e *ResourceExposer) Resolve(ctx context.Context, sessionID, address string) (*artifact.Artifact, error) {
	addrSession, filename, err := e.parseAddress(address)
	if err != nil {
		return nil, err
	}

	if addrSession != sessionID {
		logging.Warn("Resources", "Session %s attempted to read a resource of session %s",
			logging.TruncateSessionID(sessionID), logging.TruncateSessionID(addrSession))
		return nil, ErrResourceForbidden
	}

	a, err := e.store.Get(ctx, sessionID, filename)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return a, nil
}

// List returns the addresses and metadata of every artifact in the session.
func (e *ResourceExposer) List(ctx context.Context, sessionID string) ([]ResourceInfo, error) {
	infos, err := e.store.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := make([]ResourceInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, ResourceInfo{
			Address:  e.formatAddress(sessionID, info.Name),
			Name:     info.Name,
			MIMEType: info.MIMEType,
			Size:     info.Size,
		})
	}
	return out, nil
}

// ResourceInfo describes one exposed artifact.
type ResourceInfo struct {
	Address  string
	Name     string
	MIMEType string
	Size     int64
}

func (e *ResourceExposer) formatAddress(sessionID, filename string) string {
	return e.scheme + "://" + sessionID + "/" + filename
}

// parseAddress splits an address into its session id and filename. The
// filename is everything after the first separator following the session id
// and may not itself contain the separator; registration enforces that.
func (e *ResourceExposer) parseAddress(address string) (sessionID, filename string, err error) {
	prefix := e.scheme + "://"
	rest, ok := strings.CutPrefix(address, prefix)
	if !ok {
		return "", "", ErrResourceNotFound
	}

	sessionID, filename, ok = strings.Cut(rest, "/")
	if !ok || sessionID == "" || filename == "" || strings.Contains(filename, "/") {
		return "", "", ErrResourceNotFound
	}
	return sessionID, filename, nil
}

// sanitizeFilename keeps filenames representable in an address: the path
// separator is reserved by the encoding.
func sanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	if filename == "" {
		filename = "artifact"
	}
	return filename
}
