package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"meshgate/internal/mesh"
)

// Default inline-size thresholds. An item strictly smaller than its threshold
// is inlined; an item at or above it is deferred to a resource link.
const (
	DefaultInlineImageMaxBytes  = 5 * 1024 * 1024
	DefaultInlineAudioMaxBytes  = 10 * 1024 * 1024
	DefaultInlineTextMaxBytes   = 1 * 1024 * 1024
	DefaultInlineBinaryMaxBytes = 512 * 1024
)

// MaterializeThresholds are the per-kind inline size limits.
type MaterializeThresholds struct {
	InlineImageMaxBytes  int64 `yaml:"inlineImageMaxBytes"`
	InlineAudioMaxBytes  int64 `yaml:"inlineAudioMaxBytes"`
	InlineTextMaxBytes   int64 `yaml:"inlineTextMaxBytes"`
	InlineBinaryMaxBytes int64 `yaml:"inlineBinaryMaxBytes"`
}

// DefaultThresholds returns the default inline limits.
func DefaultThresholds() MaterializeThresholds {
	return MaterializeThresholds{
		InlineImageMaxBytes:  DefaultInlineImageMaxBytes,
		InlineAudioMaxBytes:  DefaultInlineAudioMaxBytes,
		InlineTextMaxBytes:   DefaultInlineTextMaxBytes,
		InlineBinaryMaxBytes: DefaultInlineBinaryMaxBytes,
	}
}

// Materializer converts a task result into protocol response content,
// deciding per item whether to inline the bytes or hand back a deferred
// resource link served by the exposer.
type Materializer struct {
	thresholds MaterializeThresholds
	exposer    *ResourceExposer
}

// NewMaterializer creates a materializer using the given thresholds.
func NewMaterializer(thresholds MaterializeThresholds, exposer *ResourceExposer) *Materializer {
	return &Materializer{thresholds: thresholds, exposer: exposer}
}

// Materialize builds the response content for a successful task result.
// Output order: primary text first if present, then one entry per payload
// item in order of appearance. Every item is persisted to the session's
// artifact store before its response entry is constructed, so any address the
// client sees is already dereferenceable.
func (m *Materializer) Materialize(ctx context.Context, session *Session, result *TaskResult) ([]mcp.Content, error) {
	var contents []mcp.Content
	if result.Text != "" {
		contents = append(contents, mcp.TextContent{Type: "text", Text: result.Text})
	}

	for i, item := range result.Items {
		content, err := m.materializeItem(ctx, session, i, item)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, nil
}

func (m *Materializer) materializeItem(ctx context.Context, session *Session, index int, item mesh.ResultItem) (mcp.Content, error) {
	// Structured data has no binary payload and is always embedded as-is.
	// It is still persisted so the embedded URI dereferences later.
	if len(item.Data) == 0 && len(item.Structured) > 0 {
		name := item.Name
		if name == "" {
			name = fmt.Sprintf("structured-%d", index)
		}
		address, err := m.exposer.Register(ctx, session, name, "application/json", item.Structured)
		if err != nil {
			return nil, err
		}
		return mcp.EmbeddedResource{
			Type: "resource",
			Resource: mcp.TextResourceContents{
				URI:      address,
				MIMEType: "application/json",
				Text:     string(item.Structured),
			},
		}, nil
	}

	name := item.Name
	if name == "" {
		name = fmt.Sprintf("result-%d", index)
	}
	mimeType := item.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	size := int64(len(item.Data))

	address, err := m.exposer.Register(ctx, session, name, mimeType, item.Data)
	if err != nil {
		return nil, err
	}

	switch kind := classifyMIME(mimeType); kind {
	case mediaImage:
		if size < m.thresholds.InlineImageMaxBytes {
			return mcp.ImageContent{
				Type:     "image",
				Data:     base64.StdEncoding.EncodeToString(item.Data),
				MIMEType: mimeType,
			}, nil
		}
	case mediaAudio:
		if size < m.thresholds.InlineAudioMaxBytes {
			return mcp.AudioContent{
				Type:     "audio",
				Data:     base64.StdEncoding.EncodeToString(item.Data),
				MIMEType: mimeType,
			}, nil
		}
	case mediaText:
		if size < m.thresholds.InlineTextMaxBytes {
			return mcp.EmbeddedResource{
				Type: "resource",
				Resource: mcp.TextResourceContents{
					URI:      address,
					MIMEType: mimeType,
					Text:     string(item.Data),
				},
			}, nil
		}
	case mediaBinary:
		if size < m.thresholds.InlineBinaryMaxBytes {
			return mcp.EmbeddedResource{
				Type: "resource",
				Resource: mcp.BlobResourceContents{
					URI:      address,
					MIMEType: mimeType,
					Blob:     base64.StdEncoding.EncodeToString(item.Data),
				},
			}, nil
		}
	}

	return mcp.ResourceLink{
		Type:        "resource_link",
		URI:         address,
		Name:        name,
		Description: fmt.Sprintf("%d byte %s artifact", size, mimeType),
		MIMEType:    mimeType,
	}, nil
}

type mediaKind int

const (
	mediaImage mediaKind = iota
	mediaAudio
	mediaText
	mediaBinary
)

// textMIMETypes are non-text/* media types still treated as textual. The
// classifier works over the MIME type only, never the file extension.
var textMIMETypes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/yaml":       true,
	"application/x-yaml":     true,
	"application/toml":       true,
	"application/javascript": true,
	"application/x-ndjson":   true,
	"application/x-sh":       true,
	"application/sql":        true,
	"image/svg+xml":          true,
}

// classifyMIME buckets a media type for the inline/defer decision.
func classifyMIME(mimeType string) mediaKind {
	// Parameters like "; charset=utf-8" do not change the bucket.
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	switch {
	case textMIMETypes[mimeType]:
		return mediaText
	case strings.HasPrefix(mimeType, "image/"):
		return mediaImage
	case strings.HasPrefix(mimeType, "audio/"):
		return mediaAudio
	case strings.HasPrefix(mimeType, "text/"):
		return mediaText
	case strings.HasSuffix(mimeType, "+json"), strings.HasSuffix(mimeType, "+xml"):
		return mediaText
	default:
		return mediaBinary
	}
}
