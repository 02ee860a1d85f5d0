// Package bulk implements the server side of bulk jobs: the upload gate that
// opens a job, the per-item chunk processor and status synchronisation.
package bulk

import (
	"context"

	"descriptai/internal/domain"
	"descriptai/internal/providers/textgen"
)

type localeKey struct{}

// WithLocale sets the output language for descriptions generated under ctx.
func WithLocale(ctx context.Context, locale string) context.Context {
	if locale == "" {
		return ctx
	}
	return context.WithValue(ctx, localeKey{}, locale)
}

// LocaleFromContext returns the locale set by WithLocale, or "".
func LocaleFromContext(ctx context.Context) string {
	v, _ := ctx.Value(localeKey{}).(string)
	return v
}

// TextGenerator produces model text for a prompt.
type TextGenerator interface {
	Complete(ctx context.Context, req textgen.Request) (string, error)
}

// ImageAnalyzer describes a product photo as JSON text.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, mimeType string, data []byte, prompt string) (string, error)
}

// ChunkResult is the outcome of processing one item. A failed item is a
// normal result, not an error.
type ChunkResult struct {
	Success      bool                        `json:"success"`
	Index        int                         `json:"index"`
	Descriptions *domain.Descriptions        `json:"result,omitempty"`
	Extracted    *domain.ExtractedAttributes `json:"extracted,omitempty"`
	Error        string                      `json:"error,omitempty"`
	Job          *domain.Job                 `json:"-"`
}

// Item failure messages returned to the client.
const (
	MsgParseFailed         = "Failed to parse AI response"
	MsgGenerationFailed    = "Failed to generate descriptions"
	MsgAnalysisFailed      = "Failed to analyze image"
	MsgInvalidItem         = "Invalid item"
	MsgSaveFailed          = "Failed to save description"
	MsgUnsupportedImage    = "Unsupported image format"
	MsgMissingImageRequest = "Missing image, jobId, or index"
)

// AllowedImageTypes lists the accepted upload content types.
var AllowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
	"image/heif": {},
}
