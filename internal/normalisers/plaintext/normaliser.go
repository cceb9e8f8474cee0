package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents. It is the fallback for any
// textual MIME type without a dedicated normaliser.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
		"application/json",
	}
}

// Normalise converts raw bytes to text content. Line endings are
// normalised to \n so the chunker sees consistent paragraph breaks.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")

	return &driven.NormaliseResult{
		Content: content,
		Metadata: map[string]any{
			"mime_type":  raw.MIMEType,
			"line_count": strings.Count(content, "\n") + 1,
		},
	}, nil
}
