// Package render converts archived HTML into text renditions.
package render

import (
	"fmt"

	"archivist/internal/archivist"
	"archivist/internal/config"
)

// Rendition formats.
const (
	FormatText     = "txt"
	FormatMarkdown = "md"
)

// NewRendererFromConfig creates a Renderer. A non-empty format ("txt" or "md")
// overrides the configured renderer type.
func NewRendererFromConfig(cfg config.RenderConfig, format string) (archivist.Renderer, error) {
	kind := cfg.Type
	switch format {
	case "":
	case FormatText:
		kind = "w3m"
	case FormatMarkdown:
		kind = "markdown"
	default:
		return nil, fmt.Errorf("unknown rendition format: %s", format)
	}

	switch kind {
	case "w3m", "":
		return NewW3M(cfg.W3MPath), nil
	case "markdown":
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("unknown renderer type: %s", kind)
	}
}
