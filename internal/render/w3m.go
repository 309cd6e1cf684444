package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"archivist/internal/archivist"
	"archivist/internal/model"
)

// W3M dumps HTML as plain text with the w3m browser.
type W3M struct {
	path string
}

// NewW3M creates a renderer that runs the w3m binary at path ("w3m" if empty).
func NewW3M(path string) *W3M {
	if path == "" {
		path = "w3m"
	}
	return &W3M{path: path}
}

func (w *W3M) Format() string { return FormatText }

// Render pipes content through `w3m -dump -T text/html -O UTF-8`.
func (w *W3M) Render(ctx context.Context, entry model.Entry, content []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, w.path, "-dump", "-T", "text/html", "-O", "UTF-8")
	cmd.Stdin = bytes.NewReader(content)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("w3m on entry %d: %w: %s", entry.ID, err, msg)
		}
		return nil, fmt.Errorf("w3m on entry %d: %w", entry.ID, err)
	}
	return stdout.Bytes(), nil
}

// Compile-time check that W3M implements archivist.Renderer
var _ archivist.Renderer = (*W3M)(nil)
