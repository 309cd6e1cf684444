package render

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html/charset"

	"archivist/internal/archivist"
	"archivist/internal/model"
)

// Markdown converts HTML to CommonMark. Content is decoded to UTF-8 first,
// honoring a BOM or a <meta charset> declaration.
type Markdown struct {
	conv *converter.Converter
}

// NewMarkdown creates a Markdown renderer.
func NewMarkdown() *Markdown {
	return &Markdown{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (m *Markdown) Format() string { return FormatMarkdown }

// Render decodes and converts content. Relative links resolve against the entry URL.
func (m *Markdown) Render(ctx context.Context, entry model.Entry, content []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := charset.NewReader(bytes.NewReader(content), "text/html")
	if err != nil {
		return nil, fmt.Errorf("detecting charset of entry %d: %w", entry.ID, err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decoding entry %d: %w", entry.ID, err)
	}

	md, err := m.conv.ConvertString(string(decoded), converter.WithDomain(entry.URL))
	if err != nil {
		return nil, fmt.Errorf("converting entry %d: %w", entry.ID, err)
	}
	return []byte(md), nil
}

// Compile-time check that Markdown implements archivist.Renderer
var _ archivist.Renderer = (*Markdown)(nil)
