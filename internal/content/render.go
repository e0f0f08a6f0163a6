package content

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderBody converts an event's Markdown body to HTML. Raw HTML in the
// source is not passed through.
func RenderBody(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("content: render body: %w", err)
	}
	return buf.String(), nil
}
