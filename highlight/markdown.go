package highlight

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// markdownPolicy is a UGC policy plus the bits GFM output needs: heading
// anchors, task list checkboxes and table alignment.
var markdownPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	p.AllowAttrs("align").OnElements("th", "td")
	p.AllowElements("del")
	return p
}()

// MarkdownHighlighter renders the paste as Markdown instead of
// highlighting it. Raw HTML in the source is sanitized away.
type MarkdownHighlighter struct{}

func (h *MarkdownHighlighter) Name() string           { return "Rendered Markdown" }
func (h *MarkdownHighlighter) RenderAsDiff() bool     { return false }
func (h *MarkdownHighlighter) RenderAsRichText() bool { return true }
func (h *MarkdownHighlighter) RenderAsTerminal() bool { return false }

func (h *MarkdownHighlighter) PrepareTexts(text string) []*Text {
	return []*Text{simpleText(text)}
}

func (h *MarkdownHighlighter) Highlight(text *Text) (template.HTML, error) {
	var sb strings.Builder
	if err := markdown.Convert([]byte(text.Text), &sb); err != nil {
		return "", fmt.Errorf("failed to render markdown, %w", err)
	}
	return template.HTML(markdownPolicy.Sanitize(sb.String())), nil
}
