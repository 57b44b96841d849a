package highlight

import (
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
)

// diffLinePrefixes mark lines that belong to the diff format itself rather
// than to the file contents on either side.
var diffLinePrefixes = []string{
	"diff --git",
	"index ",
	"--- ",
	"+++ ",
	"@@ ",
	"commit ",
	"Author:",
	"AuthorDate:",
	"Commit:",
	"CommitDate:",
}

func isDiffMarker(line string) bool {
	for _, prefix := range diffLinePrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// StripDiffMarkers removes diff structure lines and the leading +/- column,
// leaving mostly file contents. Used to guess the language of the code
// inside a diff.
func StripDiffMarkers(text string) string {
	var sb strings.Builder
	for _, line := range splitLines(text) {
		if isDiffMarker(line) {
			continue
		}
		if len(line) > 0 && (line[0] == '+' || line[0] == '-') {
			line = line[1:]
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// splitLines splits without producing a phantom final line for trailing
// newlines. Empty input has zero lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// DiffHighlighter renders a unified diff side by side: removed lines on the
// left, added lines on the right, context and markers on both. The inner
// lexer highlights the file contents, not the diff syntax.
type DiffHighlighter struct {
	lexer chroma.Lexer
}

func (h *DiffHighlighter) Name() string {
	name := h.lexer.Config().Name
	if name == "plaintext" {
		name = "Plain Text"
	}
	return "Diff (" + name + ")"
}

func (h *DiffHighlighter) RenderAsDiff() bool     { return true }
func (h *DiffHighlighter) RenderAsRichText() bool { return false }
func (h *DiffHighlighter) RenderAsTerminal() bool { return false }

// PrepareTexts builds three views of the diff: the removed column, the added
// column, and the raw text. Removed lines only advance the left column and
// added lines only the right; on a shared line both columns are first padded
// to equal length with blanks so the shared line sits on the same row.
//
// Both columns share one line-number mapping. Each original line is recorded
// against the row it ends up on, so a compacted row can stand for several
// original lines (a removal and the addition replacing it).
func (h *DiffHighlighter) PrepareTexts(text string) []*Text {
	var left, right []string
	var mapping [][]int

	pad := func() {
		for len(left) < len(right) {
			left = append(left, "")
		}
		for len(right) < len(left) {
			right = append(right, "")
		}
	}

	for i, line := range splitLines(text) {
		switch {
		case strings.HasPrefix(line, "-"):
			left = append(left, line)
		case strings.HasPrefix(line, "+"):
			right = append(right, line)
		default:
			pad()
			left = append(left, line)
			right = append(right, line)
		}

		row := max(len(left), len(right))
		for len(mapping) < row {
			mapping = append(mapping, nil)
		}
		mapping[row-1] = append(mapping[row-1], i+1)
	}
	pad()

	return []*Text{
		{Text: strings.Join(left, "\n"), LineNumbers: mapping},
		{Text: strings.Join(right, "\n"), LineNumbers: mapping},
		simpleText(text),
	}
}

func (h *DiffHighlighter) Highlight(text *Text) (template.HTML, error) {
	lines := splitLines(text.Text)
	extra := func(i int) string {
		if i >= len(lines) {
			return ""
		}
		switch {
		case strings.HasPrefix(lines[i], "-"):
			return "diff-remove"
		case strings.HasPrefix(lines[i], "+"):
			return "diff-add"
		}
		return ""
	}
	return renderChroma(chroma.Coalesce(h.lexer), text, extra)
}
