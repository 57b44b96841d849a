// Package highlight turns pasted or uploaded text into addressable HTML:
// syntax-highlighted source, side-by-side diffs, terminal output with ANSI
// colors, or rendered Markdown.
//
// Every plain-text rendering wraps each visual line in an element carrying
// "line" and "line-N" classes, where N is the 1-based line number in the
// original input. Diff columns are compacted relative to the raw diff, so a
// rendered line there may carry several line-N classes.
package highlight

import (
	"html/template"
	"strings"
)

// UILanguages is the curated language list offered in the paste form. We
// purposefully don't list every lexer, just the ones people actually use.
var UILanguages = map[string]string{
	"bash":        "Bash / Shell",
	"c":           "C",
	"c++":         "C++",
	"diff":        "Diff",
	"go":          "Go",
	"groovy":      "Groovy",
	"haskell":     "Haskell",
	"html":        "HTML",
	"java":        "Java",
	"javascript":  "JavaScript",
	"json":        "JSON",
	"kotlin":      "Kotlin",
	"lua":         "Lua",
	"makefile":    "Makefile",
	"objective-c": "Objective-C",
	"php":         "PHP",
	"python":      "Python",
	"ruby":        "Ruby",
	"rust":        "Rust",
	"scala":       "Scala",
	"sql":         "SQL",
	"swift":       "Swift",
	"yaml":        "YAML",
}

// Text is a single piece of renderable text. A paste usually produces one
// Text; a diff produces three (removed column, added column, original).
type Text struct {
	Text string
	// LineNumbers[i] holds the 1-based line numbers in the original input
	// that rendered line i+1 stands for. Empty means the rendered line is a
	// filler with no original counterpart.
	LineNumbers [][]int
}

func simpleText(text string) *Text {
	mapping := make([][]int, CountLines(text))
	for i := range mapping {
		mapping[i] = []int{i + 1}
	}
	return &Text{Text: text, LineNumbers: mapping}
}

// CountLines counts displayed lines. A final newline doesn't start a new
// line ("a\n" is one line, "a\nb" is two, "a\nb\n\n" is three).
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n") + 1
	if strings.HasSuffix(text, "\n") {
		n--
	}
	return n
}

// Highlighter renders one kind of paste. Two main variants exist: Plain
// (a single lexer over the whole text) and Diff (a lexer over the diff's
// content plus side-by-side layout); ANSI and Markdown cover terminal
// output and rich text.
type Highlighter interface {
	// Name is what the UI shows, e.g. "Python" or "Diff (Python)".
	Name() string
	// RenderAsDiff reports whether PrepareTexts returns side-by-side
	// columns that should be laid out in two panes.
	RenderAsDiff() bool
	// RenderAsRichText reports whether output should be shown without line
	// numbers or other plaintext chrome.
	RenderAsRichText() bool
	// RenderAsTerminal reports whether output is terminal output.
	RenderAsTerminal() bool
	// PrepareTexts splits the raw input into renderable Texts. At least one
	// Text is always returned and the last one is the original input.
	PrepareTexts(text string) []*Text
	// Highlight renders one prepared Text as HTML.
	Highlight(text *Text) (template.HTML, error)
}

// LanguageMarkdown requests a Markdown render instead of highlighting.
const LanguageMarkdown = "rendered-markdown"

func looksLikeDiff(text string) bool {
	return strings.HasPrefix(text, "diff --git ") || strings.Contains(text, "\ndiff --git ")
}

func looksLikeTerminalOutput(text string) bool {
	return strings.Contains(text, "\x1b[")
}

// Guess picks the highlighter for a paste. language may be a lexer name,
// "", "autodetect", "diff", "diff-<language>" or LanguageMarkdown; filename
// is the original upload name if there is one.
func Guess(text, language, filename string) Highlighter {
	if language == LanguageMarkdown {
		return &MarkdownHighlighter{}
	}

	if (language == "" || language == "autodetect") && looksLikeTerminalOutput(text) {
		return &ANSIHighlighter{}
	}

	diffRequested := language == "diff" ||
		strings.HasSuffix(filename, ".diff") ||
		strings.HasSuffix(filename, ".patch")
	diffLanguage := ""
	if rest, ok := strings.CutPrefix(language, "diff-"); ok {
		diffRequested = true
		diffLanguage = rest
	}

	lexer := ResolveLexer(text, language, filename)
	lexerName := strings.ToLower(lexer.Config().Name)
	if lexerName != strings.ToLower(language) || lexerName == "diff" {
		// The language wasn't a perfect match, so we had to guess. Chroma's
		// own diff highlighting is flat, so if the text is diff-shaped we
		// resolve a lexer against the content with diff markers stripped
		// and apply the diff layout on top.
		if diffRequested || lexerName == "diff" || looksLikeDiff(text) {
			return &DiffHighlighter{
				lexer: ResolveLexer(StripDiffMarkers(text), diffLanguage, filename),
			}
		}
	}

	return &PlainHighlighter{lexer: lexer}
}
