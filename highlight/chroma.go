package highlight

import (
	"fmt"
	"html/template"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// fallbackLanguage is what content guessing defaults to. Python highlighting
// degrades gracefully on arbitrary text, unlike stricter lexers.
const fallbackLanguage = "python"

// ResolveLexer resolves the lexer for a piece of text. First match wins:
// exact language name, then filename pattern, then content analysis, then
// the fixed fallback. Unknown language names and empty text are fine; they
// just fall through the chain.
func ResolveLexer(text, language, filename string) chroma.Lexer {
	var lexer chroma.Lexer
	if language != "" && language != "autodetect" {
		lexer = lexers.Get(language)
	}
	if lexer == nil && filename != "" {
		lexer = lexers.Match(filename)
	}
	if lexer == nil {
		lexer = lexers.Analyse(text)
	}
	if lexer == nil {
		lexer = lexers.Get(fallbackLanguage)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return lexer
}

var formatter = chromahtml.New(chromahtml.WithClasses(true))

// ChromaStyle is the stylesheet all plain-text renders reference by class.
var ChromaStyle = styles.Get("xcode")

// StyleCSS returns the stylesheet for the classes the formatter emits.
// Stored pages inline it so they stay self-contained.
func StyleCSS() template.CSS {
	var sb strings.Builder
	if err := formatter.WriteCSS(&sb, ChromaStyle); err != nil {
		return ""
	}
	return template.CSS(sb.String())
}

var lineSpan = regexp.MustCompile(`<span class="` + chroma.StandardTypes[chroma.Line])

// renderChroma tokenizes text with lexer and rewrites every rendered line
// to carry line-N classes from the Text's mapping. extraClass, when non-nil,
// may add a per-line class (diff coloring).
func renderChroma(lexer chroma.Lexer, text *Text, extraClass func(line int) string) (template.HTML, error) {
	src := text.Text
	if len(src) > 0 && !strings.HasSuffix(src, "\n") {
		// The formatter swallows a final empty line unless the text ends
		// with a newline.
		src += "\n"
	}

	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return "", fmt.Errorf("failed to tokenize, %w", err)
	}

	var sb strings.Builder
	if err := formatter.Format(&sb, ChromaStyle, iterator); err != nil {
		return "", fmt.Errorf("failed to format, %w", err)
	}

	i := 0
	out := lineSpan.ReplaceAllStringFunc(sb.String(), func(s string) string {
		defer func() { i++ }()

		var classes strings.Builder
		classes.WriteString(s)
		if i < len(text.LineNumbers) {
			for _, n := range text.LineNumbers[i] {
				classes.WriteString(" line-" + strconv.Itoa(n))
			}
		} else {
			classes.WriteString(" line-" + strconv.Itoa(i+1))
		}
		if extraClass != nil {
			if c := extraClass(i); c != "" {
				classes.WriteString(" " + c)
			}
		}
		return classes.String()
	})
	return template.HTML(out), nil
}

// PlainHighlighter renders text as-is with a single lexer.
type PlainHighlighter struct {
	lexer chroma.Lexer
}

func NewPlainHighlighter(lexer chroma.Lexer) *PlainHighlighter {
	return &PlainHighlighter{lexer: lexer}
}

func (h *PlainHighlighter) Name() string {
	name := h.lexer.Config().Name
	if name == "plaintext" {
		return "Plain Text"
	}
	return name
}

func (h *PlainHighlighter) RenderAsDiff() bool     { return false }
func (h *PlainHighlighter) RenderAsRichText() bool { return false }
func (h *PlainHighlighter) RenderAsTerminal() bool { return false }

func (h *PlainHighlighter) PrepareTexts(text string) []*Text {
	return []*Text{simpleText(text)}
}

func (h *PlainHighlighter) Highlight(text *Text) (template.HTML, error) {
	return renderChroma(chroma.Coalesce(h.lexer), text, nil)
}
