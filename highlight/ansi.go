package highlight

import (
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"
)

// ANSIHighlighter renders terminal output. SGR escape sequences (\x1b[...m)
// become styled spans and every other escape sequence is dropped; the
// escape bytes themselves never reach the output.
type ANSIHighlighter struct{}

func (h *ANSIHighlighter) Name() string           { return "ANSI Color" }
func (h *ANSIHighlighter) RenderAsDiff() bool     { return false }
func (h *ANSIHighlighter) RenderAsRichText() bool { return false }
func (h *ANSIHighlighter) RenderAsTerminal() bool { return true }

func (h *ANSIHighlighter) PrepareTexts(text string) []*Text {
	return []*Text{simpleText(text)}
}

func (h *ANSIHighlighter) Highlight(text *Text) (template.HTML, error) {
	var sb strings.Builder
	sb.WriteString(`<pre class="chroma"><code>`)

	// Style state carries across lines, so a color started on one line
	// keeps applying until something changes it.
	state := sgrState{}
	for i, line := range splitLines(text.Text) {
		fmt.Fprintf(&sb, `<span class="line line-%d">`, i+1)

		for _, run := range splitSGRRuns(line, state) {
			state = run.state
			writeRun(&sb, run)
		}

		// The newline goes inside the span so empty lines keep height.
		sb.WriteString("\n</span>")
	}

	sb.WriteString(`</code></pre>`)
	return template.HTML(sb.String()), nil
}

func writeRun(sb *strings.Builder, run sgrRun) {
	classes := run.state.classes()
	styles := run.state.styles()
	if len(classes) == 0 && len(styles) == 0 {
		sb.WriteString(html.EscapeString(run.text))
		return
	}

	sb.WriteString("<span")
	if len(classes) > 0 {
		fmt.Fprintf(sb, ` class="%s"`, strings.Join(classes, " "))
	}
	if len(styles) > 0 {
		fmt.Fprintf(sb, ` style="%s"`, strings.Join(styles, "; "))
	}
	sb.WriteString(">")
	sb.WriteString(html.EscapeString(run.text))
	sb.WriteString("</span>")
}

// The 16 indexed terminal colors. Foreground and background shades differ
// slightly so text stays readable on its own color.
var terminalForeground = [16]string{
	"#000000", "#EF2929", "#62CA00", "#DAC200", "#3465A4", "#CE42BE", "#34E2E2", "#FFFFFF",
	"#676767", "#FF6D67", "#5FF967", "#FEFB67", "#6871FF", "#FF76FF", "#5FFDFF", "#FEFFFF",
}

var terminalBackground = [16]string{
	"#000000", "#EF2929", "#8AE234", "#FCE94F", "#3465A4", "#C509C5", "#34E2E2", "#FFFFFF",
	"#676767", "#FF6D67", "#5FF967", "#FEFB67", "#6871FF", "#FF76FF", "#5FFDFF", "#FEFFFF",
}

// TerminalCSS returns the stylesheet for the indexed fg-N/bg-N classes.
func TerminalCSS() template.CSS {
	var sb strings.Builder
	for i, c := range terminalForeground {
		fmt.Fprintf(&sb, ".fg-%d { color: %s; }\n", i, c)
		fmt.Fprintf(&sb, ".fg-%d-faint { color: %s; opacity: 0.5; }\n", i, c)
	}
	for i, c := range terminalBackground {
		fmt.Fprintf(&sb, ".bg-%d { background-color: %s; }\n", i, c)
	}
	return template.CSS(sb.String())
}

// termColor is either one of the 16 indexed palette colors (rgb == nil,
// themeable via CSS class) or a concrete RGB value (inline style).
type termColor struct {
	index uint8
	rgb   *[3]uint8
}

type sgrState struct {
	bold          bool
	faint         bool
	italic        bool
	underline     bool
	strikethrough bool
	foreground    *termColor
	background    *termColor
}

// classes returns the palette classes for the state. Indexed colors go
// through classes so themes can restyle them.
func (s sgrState) classes() []string {
	var ret []string
	if s.foreground != nil && s.foreground.rgb == nil {
		class := "fg-" + strconv.Itoa(int(s.foreground.index))
		if s.faint {
			class += "-faint"
		}
		ret = append(ret, class)
	}
	if s.background != nil && s.background.rgb == nil {
		ret = append(ret, "bg-"+strconv.Itoa(int(s.background.index)))
	}
	return ret
}

// styles returns inline CSS declarations in a fixed order so the rendered
// HTML is stable.
func (s sgrState) styles() []string {
	var ret []string
	if s.bold {
		ret = append(ret, "font-weight: bold")
	}
	if s.faint {
		ret = append(ret, "opacity: 0.5")
	}
	if s.italic {
		ret = append(ret, "font-style: italic")
	}
	if s.underline {
		ret = append(ret, "text-decoration: underline")
	}
	if s.strikethrough {
		ret = append(ret, "text-decoration: line-through")
	}
	if s.foreground != nil && s.foreground.rgb != nil {
		c := s.foreground.rgb
		ret = append(ret, fmt.Sprintf("color: rgb(%d, %d, %d)", c[0], c[1], c[2]))
	}
	if s.background != nil && s.background.rgb != nil {
		c := s.background.rgb
		ret = append(ret, fmt.Sprintf("background-color: rgb(%d, %d, %d)", c[0], c[1], c[2]))
	}
	return ret
}

// color256 maps a 256-color palette index to a termColor: the 16 standard
// colors stay indexed, the 6x6x6 cube and the grayscale ramp become RGB.
func color256(index uint8) *termColor {
	switch {
	case index < 16:
		return &termColor{index: index}
	case index < 232:
		i := index - 16
		r, g, b := i/36, (i%36)/6, i%6
		return &termColor{rgb: &[3]uint8{r*40 + 55, g*40 + 55, b*40 + 55}}
	default:
		v := (index-232)*10 + 8
		return &termColor{rgb: &[3]uint8{v, v, v}}
	}
}

func parseColorByte(s string) uint8 {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return 0
	}
	return uint8(n)
}

// apply folds a semicolon-separated SGR parameter list into the state.
// Unknown parameters are ignored; truncated 38/48 extended color sequences
// abort the rest of the list.
func (s sgrState) apply(params []string) sgrState {
	for len(params) > 0 {
		p := params[0]
		params = params[1:]
		switch p {
		case "", "0":
			s = sgrState{}
		case "1":
			s.bold = true
		case "2":
			s.faint = true
		case "3":
			s.italic = true
		case "4":
			s.underline = true
		case "9":
			s.strikethrough = true
		case "22":
			s.bold = false
			s.faint = false
		case "23":
			s.italic = false
		case "24":
			s.underline = false
		case "29":
			s.strikethrough = false
		case "30", "31", "32", "33", "34", "35", "36", "37":
			s.foreground = &termColor{index: p[1] - '0'}
		case "39":
			s.foreground = nil
		case "40", "41", "42", "43", "44", "45", "46", "47":
			s.background = &termColor{index: p[1] - '0'}
		case "49":
			s.background = nil
		case "90", "91", "92", "93", "94", "95", "96", "97":
			s.foreground = &termColor{index: p[1] - '0' + 8}
		case "100", "101", "102", "103", "104", "105", "106", "107":
			s.background = &termColor{index: p[2] - '0' + 8}
		case "38", "48":
			var color *termColor
			if len(params) >= 2 && params[0] == "5" {
				color = color256(parseColorByte(params[1]))
				params = params[2:]
			} else if len(params) >= 4 && params[0] == "2" {
				color = &termColor{rgb: &[3]uint8{
					parseColorByte(params[1]),
					parseColorByte(params[2]),
					parseColorByte(params[3]),
				}}
				params = params[4:]
			} else {
				return s
			}
			if p == "38" {
				s.foreground = color
			} else {
				s.background = color
			}
		}
	}
	return s
}

// sgrRun is a stretch of text rendered under one style state.
type sgrRun struct {
	text  string
	state sgrState
}

// splitSGRRuns splits one line of terminal output into style runs. CSI
// sequences end at the first final byte (0x40-0x7e); only "m" updates the
// state, everything else is swallowed. A bare escape that doesn't open a
// CSI sequence passes through as text.
func splitSGRRuns(line string, state sgrState) []sgrRun {
	var runs []sgrRun
	var cur strings.Builder

	flush := func(force bool) {
		if cur.Len() > 0 || force {
			runs = append(runs, sgrRun{text: cur.String(), state: state})
			cur.Reset()
		}
	}

	escape := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if !escape && c == '\x1b' && i+1 < len(line) && line[i+1] == '[' {
			i++
			escape = true
			flush(false)
			continue
		}
		if escape {
			if c >= 0x40 && c <= 0x7e {
				escape = false
				params := cur.String()
				cur.Reset()
				if c == 'm' {
					state = state.apply(strings.Split(params, ";"))
				}
			} else {
				cur.WriteByte(c)
			}
			continue
		}
		cur.WriteByte(c)
	}
	flush(true)
	return runs
}
