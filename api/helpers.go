package api

import (
	"html/template"
	"net/http"
	"strings"

	"driftbin/paste-api/highlight"
	"driftbin/paste-api/templates"

	"github.com/gin-gonic/gin"
)

// jsonRequested reports whether the client wants a JSON response instead of
// a redirect. Both ?json and a json form field are accepted; the cli sends
// the latter.
func jsonRequested(c *gin.Context) bool {
	if _, ok := c.GetQuery("json"); ok {
		return true
	}
	if _, ok := c.GetPostForm("json"); ok {
		return true
	}
	return false
}

func abortError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{
		"success":   false,
		"error":     message,
		"requestID": c.MustGet("requestID"),
	})
}

func (a *API) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Languages returns the curated language list for the paste form.
func (a *API) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, highlight.UILanguages)
}

// renderPastePage renders the stored HTML view of one piece of text. For
// side-by-side diffs the rendered columns are everything but the last
// prepared text, which is always the raw input.
func renderPastePage(hl highlight.Highlighter, text, rawURL, metadataURL string) (string, error) {
	texts := hl.PrepareTexts(text)
	if len(texts) > 1 {
		texts = texts[:len(texts)-1]
	}

	columns := make([]template.HTML, 0, len(texts))
	for _, t := range texts {
		html, err := hl.Highlight(t)
		if err != nil {
			return "", err
		}
		columns = append(columns, html)
	}

	var sb strings.Builder
	err := templates.RenderPaste(&sb, templates.PastePage{
		Language:    hl.Name(),
		RawURL:      rawURL,
		MetadataURL: metadataURL,
		CopyText:    text,
		Texts:       columns,
		Diff:        hl.RenderAsDiff(),
		RichText:    hl.RenderAsRichText(),
		Terminal:    hl.RenderAsTerminal(),
		Styles:      highlight.StyleCSS() + highlight.TerminalCSS(),
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
