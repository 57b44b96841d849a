package uploads

import (
	"mime"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	mimeGenericBinary = "application/octet-stream"
	mimeGenericText   = "text/plain"

	classifyLimit = 1 << 20
)

// MIME types which are allowed to be served as detected. Everything else is
// degraded to a generic type so stored objects can never be served as HTML.
var (
	mimeAllowlist = map[string]struct{}{
		"application/javascript": {},
		"application/json":       {},
		"application/pdf":        {},
		"application/x-ruby":     {},
		"text/css":               {},
		"text/plain":             {},
		"text/x-python":          {},
		"text/x-sh":              {},
	}
	mimePrefixAllowlist = []string{
		"audio/",
		"image/",
		"video/",
	}
	inlineDisplayMIMEAllowlist = map[string]struct{}{
		"application/pdf": {},
	}
	inlineDisplayMIMEPrefixAllowlist = []string{
		"audio/",
		"image/",
		"video/",
	}
)

func textChars() [256]bool {
	var ok [256]bool
	for i := 7; i <= 13; i++ {
		ok[i] = true
	}
	for i := 0x20; i < 0x7F; i++ {
		ok[i] = true
	}
	for i := 0x80; i < 0x100; i++ {
		ok[i] = true
	}
	return ok
}

var isTextChar = textChars()

// ProbablyText reports whether content looks like text rather than binary.
// Only the first MB is inspected. The heuristic is based on libmagic's
// binary/text detection: any byte outside the printable set (plus common
// control characters and the high half used by UTF-8) means binary.
func ProbablyText(content []byte) bool {
	if len(content) > classifyLimit {
		content = content[:classifyLimit]
	}
	for _, b := range content {
		if !isTextChar[b] {
			return false
		}
	}
	return true
}

func isAllowedMIMEType(mimeType string) bool {
	if _, ok := mimeAllowlist[mimeType]; ok {
		return true
	}
	for _, prefix := range mimePrefixAllowlist {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

// DetermineMIMEType picks the mimetype a stored object will be served with.
// Extension-derived types win, then content sniffing, and anything not on
// the allowlist falls back to generic text or binary depending on the
// classifier.
func DetermineMIMEType(filename string, content []byte, probablyText bool) string {
	if ext := filepath.Ext(filename); ext != "" {
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			// TypeByExtension may append a charset parameter.
			if base, _, err := mime.ParseMediaType(mimeType); err == nil && isAllowedMIMEType(base) {
				return base
			}
		}
	}

	if sniffed := mimetype.Detect(content); sniffed != nil {
		base := sniffed.String()
		if i := strings.IndexByte(base, ';'); i >= 0 {
			base = base[:i]
		}
		if base != mimeGenericBinary && base != mimeGenericText && isAllowedMIMEType(base) {
			return base
		}
	}

	if probablyText {
		return mimeGenericText
	}
	return mimeGenericBinary
}

// IsImageMIME reports whether the browser can show the object as an image,
// used for previews on the details page.
func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

func isInlineDisplayMIME(mimeType string) bool {
	if _, ok := inlineDisplayMIMEAllowlist[mimeType]; ok {
		return true
	}
	for _, prefix := range inlineDisplayMIMEPrefixAllowlist {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

// DetermineContentDisposition returns the Content-Disposition header value
// for a stored object. Binary content downloads as an attachment unless its
// mimetype is safe to display inline.
func DetermineContentDisposition(filename, mimeType string, probablyText bool) string {
	renderType := "attachment"
	if probablyText || isInlineDisplayMIME(mimeType) {
		renderType = "inline"
	}
	return renderType + `; filename="` + strings.ReplaceAll(filename, `"`, "") +
		`"; filename*=utf-8''` + url.PathEscape(filename)
}
