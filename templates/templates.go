// Package templates renders the static HTML pages that get stored next to
// uploaded objects: the highlighted paste view and the upload details page.
package templates

import (
	"embed"
	"html/template"
	"io"
)

//go:embed *.html
var files embed.FS

var pages = template.Must(template.New("").ParseFS(files, "*.html"))

// PastePage is the stored view of a single paste.
type PastePage struct {
	// Language is the display name of the highlighter, e.g. "Python" or
	// "Diff (Go)".
	Language    string
	RawURL      string
	MetadataURL string
	// CopyText is the original pasted text, carried in the page so "copy
	// and edit" can resubmit it.
	CopyText string
	// Texts are the rendered columns, two for a side-by-side diff and one
	// for everything else.
	Texts    []template.HTML
	Diff     bool
	RichText bool
	Terminal bool
	// Styles is the inlined stylesheet so the stored page has no external
	// dependencies.
	Styles template.CSS
}

func RenderPaste(w io.Writer, page PastePage) error {
	return pages.ExecuteTemplate(w, "paste.html", page)
}

// DetailsFile is one uploaded file on the details page.
type DetailsFile struct {
	Name      string
	HumanSize string
	RawURL    string
	// PasteURL links the companion paste view for textual uploads.
	PasteURL string
	IsImage  bool
}

// DetailsPage is the stored page linking everything a multi-file upload
// produced.
type DetailsPage struct {
	Files       []DetailsFile
	MetadataURL string
}

func RenderDetails(w io.Writer, page DetailsPage) error {
	return pages.ExecuteTemplate(w, "details.html", page)
}
