package uploads

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"

	"driftbin/paste-api/config"
	"driftbin/paste-api/util"
)

// TooLargeError is a terminal validation failure: the whole request is
// rejected with 413 before anything is stored.
type TooLargeError struct {
	Name  string
	Bytes int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("%s (%s) exceeded the maximum file size limit of %s",
		e.Name, util.HumanSize(e.Bytes), util.HumanSize(viper.GetInt64("upload.max_size")))
}

// ForbiddenExtensionError rejects the whole request with 403.
type ForbiddenExtensionError struct {
	Name      string
	Extension string
}

func (e *ForbiddenExtensionError) Error() string {
	return fmt.Sprintf("%q has a forbidden file extension (.%s)", e.Name, e.Extension)
}

// UploadedFile is one unit of user-submitted content, fully buffered. The
// content is an immutable byte slice; every consumer (classifier,
// highlighter, storage) takes its own reader over it so nobody can disturb
// anyone else's position.
type UploadedFile struct {
	// HumanName is the name the uploader used, e.g. "notes.txt".
	HumanName string
	Bytes     int64
	ID        string
	Extension string

	content      []byte
	probablyText bool
	mimeType     string
}

func newUploadedFile(humanName string, content []byte) (*UploadedFile, error) {
	if humanName == "" {
		humanName = "file"
	}
	if max := viper.GetInt64("upload.max_size"); int64(len(content)) > max {
		return nil, &TooLargeError{Name: humanName, Bytes: int64(len(content))}
	}

	ext := strings.TrimPrefix(filepath.Ext(humanName), ".")
	if err := checkExtension(humanName); err != nil {
		return nil, err
	}

	id, err := NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate object ID, %w", err)
	}

	probablyText := ProbablyText(content)

	return &UploadedFile{
		HumanName:    humanName,
		Bytes:        int64(len(content)),
		ID:           id,
		Extension:    ext,
		content:      content,
		probablyText: probablyText,
		mimeType:     DetermineMIMEType(humanName, content, probablyText),
	}, nil
}

// FromMultipart buffers one multipart file part and validates it. The part's
// self-reported size is ignored; only actual bytes read count.
func FromMultipart(fh *multipart.FileHeader) (*UploadedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open multipart file, %w", err)
	}
	defer f.Close()

	max := viper.GetInt64("upload.max_size")
	content, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read multipart file, %w", err)
	}
	if int64(len(content)) > max {
		return nil, &TooLargeError{Name: fh.Filename, Bytes: fh.Size}
	}

	return newUploadedFile(fh.Filename, content)
}

// FromText wraps pasted text as an uploaded file named plaintext.txt.
func FromText(text string) (*UploadedFile, error) {
	return newUploadedFile("plaintext.txt", []byte(text))
}

func checkExtension(name string) error {
	lower := strings.ToLower(name)
	for _, ext := range viper.GetStringSlice("upload.forbidden_extensions") {
		ext = strings.ToLower(ext)
		if strings.HasSuffix(lower, "."+ext) || strings.Contains(lower, "."+ext+".") {
			return &ForbiddenExtensionError{Name: name, Extension: ext}
		}
	}
	return nil
}

// Key is the storage name: "{id}.{ext}", or just "{id}" without extension.
func (f *UploadedFile) Key() string {
	if f.Extension != "" {
		return f.ID + "." + f.Extension
	}
	return f.ID
}

func (f *UploadedFile) URL() string {
	return config.FileURL(f.Key())
}

func (f *UploadedFile) MIMEType() string {
	return f.mimeType
}

func (f *UploadedFile) ProbablyText() bool {
	return f.probablyText
}

func (f *UploadedFile) ContentDisposition() string {
	return DetermineContentDisposition(f.HumanName, f.mimeType, f.probablyText)
}

// Reader returns a fresh independent cursor over the content.
func (f *UploadedFile) Reader() io.ReadSeeker {
	return bytes.NewReader(f.content)
}

// Text returns the content as a string if it decodes as UTF-8. The second
// return is false for binary-ish content; callers skip the companion paste
// view in that case rather than erroring.
func (f *UploadedFile) Text() (string, bool) {
	if !f.probablyText || !utf8.Valid(f.content) {
		return "", false
	}
	return string(f.content), true
}

// HTMLToStore is a rendered HTML artifact (paste page, details page).
// Never mutated after creation.
//
// The ID is assigned by the caller rather than generated here: pages embed
// the metadata URL and the metadata embeds the page URL, so all IDs have to
// exist before either side is rendered.
type HTMLToStore struct {
	ID      string
	content []byte
}

func NewHTML(id, html string) *HTMLToStore {
	return &HTMLToStore{ID: id, content: []byte(html)}
}

func (h *HTMLToStore) Key() string {
	return h.ID + ".html"
}

func (h *HTMLToStore) URL() string {
	return config.HTMLURL(h.Key())
}

func (h *HTMLToStore) Reader() io.ReadSeeker {
	return bytes.NewReader(h.content)
}
