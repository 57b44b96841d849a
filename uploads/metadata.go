package uploads

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"driftbin/paste-api/config"
)

// UploadType distinguishes file batches from pastes in metadata objects.
type UploadType string

const (
	UploadTypeFile  UploadType = "file"
	UploadTypePaste UploadType = "paste"
)

// FileDetails describes one uploaded file in the metadata object and in the
// JSON response.
type FileDetails struct {
	Name  string `json:"name"`
	Bytes int64  `json:"bytes"`
	Raw   string `json:"raw"`
	Paste string `json:"paste,omitempty"`
}

// PasteDetails describes a paste in the metadata object and JSON response.
type PasteDetails struct {
	Raw      string        `json:"raw"`
	Paste    string        `json:"paste"`
	NumLines int           `json:"num_lines"`
	Language PasteLanguage `json:"language"`
	RawText  string        `json:"raw_text,omitempty"`
}

type PasteLanguage struct {
	Title string `json:"title"`
}

// Metadata is the JSON record describing one whole upload/paste transaction.
// It is stored as its own object and its URL is attached to every sibling.
type Metadata struct {
	ID         string
	UploadType UploadType
	Files      []FileDetails
	Paste      *PasteDetails

	content []byte
}

// NewMetadata builds the metadata object. It must be built last: it embeds
// the final URLs of every other object, so every sibling's ID has to be
// assigned already. Keys are sorted and output is pretty-printed so the
// stored object is diffable and greppable.
func NewMetadata(uploadType UploadType, files []FileDetails, paste *PasteDetails) (*Metadata, error) {
	id, err := NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate object ID, %w", err)
	}

	record := map[string]any{
		"server_version": config.Version,
		"timestamp":      time.Now().UTC().Unix(),
		"upload_type":    uploadType,
	}
	if paste != nil {
		record["uploaded_files"] = map[string]any{"paste": paste}
	} else {
		record["uploaded_files"] = files
	}

	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata, %w", err)
	}

	return &Metadata{
		ID:         id,
		UploadType: uploadType,
		Files:      files,
		Paste:      paste,
		content:    append(content, '\n'),
	}, nil
}

func (m *Metadata) Key() string {
	return m.ID + ".json"
}

func (m *Metadata) URL() string {
	return config.FileURL(m.Key())
}

func (m *Metadata) Reader() io.ReadSeeker {
	return bytes.NewReader(m.content)
}
