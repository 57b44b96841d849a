package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"driftbin/paste-api/config"
	"driftbin/paste-api/highlight"
	"driftbin/paste-api/storage"
	"driftbin/paste-api/uploads"
	"driftbin/paste-api/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type pasteFileResponse struct {
	Raw      string                `json:"raw"`
	Paste    string                `json:"paste"`
	NumLines int                   `json:"num_lines"`
	Language uploads.PasteLanguage `json:"language"`
}

type pasteResponse struct {
	Success       bool                         `json:"success"`
	Redirect      string                       `json:"redirect"`
	Metadata      string                       `json:"metadata"`
	UploadedFiles map[string]pasteFileResponse `json:"uploaded_files"`
}

func normalizeFormText(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// normalizeTextAndLanguage resolves the submitted form into the text to
// paste. "diff-between-two-texts" is special: the text is computed as a
// unified diff of the diff1/diff2 fields and rendered as a diff.
func normalizeTextAndLanguage(text, diffText1, diffText2, language string) (string, string) {
	if language == "diff-between-two-texts" {
		return highlight.UnifiedDiff(
			normalizeFormText(diffText1),
			normalizeFormText(diffText2),
		), "diff"
	}
	return normalizeFormText(text), language
}

// Paste stores one paste: the raw text, its highlighted HTML view and a
// metadata object. The raw object and the view share an ID, so x.txt and
// x.html always belong together.
func (a *API) Paste(c *gin.Context) {
	jsonMode := jsonRequested(c)
	requestID := c.GetString("requestID")

	text, language := normalizeTextAndLanguage(
		c.PostForm("text"),
		c.PostForm("diff1"),
		c.PostForm("diff2"),
		c.PostForm("language"),
	)
	if len(text) > maxPasteBytes {
		abortError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Text is too large; the maximum paste size is %s.", util.HumanSize(maxPasteBytes)))
		return
	}

	file, err := uploads.FromText(text)
	if err != nil {
		var tooLarge *uploads.TooLargeError
		if errors.As(err, &tooLarge) {
			abortError(c, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		zap.L().Error("Failed to wrap paste text", zap.String("requestID", requestID), zap.Error(err))
		abortError(c, http.StatusInternalServerError, "Failed to process paste.")
		return
	}

	hl := highlight.Guess(text, language, "")
	pasteURL := config.HTMLURL(file.ID + ".html")

	pasteDetails := &uploads.PasteDetails{
		Raw:      file.URL(),
		Paste:    pasteURL,
		NumLines: highlight.CountLines(text),
		Language: uploads.PasteLanguage{Title: hl.Name()},
		RawText:  text,
	}
	metadata, err := uploads.NewMetadata(uploads.UploadTypePaste, nil, pasteDetails)
	if err != nil {
		zap.L().Error("Failed to build metadata", zap.String("requestID", requestID), zap.Error(err))
		abortError(c, http.StatusInternalServerError, "Failed to build metadata.")
		return
	}

	page, err := renderPastePage(hl, text, file.URL(), metadata.URL())
	if err != nil {
		zap.L().Error("Failed to render paste view", zap.String("requestID", requestID), zap.Error(err))
		abortError(c, http.StatusInternalServerError, "Failed to render paste view.")
		return
	}
	html := uploads.NewHTML(file.ID, page)

	// Every object carries the link set of the whole batch.
	links := []string{metadata.URL(), file.URL(), pasteURL}

	ctx := c.Request.Context()
	jobs := []*storage.StoreJob{
		{Object: storage.Object{
			Key:                file.Key(),
			MIMEType:           "text/plain; charset=utf-8",
			ContentDisposition: file.ContentDisposition(),
			Links:              links,
			MetadataURL:        metadata.URL(),
			Reader:             file.Reader(),
		}},
		{HTML: true, Object: storage.Object{
			Key:                html.Key(),
			MIMEType:           "text/html; charset=utf-8",
			ContentDisposition: "inline",
			Links:              links,
			MetadataURL:        metadata.URL(),
			Reader:             html.Reader(),
		}},
	}
	if err := a.Store.StoreAll(ctx, jobs); err != nil {
		zap.L().Error("Failed to store objects", zap.String("requestID", requestID), zap.Error(err))
		abortError(c, http.StatusInternalServerError, "Failed to store objects.")
		return
	}

	metaJob := &storage.StoreJob{Object: storage.Object{
		Key:         metadata.Key(),
		MIMEType:    "application/json",
		Links:       links,
		MetadataURL: metadata.URL(),
		Reader:      metadata.Reader(),
	}}
	if err := a.Store.StoreAll(ctx, []*storage.StoreJob{metaJob}); err != nil {
		zap.L().Error("Failed to store metadata", zap.String("requestID", requestID), zap.Error(err))
		abortError(c, http.StatusInternalServerError, "Failed to store metadata.")
		return
	}

	if jsonMode {
		c.JSON(http.StatusOK, pasteResponse{
			Success:  true,
			Redirect: pasteURL,
			Metadata: metadata.URL(),
			UploadedFiles: map[string]pasteFileResponse{
				"paste": {
					Raw:      file.URL(),
					Paste:    pasteURL,
					NumLines: highlight.CountLines(text),
					Language: uploads.PasteLanguage{Title: hl.Name()},
				},
			},
		})
		return
	}
	c.Redirect(http.StatusSeeOther, pasteURL)
}
