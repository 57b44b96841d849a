package api

import (
	"errors"
	"net/http"
	"strings"

	"driftbin/paste-api/config"
	"driftbin/paste-api/highlight"
	"driftbin/paste-api/storage"
	"driftbin/paste-api/templates"
	"driftbin/paste-api/uploads"
	"driftbin/paste-api/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxPasteBytes caps pasted text and companion paste views of uploaded
// files. Bigger text uploads still store fine, they just don't get a
// highlighted view.
const maxPasteBytes = 1 << 20

type uploadedFileResponse struct {
	Bytes int64  `json:"bytes"`
	Raw   string `json:"raw"`
	Paste string `json:"paste,omitempty"`
}

type uploadResponse struct {
	Success       bool                            `json:"success"`
	Redirect      string                          `json:"redirect"`
	Metadata      string                          `json:"metadata"`
	UploadedFiles map[string]uploadedFileResponse `json:"uploaded_files"`
}

// Upload stores every file of a multipart request plus a details page, a
// companion paste view per textual file, and one metadata object. Any
// validation failure rejects the whole request before anything is stored.
func (a *API) Upload(c *gin.Context) {
	jsonMode := jsonRequested(c)
	requestID := c.GetString("requestID")

	form, err := c.MultipartForm()
	if err != nil {
		// Chunked requests bypass the Content-Length fast reject, so the
		// body limit can first surface here as a read error.
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			abortError(c, http.StatusRequestEntityTooLarge, "Request body size exceeds limit.")
			return
		}
		abortError(c, http.StatusBadRequest, "Could not parse multipart form.")
		return
	}

	fileHeaders := form.File["file"]
	if len(fileHeaders) == 0 {
		abortError(c, http.StatusBadRequest, "No files provided.")
		return
	}

	files := make([]*uploads.UploadedFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		file, err := uploads.FromMultipart(fh)
		if err != nil {
			var tooLarge *uploads.TooLargeError
			var forbidden *uploads.ForbiddenExtensionError
			switch {
			case errors.As(err, &tooLarge):
				abortError(c, http.StatusRequestEntityTooLarge, err.Error())
			case errors.As(err, &forbidden):
				abortError(c, http.StatusForbidden, err.Error())
			default:
				zap.L().Error("Failed to read uploaded file",
					zap.String("name", fh.Filename),
					zap.String("requestID", requestID),
					zap.Error(err))
				abortError(c, http.StatusInternalServerError, "Failed to read uploaded file.")
			}
			return
		}
		files = append(files, file)
	}

	// IDs for every artifact have to exist before anything is rendered:
	// pages embed the metadata URL and the metadata embeds page URLs.
	detailsID, err := uploads.NewID()
	if err != nil {
		zap.L().Error("Failed to generate object ID", zap.String("requestID", requestID), zap.Error(err))
		abortError(c, http.StatusInternalServerError, "Failed to generate object ID.")
		return
	}
	redirect := config.HTMLURL(detailsID + ".html")

	details := make([]uploads.FileDetails, 0, len(files))
	for _, file := range files {
		d := uploads.FileDetails{
			Name:  file.HumanName,
			Bytes: file.Bytes,
			Raw:   file.URL(),
		}
		if _, ok := file.Text(); ok && file.Bytes <= maxPasteBytes {
			d.Paste = config.HTMLURL(file.ID + ".html")
		}
		details = append(details, d)
	}

	metadata, err := uploads.NewMetadata(uploads.UploadTypeFile, details, nil)
	if err != nil {
		zap.L().Error("Failed to build metadata", zap.String("requestID", requestID), zap.Error(err))
		abortError(c, http.StatusInternalServerError, "Failed to build metadata.")
		return
	}

	htmls := make([]*uploads.HTMLToStore, 0, len(files)+1)
	for i, file := range files {
		if details[i].Paste == "" {
			continue
		}
		text, _ := file.Text()
		page, err := renderPastePage(
			highlight.Guess(text, "", file.HumanName),
			text, file.URL(), metadata.URL(),
		)
		if err != nil {
			zap.L().Error("Failed to render paste view",
				zap.String("name", file.HumanName),
				zap.String("requestID", requestID),
				zap.Error(err))
			abortError(c, http.StatusInternalServerError, "Failed to render paste view.")
			return
		}
		htmls = append(htmls, uploads.NewHTML(file.ID, page))
	}

	detailFiles := make([]templates.DetailsFile, 0, len(files))
	for i, file := range files {
		detailFiles = append(detailFiles, templates.DetailsFile{
			Name:      file.HumanName,
			HumanSize: util.HumanSize(file.Bytes),
			RawURL:    file.URL(),
			PasteURL:  details[i].Paste,
			IsImage:   uploads.IsImageMIME(file.MIMEType()),
		})
	}

	var detailsPage strings.Builder
	err = templates.RenderDetails(&detailsPage, templates.DetailsPage{
		Files:       detailFiles,
		MetadataURL: metadata.URL(),
	})
	if err != nil {
		zap.L().Error("Failed to render details page", zap.String("requestID", requestID), zap.Error(err))
		abortError(c, http.StatusInternalServerError, "Failed to render details page.")
		return
	}
	htmls = append(htmls, uploads.NewHTML(detailsID, detailsPage.String()))

	// Every object carries the link set of the whole batch, so any stored
	// object can be traced back to all of its siblings.
	links := make([]string, 0, len(files)+len(htmls)+1)
	links = append(links, metadata.URL())
	for _, file := range files {
		links = append(links, file.URL())
	}
	for _, html := range htmls {
		links = append(links, html.URL())
	}

	ctx := c.Request.Context()
	jobs := make([]*storage.StoreJob, 0, len(files)+len(htmls))
	for _, file := range files {
		jobs = append(jobs, &storage.StoreJob{Object: storage.Object{
			Key:                file.Key(),
			MIMEType:           file.MIMEType(),
			ContentDisposition: file.ContentDisposition(),
			Links:              links,
			MetadataURL:        metadata.URL(),
			Reader:             file.Reader(),
		}})
	}
	for _, html := range htmls {
		jobs = append(jobs, &storage.StoreJob{HTML: true, Object: storage.Object{
			Key:                html.Key(),
			MIMEType:           "text/html; charset=utf-8",
			ContentDisposition: "inline",
			Links:              links,
			MetadataURL:        metadata.URL(),
			Reader:             html.Reader(),
		}})
	}

	if err := a.Store.StoreAll(ctx, jobs); err != nil {
		zap.L().Error("Failed to store objects", zap.String("requestID", requestID), zap.Error(err))
		abortError(c, http.StatusInternalServerError, "Failed to store objects.")
		return
	}

	// The metadata object goes last: its presence means the rest of the
	// transaction is fully stored.
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
		uploadedFiles := make(map[string]uploadedFileResponse, len(files))
		for i, file := range files {
			uploadedFiles[file.HumanName] = uploadedFileResponse{
				Bytes: file.Bytes,
				Raw:   file.URL(),
				Paste: details[i].Paste,
			}
		}
		c.JSON(http.StatusOK, uploadResponse{
			Success:       true,
			Redirect:      redirect,
			Metadata:      metadata.URL(),
			UploadedFiles: uploadedFiles,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, redirect)
}
