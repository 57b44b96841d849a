package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"driftbin/paste-api/middleware"
	"driftbin/paste-api/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func seedTestConfig(t *testing.T) (objectRoot, htmlRoot string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	objectRoot = filepath.Join(t.TempDir(), "objects")
	htmlRoot = filepath.Join(t.TempDir(), "html")

	viper.Set("app.log_level", "error")
	viper.Set("app.log_file", "")
	viper.Set("host.file_url", "http://files.test/%s")
	viper.Set("host.html_url", "http://html.test/%s")
	viper.Set("upload.max_size", int64(10<<20))
	viper.Set("upload.forbidden_extensions", []string{"exe"})
	viper.Set("storage.type", "local")
	viper.Set("storage.workers", 2)
	viper.Set("storage.queue_size", 16)
	viper.Set("storage.object_path", objectRoot)
	viper.Set("storage.html_path", htmlRoot)
	return objectRoot, htmlRoot
}

func newTestAPI(t *testing.T) (*API, string, string) {
	t.Helper()
	objectRoot, htmlRoot := seedTestConfig(t)

	a, err := NewRouter()
	require.NoError(t, err)
	return a, objectRoot, htmlRoot
}

// recordingBackend captures stored objects so tests can inspect the
// annotations a real backend would persist.
type recordingBackend struct {
	mu      sync.Mutex
	objects map[string]storage.Object
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{objects: make(map[string]storage.Object)}
}

func (b *recordingBackend) StoreObject(_ context.Context, obj storage.Object) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[obj.Key] = obj
	return nil
}

func (b *recordingBackend) StoreHTML(ctx context.Context, obj storage.Object) error {
	return b.StoreObject(ctx, obj)
}

func newRecordingAPI(t *testing.T) (*API, *recordingBackend) {
	t.Helper()
	seedTestConfig(t)

	backend := newRecordingBackend()
	a := &API{Store: storage.NewStoreQueue(backend)}
	a.Store.StartWorkerPool()

	router := gin.New()
	router.Use(middleware.NewRequestIDMiddleware())
	router.POST("/upload", a.Upload)
	router.POST("/paste", a.Paste)
	a.Router = router
	return a, backend
}

func postForm(a *API, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func postMultipart(t *testing.T, a *API, path string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	a, _, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())
}

func TestLanguages(t *testing.T) {
	a, _, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/languages", nil)
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var langs map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &langs))
	require.Equal(t, "Python", langs["python"])
	require.Equal(t, "Diff", langs["diff"])
}

func TestPasteJSON(t *testing.T) {
	a, objectRoot, htmlRoot := newTestAPI(t)

	w := postForm(a, "/paste?json", url.Values{
		"text":     {"hello world"},
		"language": {"python"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp pasteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Redirect)
	require.NotEmpty(t, resp.Metadata)

	details, ok := resp.UploadedFiles["paste"]
	require.True(t, ok)
	require.Equal(t, 1, details.NumLines)
	require.Equal(t, "Python", details.Language.Title)

	// The raw view and HTML view share an ID.
	rawName := details.Raw[strings.LastIndex(details.Raw, "/")+1:]
	pasteName := details.Paste[strings.LastIndex(details.Paste, "/")+1:]
	require.Equal(t, strings.TrimSuffix(rawName, ".txt"), strings.TrimSuffix(pasteName, ".html"))

	raw, err := os.ReadFile(filepath.Join(objectRoot, rawName))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(raw))

	page, err := os.ReadFile(filepath.Join(htmlRoot, pasteName))
	require.NoError(t, err)
	require.Contains(t, string(page), `name="text"`)
	require.Contains(t, string(page), "hello world")

	metaName := resp.Metadata[strings.LastIndex(resp.Metadata, "/")+1:]
	meta, err := os.ReadFile(filepath.Join(objectRoot, metaName))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(meta, &decoded))
	require.Equal(t, "paste", decoded["upload_type"])
}

func TestPasteRedirect(t *testing.T) {
	a, _, _ := newTestAPI(t)

	w := postForm(a, "/paste", url.Values{"text": {"hi"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Contains(t, w.Header().Get("Location"), "http://html.test/")
	require.True(t, strings.HasSuffix(w.Header().Get("Location"), ".html"))
}

func TestPasteCRLFNormalized(t *testing.T) {
	a, objectRoot, _ := newTestAPI(t)

	w := postForm(a, "/paste?json", url.Values{"text": {"a\r\nb"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp pasteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.UploadedFiles["paste"].NumLines)

	rawName := resp.UploadedFiles["paste"].Raw
	rawName = rawName[strings.LastIndex(rawName, "/")+1:]
	raw, err := os.ReadFile(filepath.Join(objectRoot, rawName))
	require.NoError(t, err)
	require.Equal(t, "a\nb", string(raw))
}

func TestPasteDiffBetweenTwoTexts(t *testing.T) {
	a, _, htmlRoot := newTestAPI(t)

	w := postForm(a, "/paste?json", url.Values{
		"diff1":    {"line A\nline B\nline C\n"},
		"diff2":    {"line B\nline B2\nline C\nline D\n"},
		"language": {"diff-between-two-texts"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp pasteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 8, resp.UploadedFiles["paste"].NumLines)
	require.True(t, strings.HasPrefix(resp.UploadedFiles["paste"].Language.Title, "Diff ("))

	pasteName := resp.UploadedFiles["paste"].Paste
	pasteName = pasteName[strings.LastIndex(pasteName, "/")+1:]
	page, err := os.ReadFile(filepath.Join(htmlRoot, pasteName))
	require.NoError(t, err)
	require.Contains(t, string(page), "diff-side-by-side")
	require.Contains(t, string(page), "diff-add")
	require.Contains(t, string(page), "diff-remove")
}

func TestPasteTooLarge(t *testing.T) {
	a, objectRoot, _ := newTestAPI(t)

	w := postForm(a, "/paste?json", url.Values{"text": {strings.Repeat("x", maxPasteBytes+1)}})
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	entries, err := os.ReadDir(objectRoot)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestUploadJSON(t *testing.T) {
	a, objectRoot, htmlRoot := newTestAPI(t)

	w := postMultipart(t, a, "/upload?json", map[string][]byte{
		"notes.txt": []byte("some notes\n"),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Redirect)

	details, ok := resp.UploadedFiles["notes.txt"]
	require.True(t, ok)
	require.Equal(t, int64(11), details.Bytes)
	require.True(t, strings.HasSuffix(details.Raw, ".txt"))
	require.True(t, strings.HasSuffix(details.Paste, ".html"), "textual files get a paste view")

	rawName := details.Raw[strings.LastIndex(details.Raw, "/")+1:]
	raw, err := os.ReadFile(filepath.Join(objectRoot, rawName))
	require.NoError(t, err)
	require.Equal(t, "some notes\n", string(raw))

	// Companion paste view plus details page.
	entries, err := os.ReadDir(htmlRoot)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	detailsName := resp.Redirect[strings.LastIndex(resp.Redirect, "/")+1:]
	page, err := os.ReadFile(filepath.Join(htmlRoot, detailsName))
	require.NoError(t, err)
	require.Contains(t, string(page), "notes.txt")
	require.Contains(t, string(page), "11 bytes")
}

func TestUploadBinarySkipsPasteView(t *testing.T) {
	a, _, htmlRoot := newTestAPI(t)

	w := postMultipart(t, a, "/upload?json", map[string][]byte{
		"blob.bin": {0x00, 0x01, 0x02, 0x03},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Empty(t, resp.UploadedFiles["blob.bin"].Paste)

	// Only the details page.
	entries, err := os.ReadDir(htmlRoot)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestUploadTooLargeRejectsWholeRequest(t *testing.T) {
	a, objectRoot, htmlRoot := newTestAPI(t)
	viper.Set("upload.max_size", int64(8))

	w := postMultipart(t, a, "/upload?json", map[string][]byte{
		"ok.txt":  []byte("fine"),
		"big.txt": []byte("way too large for the limit"),
	})
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, false, resp["success"])
	require.Contains(t, resp["error"], "big.txt")

	for _, root := range []string{objectRoot, htmlRoot} {
		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		require.Empty(t, entries, "nothing may be stored on a rejected request")
	}
}

func TestUploadForbiddenExtension(t *testing.T) {
	a, _, _ := newTestAPI(t)

	w := postMultipart(t, a, "/upload?json", map[string][]byte{
		"setup.exe": []byte("MZ"),
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestUploadNoFiles(t *testing.T) {
	a, _, _ := newTestAPI(t)

	w := postMultipart(t, a, "/upload?json", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJSONViaFormField(t *testing.T) {
	a, _, _ := newTestAPI(t)

	w := postForm(a, "/paste", url.Values{"text": {"hi"}, "json": {""}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestPasteObjectsCarryAllLinks(t *testing.T) {
	a, backend := newRecordingAPI(t)

	w := postForm(a, "/paste?json", url.Values{"text": {"hello"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp pasteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	details := resp.UploadedFiles["paste"]
	wantLinks := []string{resp.Metadata, details.Raw, details.Paste}

	require.Len(t, backend.objects, 3)
	for key, obj := range backend.objects {
		require.ElementsMatch(t, wantLinks, obj.Links, "object %s", key)
		require.Equal(t, resp.Metadata, obj.MetadataURL, "object %s", key)
	}
}

func TestUploadObjectsCarryAllLinks(t *testing.T) {
	a, backend := newRecordingAPI(t)

	w := postMultipart(t, a, "/upload?json", map[string][]byte{
		"notes.txt": []byte("some notes\n"),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	details := resp.UploadedFiles["notes.txt"]
	wantLinks := []string{resp.Metadata, resp.Redirect, details.Raw, details.Paste}

	// Raw file, companion paste view, details page, metadata.
	require.Len(t, backend.objects, 4)
	for key, obj := range backend.objects {
		require.ElementsMatch(t, wantLinks, obj.Links, "object %s", key)
		require.Equal(t, resp.Metadata, obj.MetadataURL, "object %s", key)
	}
}

func TestUploadChunkedBodyTooLarge(t *testing.T) {
	seedTestConfig(t)
	viper.Set("upload.max_size", int64(4))
	a, err := NewRouter()
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "big.txt")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 4096))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	// Without a Content-Length the middleware's fast reject can't fire,
	// so the limit only trips once the handler reads the body.
	req := httptest.NewRequest(http.MethodPost, "/upload?json", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = -1
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadRedirects(t *testing.T) {
	a, _, _ := newTestAPI(t)

	w := postMultipart(t, a, "/upload", map[string][]byte{"a.txt": []byte("x")})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.True(t, strings.HasSuffix(w.Header().Get("Location"), ".html"))
}
