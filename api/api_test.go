package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"bitbnb/hosting-api/db"
	"bitbnb/hosting-api/model"
	"bitbnb/hosting-api/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAdder hashes nothing, it hands out a fixed cid and counts calls
type fakeAdder struct {
	cid   string
	err   error
	calls atomic.Int32
}

func (f *fakeAdder) Add(_ context.Context, r io.Reader) (string, error) {
	f.calls.Add(1)
	io.Copy(io.Discard, r)
	return f.cid, f.err
}

type env struct {
	api   *API
	adder *fakeAdder
	store *db.SQLStore
}

func newEnv(t *testing.T) *env {
	t.Helper()

	viper.Set("upload.max_size", int64(1<<20))
	viper.Set("host.cors", []string{"http://localhost:5173"})
	t.Cleanup(viper.Reset)

	store, err := db.NewSQL("sqlite", filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })

	adder := &fakeAdder{cid: "QmTest"}
	u := service.NewUploader(adder, store, "https://ipfs.io/ipfs", "https://bitbnb.io")

	return &env{
		api:   NewRouter(t.Context(), u, store),
		adder: adder,
		store: store,
	}
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.api.Router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, name string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if name != "" {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		part.Write(data)
	}

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

var validFields = map[string]string{"projectName": "demo", "username": "alice"}

func TestUpload(t *testing.T) {
	e := newEnv(t)

	w := e.do(uploadRequest(t, "notes.txt", []byte("0123456789"), validFields))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode(t, w)
	assert.Equal(t, "https://ipfs.io/ipfs/QmTest", res["ipfsLink"])

	shortLink := res["shortLink"].(string)
	require.True(t, strings.HasPrefix(shortLink, "https://bitbnb.io/"))
	shortID := strings.TrimPrefix(shortLink, "https://bitbnb.io/")
	assert.Len(t, shortID, 6)

	rec, err := e.store.FindByShortID(t.Context(), shortID)
	require.NoError(t, err)
	assert.Equal(t, "txt", rec.FileType)
	assert.Equal(t, "demo", rec.ProjectName)
	assert.Equal(t, "alice", rec.Username)
	assert.True(t, rec.Status)
	assert.Empty(t, rec.VisitHistory)
}

func TestUploadErrors(t *testing.T) {
	cases := map[string]struct {
		name    string
		data    []byte
		fields  map[string]string
		code    int
		message string
	}{
		"no file":          {"", nil, validFields, http.StatusBadRequest, "No file uploaded."},
		"empty file":       {"a.txt", nil, validFields, http.StatusBadRequest, "No file uploaded."},
		"unsupported type": {"tool.exe", []byte("MZ"), validFields, http.StatusBadRequest, "Unsupported file type."},
		"folder":           {"docs.folder", []byte("x"), validFields, http.StatusBadRequest, "Unsupported file type."},
		"no project":       {"a.txt", []byte("x"), map[string]string{"username": "alice"}, http.StatusBadRequest, ""},
		"no username":      {"a.txt", []byte("x"), map[string]string{"projectName": "demo"}, http.StatusBadRequest, ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)

			w := e.do(uploadRequest(t, tc.name, tc.data, tc.fields))
			require.Equal(t, tc.code, w.Code, w.Body.String())

			res := decode(t, w)
			if tc.message != "" {
				assert.Equal(t, tc.message, res["message"])
			}
			assert.NotEmpty(t, res["requestID"])
			assert.Zero(t, e.adder.calls.Load())
		})
	}
}

func TestUploadGatewayFailure(t *testing.T) {
	e := newEnv(t)
	e.adder.err = errors.Join(service.ErrGatewayUnavailable, errors.New("connection refused"))

	w := e.do(uploadRequest(t, "a.pdf", []byte("%PDF"), validFields))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	res := decode(t, w)
	assert.Equal(t, "File upload failed", res["message"])
	assert.NotEmpty(t, res["requestID"])
	assert.NotContains(t, res, "error")
	assert.NotContains(t, w.Body.String(), "connection refused")

	records, err := e.store.ListByUsername(t.Context(), "alice", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUploadTooLarge(t *testing.T) {
	e := newEnv(t)

	w := e.do(uploadRequest(t, "a.txt", bytes.Repeat([]byte("x"), 2<<20), validFields))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, e.adder.calls.Load())
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func TestSaveURL(t *testing.T) {
	e := newEnv(t)

	w := e.do(jsonRequest(t, http.MethodPost, "/upload/save-url", gin.H{
		"link":        "https://ipfs.io/ipfs/QmPinned",
		"projectName": "demo",
		"fileType":    "folder",
		"username":    "alice",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode(t, w)
	assert.Equal(t, "Data saved successfully", res["message"])

	rec, err := e.store.FindByShortID(t.Context(), res["shortId"].(string))
	require.NoError(t, err)
	assert.Equal(t, "https://ipfs.io/ipfs/QmPinned", rec.RedirectURL)
	assert.Equal(t, "folder", rec.FileType)
	assert.Zero(t, e.adder.calls.Load())
}

func TestSaveURLErrors(t *testing.T) {
	e := newEnv(t)

	w := e.do(jsonRequest(t, http.MethodPost, "/upload/save-url", gin.H{
		"link":        "https://ipfs.io/ipfs/QmPinned",
		"projectName": "demo",
		"fileType":    "exe",
		"username":    "alice",
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unsupported file type.", decode(t, w)["message"])

	w = e.do(jsonRequest(t, http.MethodPost, "/upload/save-url", gin.H{"link": "x"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// a closed store fails the insert
	require.NoError(t, e.store.Close(t.Context()))
	w = e.do(jsonRequest(t, http.MethodPost, "/upload/save-url", gin.H{
		"link":        "https://ipfs.io/ipfs/QmPinned",
		"projectName": "demo",
		"fileType":    "pdf",
		"username":    "alice",
	}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	res := decode(t, w)
	assert.Equal(t, "Failed to save URL", res["message"])
	assert.NotContains(t, res, "error")
	assert.NotContains(t, w.Body.String(), "database is closed")
}

func TestLinks(t *testing.T) {
	e := newEnv(t)

	for _, id := range []string{"aaaaaa", "bbbbbb", "cccccc"} {
		require.NoError(t, e.store.Insert(t.Context(), model.NewRecord(id, "https://ipfs.io/ipfs/Qm"+id, "demo", "pdf", "alice")))
	}

	t.Run("fetch", func(t *testing.T) {
		w := e.do(httptest.NewRequest(http.MethodGet, "/api/links/bbbbbb", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://ipfs.io/ipfs/Qmbbbbbb", decode(t, w)["redirectUrl"])
	})

	t.Run("fetch missing", func(t *testing.T) {
		w := e.do(httptest.NewRequest(http.MethodGet, "/api/links/zzzzzz", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("list", func(t *testing.T) {
		w := e.do(httptest.NewRequest(http.MethodGet, "/api/links?username=alice&limit=2", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var res struct {
			Records []model.Record `json:"records"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Len(t, res.Records, 2)
		assert.Equal(t, "cccccc", res.Records[0].ShortID)
	})

	t.Run("list without username", func(t *testing.T) {
		w := e.do(httptest.NewRequest(http.MethodGet, "/api/links", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("redirect", func(t *testing.T) {
		w := e.do(httptest.NewRequest(http.MethodGet, "/aaaaaa", nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://ipfs.io/ipfs/Qmaaaaaa", w.Header().Get("Location"))

		rec, err := e.store.FindByShortID(t.Context(), "aaaaaa")
		require.NoError(t, err)
		assert.Empty(t, rec.VisitHistory)
	})

	t.Run("redirect missing", func(t *testing.T) {
		w := e.do(httptest.NewRequest(http.MethodGet, "/zzzzzz", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHeartbeat(t *testing.T) {
	e := newEnv(t)

	w := e.do(httptest.NewRequest(http.MethodHead, "/api/heartbeat", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
