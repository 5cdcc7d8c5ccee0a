package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3blob "github.com/alanyoungcy/crossarb/internal/blob/s3"
	"github.com/alanyoungcy/crossarb/internal/domain"
)

type fakeArchive struct {
	infos   []s3blob.ObjectInfo
	files   map[string]string
	listErr error
	opened  []string
}

func (f *fakeArchive) List(ctx context.Context, prefix string) ([]s3blob.ObjectInfo, error) {
	return f.infos, f.listErr
}

func (f *fakeArchive) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.opened = append(f.opened, key)
	body, ok := f.files[key]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", key, domain.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestListArchives(t *testing.T) {
	store := &fakeArchive{infos: []s3blob.ObjectInfo{
		{Key: "marketdata/tob_2026-08-30.csv", Size: 2048, LastModified: time.Date(2026, 8, 31, 0, 5, 0, 0, time.UTC)},
		{Key: "marketdata/tob_2026-08-29.csv", Size: 1024, LastModified: time.Date(2026, 8, 30, 0, 5, 0, 0, time.UTC)},
	}}
	h := NewArchiveHandler(store, "marketdata")

	rec := httptest.NewRecorder()
	h.ListArchives(rec, httptest.NewRequest(http.MethodGet, "/api/archives", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]any
	decode(t, rec, &body)
	require.Len(t, body, 2)
	assert.Equal(t, "tob_2026-08-30.csv", body[0]["name"])
	assert.Equal(t, float64(2048), body[0]["size"])
	assert.Equal(t, "tob_2026-08-29.csv", body[1]["name"])
}

func TestArchivesWithoutStore(t *testing.T) {
	h := NewArchiveHandler(nil, "marketdata")

	rec := httptest.NewRecorder()
	h.ListArchives(rec, httptest.NewRequest(http.MethodGet, "/api/archives", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.DownloadArchive(rec, httptest.NewRequest(http.MethodGet, "/api/archives/tob_2026-08-30.csv", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDownloadArchive(t *testing.T) {
	store := &fakeArchive{files: map[string]string{
		"marketdata/tob_2026-08-30.csv": "timestamp,instrument_id\n",
	}}
	h := NewArchiveHandler(store, "marketdata")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/archives/{name}", h.DownloadArchive)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/archives/tob_2026-08-30.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tob_2026-08-30.csv")
	assert.Equal(t, "timestamp,instrument_id\n", rec.Body.String())
	assert.Equal(t, []string{"marketdata/tob_2026-08-30.csv"}, store.opened)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/archives/tob_2026-01-01.csv", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadArchiveRejectsTraversal(t *testing.T) {
	store := &fakeArchive{files: map[string]string{}}
	h := NewArchiveHandler(store, "marketdata")

	for _, name := range []string{"..", `a\b.csv`, "..%2Fsecrets"} {
		req := httptest.NewRequest(http.MethodGet, "/api/archives/placeholder", nil)
		req.SetPathValue("name", name)

		rec := httptest.NewRecorder()
		h.DownloadArchive(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "name %q", name)
	}
	assert.Empty(t, store.opened)
}
