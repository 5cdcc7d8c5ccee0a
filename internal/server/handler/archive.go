package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	s3blob "github.com/alanyoungcy/crossarb/internal/blob/s3"
	"github.com/alanyoungcy/crossarb/internal/domain"
)

// ArchiveStore is the read side of the blob archive. Implemented by the S3
// reader.
type ArchiveStore interface {
	List(ctx context.Context, prefix string) ([]s3blob.ObjectInfo, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ArchiveHandler serves archived market data files from object storage.
type ArchiveHandler struct {
	store  ArchiveStore // nil when archiving is disabled
	prefix string
}

// NewArchiveHandler creates an ArchiveHandler over the archive prefix the
// uploader writes under. store may be nil.
func NewArchiveHandler(store ArchiveStore, prefix string) *ArchiveHandler {
	return &ArchiveHandler{store: store, prefix: prefix}
}

type archiveDTO struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ListArchives responds with the archived files, newest first.
// GET /api/archives
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "archiving disabled")
		return
	}

	infos, err := h.store.List(r.Context(), h.prefix)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}

	out := make([]archiveDTO, 0, len(infos))
	for _, info := range infos {
		out = append(out, archiveDTO{
			Name:         strings.TrimPrefix(strings.TrimPrefix(info.Key, h.prefix), "/"),
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// DownloadArchive streams one archived file.
// GET /api/archives/{name}
func (h *ArchiveHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "archiving disabled")
		return
	}

	name := r.PathValue("name")
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	body, err := h.store.Open(r.Context(), h.prefix+"/"+name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "download failed")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = io.Copy(w, body)
}
