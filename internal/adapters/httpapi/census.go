package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"zoocore/internal/adapters/census"
	"zoocore/internal/blob"
)

func (h *Handler) handleExportCensus(w http.ResponseWriter, r *http.Request) {
	result, err := h.census.Export(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"census": result})
}

func (h *Handler) handleListCensus(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.census.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if artifacts == nil {
		artifacts = []blob.Info{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": artifacts})
}

// handleDownloadCensus streams one stored artifact; the wildcard is the key
// below the census prefix.
func (h *Handler) handleDownloadCensus(w http.ResponseWriter, r *http.Request) {
	info, body, err := h.census.Open(r.Context(), census.Prefix+chi.URLParam(r, "*"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer func() { _ = body.Close() }()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if info.ETag != "" {
		w.Header().Set("ETag", `"`+info.ETag+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("census download interrupted", "key", info.Key, "error", err)
	}
}
