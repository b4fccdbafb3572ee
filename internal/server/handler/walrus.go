package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nereus-labs/nereus/internal/platform/walrus"
)

// BlobFetcher reads and classifies a Walrus blob.
type BlobFetcher interface {
	Fetch(ctx context.Context, id string) (walrus.Blob, error)
}

// WalrusHandler serves market resolution evidence stored on Walrus.
type WalrusHandler struct {
	blobs  BlobFetcher
	logger *slog.Logger
}

// NewWalrusHandler creates a WalrusHandler.
func NewWalrusHandler(blobs BlobFetcher, logger *slog.Logger) *WalrusHandler {
	return &WalrusHandler{blobs: blobs, logger: logHandler(logger, "walrus")}
}

// GetBlob returns the classified blob.
// GET /api/walrus/{blobId}
func (h *WalrusHandler) GetBlob(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "blobId")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing blob id")
		return
	}
	blob, err := h.blobs.Fetch(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "fetch blob", err)
		return
	}
	writeJSON(w, http.StatusOK, blob)
}
