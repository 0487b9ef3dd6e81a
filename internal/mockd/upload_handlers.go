package mockd

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
)

// maxUploadBytes matches the client-side cap: 5 MiB per photo.
const maxUploadBytes = 5 << 20

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type uploadHandler struct {
	dir    string
	logger *slog.Logger
}

// handleUpload accepts one image as multipart form data (field "image")
// and stores it under a generated name, returning {"url": "..."}.
func (h *uploadHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if h.dir == "" {
		writeError(w, apperror.Remote("photo uploads are not configured on this server", nil))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1024)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperror.ValidationFailed("image", "photo must be 5MB or smaller"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, apperror.ValidationFailed("image", `multipart field "image" is required`))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		writeError(w, apperror.ValidationFailed("image", "photo must be a jpeg, png, gif, or webp image"))
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		writeError(w, fmt.Errorf("mockd: creating upload dir: %w", err))
		return
	}

	name := xid.New().String() + ext
	dst, err := os.Create(filepath.Join(h.dir, name))
	if err != nil {
		writeError(w, fmt.Errorf("mockd: creating upload file: %w", err))
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		writeError(w, fmt.Errorf("mockd: writing upload: %w", err))
		return
	}

	h.logger.Info("photo uploaded", slog.String("file", name))
	writeJSON(w, http.StatusCreated, map[string]string{
		"url": "/uploads/" + name,
	})
}

// handleDelete removes an uploaded image by its URL.
func (h *uploadHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	// Only the basename is used, so a crafted URL can't escape the
	// upload directory.
	name := filepath.Base(req.ImageURL)
	if name == "." || name == "/" {
		writeError(w, apperror.ValidationFailed("imageUrl", "imageUrl is required"))
		return
	}

	if err := os.Remove(filepath.Join(h.dir, name)); err != nil {
		if os.IsNotExist(err) {
			writeError(w, apperror.NotFound("photo", name))
			return
		}
		writeError(w, fmt.Errorf("mockd: deleting upload: %w", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
