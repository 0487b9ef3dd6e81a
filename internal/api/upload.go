package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
)

// MaxUploadBytes caps photo uploads at 5 MiB, matching the server limit —
// rejecting locally saves shipping megabytes just to get a 413 back.
const MaxUploadBytes = 5 << 20

// acceptedImageExtensions mirrors the image types the service accepts.
var acceptedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadPhoto sends one image as multipart form data (field "image") and
// returns the URL the server stored it under. That URL goes into an issue
// draft's PhotoURLs.
func (c *Client) UploadPhoto(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !acceptedImageExtensions[ext] {
		return "", apperror.ValidationFailed("image", "photo must be a jpeg, png, gif, or webp image")
	}

	// Buffer the file so the size check happens before the request.
	// LimitReader with one extra byte detects "too large" without reading
	// an unbounded stream into memory.
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("api: reading photo: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return "", apperror.ValidationFailed("image", "photo must be 5MB or smaller")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("api: building multipart form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("api: writing multipart form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("api: closing multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("api: building upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperror.Remote("Failed to upload photo. Please try again.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", c.decodeError(resp)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperror.Remote("The server sent an unexpected response.", err)
	}
	return out.URL, nil
}

// DeletePhoto removes a previously uploaded image by its URL.
func (c *Client) DeletePhoto(ctx context.Context, imageURL string) error {
	body := struct {
		ImageURL string `json:"imageUrl"`
	}{imageURL}

	return c.do(ctx, http.MethodDelete, "/upload", nil, body, nil)
}
