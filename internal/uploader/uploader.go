// Package uploader pushes product images to an external image host and hands
// back the hosted URL. The console never serves image binaries itself.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/nfnt/resize"
)

// ErrUnsupportedFormat rejects anything that is not PNG or JPEG before any
// bytes leave the process.
var ErrUnsupportedFormat = errors.New("uploader: unsupported image format, only PNG and JPEG are allowed")

// Uploader is the strategy surface: give it an image, get back a public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, img io.Reader) (string, error)
}

// Host uploads to a Cloudinary-style endpoint:
// POST <base>/<cloud>/image/upload with multipart file + upload_preset,
// answered by {secure_url}.
type Host struct {
	baseURL   string
	cloudName string
	preset    string
	httpc     *http.Client
}

func NewHost(baseURL, cloudName, preset string) *Host {
	return &Host{
		baseURL:   strings.TrimRight(baseURL, "/"),
		cloudName: cloudName,
		preset:    preset,
		httpc:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *Host) Upload(ctx context.Context, filename string, img io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, img); err != nil {
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := mw.WriteField("upload_preset", h.preset); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := h.baseURL + "/" + h.cloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := h.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("image host request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("image host rejected upload: status %d", resp.StatusCode)
	}

	var payload struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode image host response: %w", err)
	}
	if payload.SecureURL == "" {
		return "", errors.New("image host response carried no secure_url")
	}
	return payload.SecureURL, nil
}

// Prepare decodes a PNG/JPEG upload, downscales it to max width 800 while
// preserving aspect ratio, and re-encodes as JPEG quality 80. Every transport
// runs images through this before they travel anywhere.
func Prepare(filename string, img io.Reader) (io.Reader, string, error) {
	var decoded image.Image
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		decoded, err = png.Decode(img)
	case ".jpg", ".jpeg":
		decoded, err = jpeg.Decode(img)
	default:
		return nil, "", ErrUnsupportedFormat
	}
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	scaled := decoded
	if decoded.Bounds().Dx() > 800 {
		scaled = resize.Resize(800, 0, decoded, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 80}); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)) + ".jpg"
	return &buf, name, nil
}
