package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/plantpal/internal/logging"
	"github.com/vbonduro/plantpal/internal/photostore"
	"github.com/vbonduro/plantpal/internal/service"
	"github.com/vbonduro/plantpal/internal/vision"
)

const maxPhotoSize = 20 * 1024 * 1024 // 20 MB

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniffing algorithm (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// handleIdentify accepts a multipart "photo" (or "image") field and replies
// with the vision backend's suggestion as JSON.
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		file, _, err = r.FormFile("image")
	}
	if err != nil {
		http.Error(w, "photo file required", http.StatusBadRequest)
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		s.logger.Error("read upload failed", logging.Error(err))
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		http.Error(w, "unsupported image format", http.StatusBadRequest)
		return
	}

	id, err := s.service.IdentifyPlant(r.Context(), imageData, mimeType)
	switch {
	case errors.Is(err, service.ErrVisionDisabled):
		http.Error(w, "plant identification is not configured", http.StatusNotImplemented)
		return
	case errors.Is(err, vision.ErrNoIdentification):
		http.Error(w, "no plant identified", http.StatusUnprocessableEntity)
		return
	case err != nil:
		http.Error(w, "failed to identify plant", http.StatusBadGateway)
		s.logger.Error("identify plant failed", logging.Error(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(id); err != nil {
		s.logger.Error("write identify response failed", logging.Error(err))
	}
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid plant id", http.StatusBadRequest)
		return
	}

	reader, mimeType, err := s.service.PlantPhoto(r.Context(), id)
	if errors.Is(err, photostore.ErrNotFound) || errors.Is(err, photostore.ErrForeignURI) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to get photo", http.StatusInternalServerError)
		s.logger.Error("get photo failed", logging.PlantID(id), logging.Error(err))
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", logging.PlantID(id), logging.Error(err))
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, logging.Error(err))
	}
}
