package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

const (
	// maxJSONBody bounds request bodies that carry no photos.
	maxJSONBody = 1 << 20

	// maxPhotoBody bounds request bodies that may carry photos. Base64 data
	// URLs are a third larger than the images they hold.
	maxPhotoBody = 32 << 20
)

// decodeJSON reads a JSON body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	const op = "handler.decode"

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return domain.Errorf(domain.ETOOLARGE, op, "Request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "Request body is required")
		default:
			return domain.Wrap(err, domain.EINVALID, op, "Request body is not valid JSON")
		}
	}
	return nil
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readPhotos returns the photos sent in a request, either as a JSON body
// {"photo": "data:..."} or as multipart files in the "photos" field.
// Each photo is validated.
func readPhotos(w http.ResponseWriter, r *http.Request) ([]domain.Photo, error) {
	const op = "handler.read_photos"

	if !isMultipart(r) {
		var req struct {
			Photo domain.Photo `json:"photo"`
		}
		if err := decodeJSON(w, r, maxPhotoBody, &req); err != nil {
			return nil, err
		}
		if req.Photo == "" {
			return nil, domain.NewValidationError(op, "photo", "Photo is required")
		}
		if err := domain.ValidatePhoto(req.Photo); err != nil {
			return nil, err
		}
		return []domain.Photo{req.Photo}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBody)
	if err := r.ParseMultipartForm(maxPhotoBody); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, domain.Errorf(domain.ETOOLARGE, op, "Upload exceeds %d bytes", maxErr.Limit)
		}
		return nil, domain.Wrap(err, domain.EINVALID, op, "Failed to parse form")
	}

	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		return nil, domain.NewValidationError(op, "photos", "No photos uploaded")
	}

	photos := make([]domain.Photo, 0, len(files))
	for _, fh := range files {
		photo, err := photoFromFile(fh)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, nil
}

// photoFromFile encodes an uploaded file as a photo data URL.
func photoFromFile(fh *multipart.FileHeader) (domain.Photo, error) {
	const op = "handler.read_photos"

	if err := domain.ValidateImageSize(fh.Size); err != nil {
		return "", err
	}

	f, err := fh.Open()
	if err != nil {
		return "", domain.Internal(err, op, "Failed to read upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", domain.Internal(err, op, "Failed to read upload")
	}

	// Browsers send a generic type for some camera formats
	contentType := fh.Header.Get("Content-Type")
	if !domain.IsValidImageContentType(contentType) {
		contentType = http.DetectContentType(data)
	}
	if !domain.IsValidImageContentType(contentType) {
		return "", domain.Invalid(op, fmt.Sprintf("%s: unsupported image type", fh.Filename))
	}

	photo := domain.NewPhoto(contentType, data)
	if err := domain.ValidatePhoto(photo); err != nil {
		return "", err
	}
	return photo, nil
}
