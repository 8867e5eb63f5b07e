// Package domain contains core business types and interfaces.
//
// This file defines the Photo type: a captured image carried inline as a
// base64 data URL until it is uploaded.
package domain

import (
	"encoding/base64"
	"strings"
)

// =============================================================================
// Photo Constants
// =============================================================================

// SupportedImageTypes maps MIME types to their human-readable names.
var SupportedImageTypes = map[string]string{
	"image/jpeg": "JPEG",
	"image/png":  "PNG",
	"image/webp": "WebP",
}

const (
	// MaxImageSize is the maximum allowed decoded size of a photo (20MB).
	MaxImageSize = 20 * 1024 * 1024

	// UploadContentType is the media type declared for uploaded photos.
	UploadContentType = "image/jpeg"
)

// =============================================================================
// Photo
// =============================================================================

// Photo is an image encoded as a data URL, e.g. "data:image/jpeg;base64,...".
type Photo string

// MediaType returns the MIME type declared in the data URL header, or an
// empty string when the header is malformed.
func (p Photo) MediaType() string {
	header, _, ok := strings.Cut(string(p), ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return ""
	}
	mt, _, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
	return mt
}

// Decode returns the raw image bytes and MIME type.
func (p Photo) Decode() ([]byte, string, error) {
	const op = "photo.decode"

	header, payload, ok := strings.Cut(string(p), ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return nil, "", Invalid(op, "Photo is not a data URL")
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, "", Invalid(op, "Photo data URL must be base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", Wrap(err, EINVALID, op, "Photo data is not valid base64")
	}
	return data, p.MediaType(), nil
}

// NewPhoto encodes raw image bytes as a data URL.
func NewPhoto(contentType string, data []byte) Photo {
	return Photo("data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// =============================================================================
// Validation Helpers
// =============================================================================

// IsValidImageContentType checks if the content type is supported.
func IsValidImageContentType(contentType string) bool {
	_, ok := SupportedImageTypes[contentType]
	return ok
}

// ValidateImageSize checks if the decoded size is within limits.
func ValidateImageSize(size int64) error {
	if size > MaxImageSize {
		return Errorf(ETOOLARGE, "image.validate", "Image size %d bytes exceeds maximum of %d bytes (%.1fMB)", size, MaxImageSize, float64(MaxImageSize)/(1024*1024))
	}
	if size == 0 {
		return Invalid("image.validate", "Image file is empty")
	}
	return nil
}

// ValidatePhoto decodes the photo and checks its type and size.
func ValidatePhoto(p Photo) error {
	data, mt, err := p.Decode()
	if err != nil {
		return err
	}
	if !IsValidImageContentType(mt) {
		return Errorf(EINVALID, "photo.validate", "Unsupported image type %q", mt)
	}
	return ValidateImageSize(int64(len(data)))
}
