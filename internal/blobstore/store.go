// Package blobstore stores uploaded subject images on local disk or in S3-compatible storage.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"

	"subjecthub/internal/models"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Object is a blob ready to be stored.
type Object struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store persists blobs and resolves their public URL.
type Store interface {
	// Put stores obj and returns the key that identifies it.
	Put(ctx context.Context, obj Object) (string, error)
	// Delete removes the blob. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the address a browser can load the blob from.
	URL(key string) string
}

// imageFormat is an upload format accepted for subject images.
type imageFormat struct {
	decoder     string // name reported by image.DecodeConfig
	contentType string
	extension   string
	aliases     []string
}

var imageFormats = []imageFormat{
	{decoder: "jpeg", contentType: "image/jpeg", extension: ".jpg", aliases: []string{"image/jpg", "image/pjpeg"}},
	{decoder: "png", contentType: "image/png", extension: ".png"},
	{decoder: "gif", contentType: "image/gif", extension: ".gif"},
	{decoder: "webp", contentType: "image/webp", extension: ".webp"},
}

// formatByType resolves a Content-Type header value, parameters and aliases included.
func formatByType(contentType string) (imageFormat, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	for _, f := range imageFormats {
		if f.contentType == mediaType || slices.Contains(f.aliases, mediaType) {
			return f, true
		}
	}
	return imageFormat{}, false
}

func formatByDecoder(name string) (imageFormat, bool) {
	for _, f := range imageFormats {
		if f.decoder == name {
			return f, true
		}
	}
	return imageFormat{}, false
}

// NewKey returns a fresh collision-free key with the extension for contentType.
func NewKey(contentType string) string {
	f, _ := formatByType(contentType)
	return uuid.NewString() + f.extension
}

// PrepareImage validates an uploaded subject image and returns it as an Object.
// The bytes must sniff and decode as the same JPEG, PNG, GIF or WebP image and
// fit in maxBytes. A browser-supplied image/* type must agree with the content.
func PrepareImage(filename, providedType string, content []byte, maxBytes int64) (Object, error) {
	if len(content) == 0 {
		return Object{}, models.NewValidationError("image", "An image file is required")
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return Object{}, models.NewValidationError("image", fmt.Sprintf("Image too large (max %dMB)", maxBytes/(1024*1024)))
	}

	if _, ok := formatByType(http.DetectContentType(content)); !ok {
		return Object{}, models.NewValidationError("image", "Invalid image type")
	}

	_, decoder, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return Object{}, models.NewValidationError("image", "Invalid image file")
	}
	format, ok := formatByDecoder(decoder)
	if !ok {
		return Object{}, models.NewValidationError("image", "Unsupported image format")
	}

	if provided, ok := formatByType(providedType); ok && provided.contentType != format.contentType {
		return Object{}, models.NewValidationError("image", "Image content type mismatch")
	}
	if !ok && strings.HasPrefix(strings.ToLower(strings.TrimSpace(providedType)), "image/") {
		return Object{}, models.NewValidationError("image", "Image content type mismatch")
	}

	return Object{
		Name:        filename,
		ContentType: format.contentType,
		Size:        int64(len(content)),
		Body:        bytes.NewReader(content),
	}, nil
}
