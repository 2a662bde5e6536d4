package validator

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNotImage = errors.New("only image files are allowed")
	ErrTooLarge = errors.New("file too large")
)

var allowedImage = regexp.MustCompile(`^(jpeg|jpg|png|gif)$`)

// Image is an accepted upload.
type Image struct {
	Data        []byte
	Ext         string
	ContentType string
}

type ImageValidator struct {
	maxBytes int64
}

func NewImageValidator(maxBytes int64) *ImageValidator {
	return &ImageValidator{maxBytes: maxBytes}
}

func (v *ImageValidator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate accepts JPEG, PNG and GIF uploads within the size limit. The file
// name extension and the declared type must both name an allowed format, and
// the content itself must sniff as an image.
func (v *ImageValidator) Validate(filename, declaredType string, data []byte) (*Image, error) {
	if int64(len(data)) > v.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), v.maxBytes)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !allowedImage.MatchString(ext) {
		return nil, ErrNotImage
	}

	declared := strings.ToLower(strings.TrimSpace(declaredType))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if !strings.HasPrefix(declared, "image/") || !allowedImage.MatchString(strings.TrimPrefix(declared, "image/")) {
		return nil, ErrNotImage
	}

	detected := mimetype.Detect(data)
	if !detected.Is("image/jpeg") && !detected.Is("image/png") && !detected.Is("image/gif") {
		return nil, ErrNotImage
	}

	return &Image{
		Data:        data,
		Ext:         "." + ext,
		ContentType: detected.String(),
	}, nil
}
