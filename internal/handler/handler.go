package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/clearcity/api/internal/validator"
	"github.com/gin-gonic/gin"
	playground "github.com/go-playground/validator/v10"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// isMissingField reports whether a binding error came from a failed
// `binding:"required"` rule rather than a malformed body.
func isMissingField(err error) bool {
	var verrs playground.ValidationErrors
	return errors.As(err, &verrs)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// parseCoordinate reads an optional numeric form or query value. Empty and
// malformed values both count as absent.
func parseCoordinate(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// readImage loads and validates the multipart file under field. It returns
// nil, nil when the field is absent or the body is not multipart.
func readImage(c *gin.Context, field string, v *validator.ImageValidator) (*validator.Image, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, validator.ErrTooLarge
		}
		return nil, err
	}
	return loadUpload(fh, v)
}

func loadUpload(fh *multipart.FileHeader, v *validator.ImageValidator) (*validator.Image, error) {
	if fh.Size > v.MaxBytes() {
		return nil, validator.ErrTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, v.MaxBytes()+1))
	if err != nil {
		return nil, err
	}
	return v.Validate(fh.Filename, fh.Header.Get("Content-Type"), data)
}

// respondUploadError maps upload validation failures to 400s. It reports
// false for errors it does not recognise.
func respondUploadError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, validator.ErrNotImage):
		respondError(c, http.StatusBadRequest, "Only image files are allowed!")
	case errors.Is(err, validator.ErrTooLarge):
		respondError(c, http.StatusBadRequest, "File too large")
	default:
		return false
	}
	return true
}
