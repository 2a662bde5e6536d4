package validator

import (
	"errors"
	"testing"
)

var (
	pngHeader  = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00")
)

func TestImageValidator_Accepts(t *testing.T) {
	v := NewImageValidator(1024)

	tests := []struct {
		filename string
		declared string
		data     []byte
		wantExt  string
	}{
		{"photo.png", "image/png", pngHeader, ".png"},
		{"PHOTO.JPG", "image/jpeg", jpegHeader, ".jpg"},
		{"pic.jpeg", "image/jpeg", jpegHeader, ".jpeg"},
		{"anim.gif", "image/gif", gifHeader, ".gif"},
	}
	for _, tt := range tests {
		img, err := v.Validate(tt.filename, tt.declared, tt.data)
		if err != nil {
			t.Errorf("Validate(%s): unexpected error %v", tt.filename, err)
			continue
		}
		if img.Ext != tt.wantExt {
			t.Errorf("Validate(%s): ext %s, want %s", tt.filename, img.Ext, tt.wantExt)
		}
	}
}

func TestImageValidator_Rejects(t *testing.T) {
	v := NewImageValidator(1024)

	tests := []struct {
		name     string
		filename string
		declared string
		data     []byte
	}{
		{"wrong extension", "notes.txt", "image/png", pngHeader},
		{"no extension", "photo", "image/png", pngHeader},
		{"wrong declared type", "photo.png", "application/pdf", pngHeader},
		{"webp declared", "photo.png", "image/webp", pngHeader},
		{"content not an image", "photo.png", "image/png", []byte("%PDF-1.4 not really")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Validate(tt.filename, tt.declared, tt.data); !errors.Is(err, ErrNotImage) {
				t.Errorf("Expected ErrNotImage, got %v", err)
			}
		})
	}
}

func TestImageValidator_TooLarge(t *testing.T) {
	v := NewImageValidator(8)
	if _, err := v.Validate("photo.png", "image/png", pngHeader); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
}
