package validation

import (
	"testing"

	apperrors "go-detection-viewer/internal/errors"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"cat.jpg", "cat.jpg"},
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{"i contain cool ümläuts.txt", "i_contain_cool_umlauts.txt"},
		{"..\\windows\\path.png", "windows_path.png"},
		{"  spaced   out  .png", "spaced_out_.png"},
		{"émoji😀.jpeg", "emoji.jpeg"},
		{"..", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, expected %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"cat.jpg":         "jpg",
		"CAT.JPEG":        "jpeg",
		"archive.tar.gz":  "gz",
		"noextension":     "",
		"trailingdot.":    "",
		".hidden":         "hidden",
		"photo.final.PNG": "png",
	}
	for in, expected := range tests {
		if got := Extension(in); got != expected {
			t.Errorf("Extension(%q) = %q, expected %q", in, got, expected)
		}
	}
}

func TestValidateExtension_Allowed(t *testing.T) {
	validator := NewUploadValidator()

	for _, name := range []string{"a.jpg", "a.jpeg", "a.png", "A.JPG", "dots.in.name.Png"} {
		if err := validator.ValidateExtension(name); err != nil {
			t.Errorf("Expected %s to be accepted, got %v", name, err)
		}
	}
}

func TestValidateExtension_Rejected(t *testing.T) {
	validator := NewUploadValidator()

	for _, name := range []string{"a.gif", "a.bmp", "a.txt", "noext", "a.", "a.jpg.exe"} {
		err := validator.ValidateExtension(name)
		if err == nil {
			t.Errorf("Expected %s to be rejected", name)
			continue
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeUnsupportedFormat) {
			t.Errorf("Expected unsupported_format error for %s, got %v", name, err)
		}
		if apperrors.UserMessage(err) != UnsupportedFormatMessage {
			t.Errorf("Unexpected message for %s: %s", name, apperrors.UserMessage(err))
		}
	}
}

func TestNewUploadValidatorWithExtensions(t *testing.T) {
	validator := NewUploadValidatorWithExtensions([]string{".WEBP", "gif"})

	if err := validator.ValidateExtension("x.webp"); err != nil {
		t.Errorf("Expected webp to be accepted, got %v", err)
	}
	if err := validator.ValidateExtension("x.gif"); err != nil {
		t.Errorf("Expected gif to be accepted, got %v", err)
	}
	if err := validator.ValidateExtension("x.jpg"); err == nil {
		t.Error("Expected jpg to be rejected by custom validator")
	}
}
