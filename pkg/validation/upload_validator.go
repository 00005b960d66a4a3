package validation

import (
	"regexp"
	"runtime"
	"strings"

	apperrors "go-detection-viewer/internal/errors"

	"golang.org/x/text/unicode/norm"
)

// UnsupportedFormatMessage is returned to the client for rejected uploads.
const UnsupportedFormatMessage = "Unsupported file format. Please upload JPG, JPEG, or PNG files."

var (
	filenameStripRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

	windowsDeviceFiles = map[string]bool{
		"CON": true, "PRN": true, "AUX": true, "NUL": true,
		"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
		"COM6": true, "COM7": true, "COM8": true, "COM9": true,
		"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
		"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	}
)

// UploadValidator handles upload filename checks
type UploadValidator struct {
	allowedExtensions []string
}

// NewUploadValidator creates a validator accepting jpg, jpeg and png
func NewUploadValidator() *UploadValidator {
	return &UploadValidator{
		allowedExtensions: []string{"jpg", "jpeg", "png"},
	}
}

// NewUploadValidatorWithExtensions creates a validator with a custom extension list
func NewUploadValidatorWithExtensions(extensions []string) *UploadValidator {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		normalized = append(normalized, strings.ToLower(strings.TrimPrefix(ext, ".")))
	}
	return &UploadValidator{allowedExtensions: normalized}
}

// ValidateExtension rejects filenames whose extension is not allowed.
// The extension is read from the original (unsanitized) filename.
func (v *UploadValidator) ValidateExtension(filename string) error {
	ext := Extension(filename)
	if !v.isExtensionAllowed(ext) {
		return apperrors.NewUnsupportedFormatError(UnsupportedFormatMessage, ext)
	}
	return nil
}

func (v *UploadValidator) isExtensionAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range v.allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Extension returns the lower-cased text after the last dot, or "" when
// the name has no dot.
func Extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// SanitizeFilename reduces a client supplied filename to a flat ASCII name
// that is safe to join onto a directory. The result may be empty.
func SanitizeFilename(filename string) string {
	filename = norm.NFKD.String(filename)

	var b strings.Builder
	for _, r := range filename {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	filename = b.String()

	filename = strings.NewReplacer("/", " ", "\\", " ").Replace(filename)
	filename = strings.Join(strings.Fields(filename), "_")
	filename = filenameStripRe.ReplaceAllString(filename, "")
	filename = strings.Trim(filename, "._")

	if runtime.GOOS == "windows" && filename != "" {
		base := strings.ToUpper(strings.SplitN(filename, ".", 2)[0])
		if windowsDeviceFiles[base] {
			filename = "_" + filename
		}
	}
	return filename
}
