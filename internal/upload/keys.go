package upload

import (
	"mime"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// CheckContentType returns the normalized media type, or an
// *UnsupportedMediaTypeError when it is not an allowed image type.
func CheckContentType(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil || !allowedTypes[mediaType] {
		return "", &UnsupportedMediaTypeError{ContentType: contentType}
	}
	return mediaType, nil
}

// SanitizeFileName replaces every character other than ASCII letters, digits,
// '.' and '-' with '_'.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "file"
	}
	return unsafeNameChars.ReplaceAllString(name, "_")
}

func newKey(prefix, fileName string) string {
	return prefix + "/" + uuid.NewString() + "-" + SanitizeFileName(fileName)
}
