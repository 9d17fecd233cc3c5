package upload

import (
	"mime"
	"net/http"
	"path/filepath"
)

// DetectMediaType guesses a media type from the file extension, then from the content.
func DetectMediaType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	if len(data) == 0 {
		return ""
	}
	return http.DetectContentType(data)
}
