// Package classify maps a file path to a coarse share.Kind by guessing its
// content type from the extension.
package classify

import (
	"mime"
	"path"
	"strings"

	"go.klb.dev/sharecast/internal/share"
)

// builtin covers the common gallery and document types so classification does
// not depend on the host's mime.types file.
var builtin = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".heic": "image/heic",
	".heif": "image/heif",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".3gp":  "video/3gpp",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".md":   "text/markdown",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".mp3":  "audio/mpeg",
}

// ContentType returns the guessed content type for p, or "" when the
// extension is unknown.
func ContentType(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return ""
	}
	if ct, ok := builtin[ext]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

// Classify returns the Kind for p. It never fails: anything unrecognized is
// share.KindAny.
func Classify(p string) share.Kind {
	ct := ContentType(p)
	switch {
	case strings.HasPrefix(ct, "image"):
		return share.KindImage
	case strings.HasPrefix(ct, "video"):
		return share.KindVideo
	case strings.HasPrefix(ct, "text"):
		return share.KindText
	default:
		return share.KindAny
	}
}
