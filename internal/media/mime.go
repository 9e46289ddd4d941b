package media

import "strings"

const (
	fallbackMime = "application/octet-stream"
	fallbackExt  = "bin"
)

// extToMime is the fixed lookup used for files the OS hands back with a
// usable extension. mimeToExt is its inverse, collapsed to one canonical
// extension per MIME type (jpeg and jpg both map to image/jpeg, which
// maps back to jpg).
var extToMime = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"heic": "image/heic",
	"heif": "image/heif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",

	"mp4":  "video/mp4",
	"m4v":  "video/x-m4v",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"3gp":  "video/3gpp",

	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"aac":  "audio/aac",
}

var mimeToExt = map[string]string{
	"image/jpeg":       "jpg",
	"image/png":        "png",
	"image/gif":        "gif",
	"image/webp":       "webp",
	"image/heic":       "heic",
	"image/heif":       "heif",
	"image/bmp":        "bmp",
	"image/tiff":       "tiff",
	"video/mp4":        "mp4",
	"video/x-m4v":      "m4v",
	"video/quicktime":  "mov",
	"video/x-msvideo":  "avi",
	"video/x-matroska": "mkv",
	"video/webm":       "webm",
	"video/3gpp":       "3gp",
	"audio/mpeg":       "mp3",
	"audio/mp4":        "m4a",
	"audio/wav":        "wav",
	"audio/ogg":        "ogg",
	"audio/flac":       "flac",
	"audio/aac":        "aac",
}

// MimeByExtension maps a file extension (with or without leading dot,
// any case) to its MIME type. Unknown extensions map to
// application/octet-stream.
func MimeByExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if m, ok := extToMime[ext]; ok {
		return m
	}
	return fallbackMime
}

// ExtensionByMime is the inverse lookup, used when the OS provides only
// a MIME type. Unknown types map to "bin".
func ExtensionByMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if e, ok := mimeToExt[mime]; ok {
		return e
	}
	return fallbackExt
}

// Category returns the top-level media category for a MIME type:
// image, video, audio or other.
func Category(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	default:
		return "other"
	}
}
