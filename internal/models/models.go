package models

// MediaFile describes one materialized media item in the app cache.
type MediaFile struct {
	Path      string `json:"path"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	// Type is the top-level category: image, video, audio or other.
	Type string `json:"type"`
}

// MediaTypeFilter values accepted by the gallery picker.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
	MediaTypeAll   = "all"
)
