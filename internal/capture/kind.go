package capture

import (
	"fmt"

	"github.com/lumo-cam/lumo/internal/models"
)

// Kind discriminates the three capture flows. Immutable once an
// operation starts.
type Kind string

const (
	KindPhoto   Kind = "photo"
	KindVideo   Kind = "video"
	KindGallery Kind = "gallery"
)

// Event names delivered to the embedding application. The success name
// may be overridden per launch; the rest are fixed.
const (
	EventPhotoTaken       = "cameraPhotoTaken"
	EventVideoRecorded    = "cameraVideoRecorded"
	EventMediaPicked      = "cameraMediaPicked"
	EventPhotoCancelled   = "cameraPhotoCancelled"
	EventVideoCancelled   = "cameraVideoCancelled"
	EventPermissionDenied = "cameraPermissionDenied"
)

// DefaultEvent is the success event name for the kind.
func (k Kind) DefaultEvent() string {
	switch k {
	case KindPhoto:
		return EventPhotoTaken
	case KindVideo:
		return EventVideoRecorded
	default:
		return EventMediaPicked
	}
}

// CancelEvent is where cancellations and IO failures land. Gallery
// picks report cancellation inside the success-shaped payload, so they
// share the pick event name.
func (k Kind) CancelEvent() string {
	switch k {
	case KindPhoto:
		return EventPhotoCancelled
	case KindVideo:
		return EventVideoCancelled
	default:
		return EventMediaPicked
	}
}

// Request carries one launch. Kind-specific fields are validated and
// defaulted once, at Normalize, never at use sites.
type Request struct {
	Kind Kind

	// Token correlates the eventual event back to this launch. Empty
	// means no correlation was requested and payloads omit the field.
	Token string

	// Event overrides the kind's default success event name.
	Event string

	// MaxDuration caps video recording, in seconds. Zero means no cap.
	MaxDuration int

	// MediaType filters gallery picks: image, video or all.
	MediaType string

	// Multiple allows selecting more than one gallery item, up to
	// MaxItems.
	Multiple bool
	MaxItems int
}

// Normalize validates the request and fills kind defaults in place.
func (r *Request) Normalize(galleryCap int) error {
	switch r.Kind {
	case KindPhoto:
	case KindVideo:
		if r.MaxDuration < 0 {
			return fmt.Errorf("maxDuration must not be negative, got %d", r.MaxDuration)
		}
	case KindGallery:
		switch r.MediaType {
		case "":
			r.MediaType = models.MediaTypeAll
		case models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeAll:
		default:
			return fmt.Errorf("unknown mediaType %q", r.MediaType)
		}
		if !r.Multiple {
			r.MaxItems = 1
		} else if r.MaxItems < 1 {
			r.MaxItems = galleryCap
		}
	default:
		return fmt.Errorf("unknown operation kind %q", r.Kind)
	}
	if r.Event == "" {
		r.Event = r.Kind.DefaultEvent()
	}
	return nil
}
