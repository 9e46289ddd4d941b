package bridge

// Permission states reported by the native side.
const (
	PermissionUndetermined = 0
	PermissionGranted      = 1
	PermissionDenied       = 2
)

// NativeCamera is implemented by the native side (Swift/Kotlin).
// gomobile exposes this as an interface that native code can satisfy.
//
// Rules for gomobile compatibility:
//   - methods may only use primitive types, strings, []byte, or other
//     gomobile-bound types as parameters and return values
//   - no variadic parameters
//   - errors are returned as a second return value
//
// All Show* calls present an OS picker or capture UI and return
// immediately; the outcome arrives later through the callback object,
// keyed by the request id the Go side handed in.
type NativeCamera interface {
	// PermissionStatus returns the current camera permission state as
	// one of the Permission* constants.
	PermissionStatus() int

	// RequestPermission shows the system permission prompt. The
	// callback fires exactly once, on the platform's main thread.
	RequestPermission(cb PermissionCallback)

	// HasCameraHardware reports whether a still camera is present.
	HasCameraHardware() bool

	// HasVideoCapture reports whether video recording is available.
	HasVideoCapture() bool

	// StartForegroundHold asks the shell to keep the process resident
	// while an external capture UI holds the foreground (foreground
	// service on Android, background task assertion on iOS).
	StartForegroundHold() error

	// StopForegroundHold releases the hold taken by StartForegroundHold.
	StopForegroundHold() error

	// ShowCamera opens the capture UI writing a still image to destPath.
	ShowCamera(requestID string, destPath string, cb CaptureCallback) error

	// ShowVideoRecorder opens the video capture UI writing to destPath.
	// maxDurationSeconds of zero means no limit.
	ShowVideoRecorder(requestID string, destPath string, maxDurationSeconds int, cb CaptureCallback) error

	// ShowMediaPicker opens the system gallery picker. mediaType is one
	// of "image", "video" or "all".
	ShowMediaPicker(requestID string, mediaType string, multiple bool, maxItems int, cb PickCallback) error

	// ReadMedia returns the bytes behind an OS media URI (content://,
	// ph://, file paths).
	ReadMedia(uri string) ([]byte, error)

	// MediaContentType returns the MIME type the OS reports for uri, or
	// an empty string when it has none.
	MediaContentType(uri string) string

	// RemoveMedia deletes the transient OS store entry behind uri, if
	// one was created for the capture. Best effort.
	RemoveMedia(uri string) error
}

// PermissionCallback receives the outcome of a permission prompt.
type PermissionCallback interface {
	OnPermissionResult(granted bool)
}

// CaptureCallback receives the terminal outcome of a photo or video
// capture flow. Exactly one method fires per request id.
type CaptureCallback interface {
	OnCaptured(requestID string, uri string)
	OnCancelled(requestID string)
	OnFailed(requestID string, message string)
}

// PickCallback receives the terminal outcome of a gallery pick.
// urisJSON is a JSON array of media URIs in selection order; the
// encoding keeps the signature gomobile-safe.
type PickCallback interface {
	OnPicked(requestID string, urisJSON string)
	OnCancelled(requestID string)
	OnFailed(requestID string, message string)
}
