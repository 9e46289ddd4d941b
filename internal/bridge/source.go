package bridge

// Source adapts a NativeCamera to the media processor's reader
// interface without the processor knowing about the bridge.
type Source struct {
	Camera NativeCamera
}

func (s Source) Read(uri string) ([]byte, error) {
	return s.Camera.ReadMedia(uri)
}

func (s Source) ContentType(uri string) string {
	return s.Camera.MediaContentType(uri)
}

func (s Source) Remove(uri string) error {
	return s.Camera.RemoveMedia(uri)
}
