package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// Simulator is a NativeCamera for the desktop dev shell and tests. It
// fabricates small media files instead of driving real hardware, and
// fires callbacks asynchronously the way a platform shell would.
type Simulator struct {
	// Dir is where simulated OS media lands (the fake DCIM store).
	Dir string

	// Permission is the initial permission state. A prompt resolves to
	// PromptGrants.
	Permission   int32
	PromptGrants bool

	// CancelNext makes the next Show* call resolve as a user cancel.
	CancelNext atomic.Bool

	// Latency before a callback fires. Zero means 10ms.
	Latency time.Duration

	holds atomic.Int32
	seq   atomic.Int64
}

func NewSimulator(dir string) *Simulator {
	return &Simulator{
		Dir:          dir,
		Permission:   PermissionUndetermined,
		PromptGrants: true,
	}
}

func (s *Simulator) PermissionStatus() int {
	return int(atomic.LoadInt32(&s.Permission))
}

func (s *Simulator) RequestPermission(cb PermissionCallback) {
	go func() {
		time.Sleep(s.latency())
		if s.PromptGrants {
			atomic.StoreInt32(&s.Permission, PermissionGranted)
		} else {
			atomic.StoreInt32(&s.Permission, PermissionDenied)
		}
		cb.OnPermissionResult(s.PromptGrants)
	}()
}

func (s *Simulator) HasCameraHardware() bool { return true }
func (s *Simulator) HasVideoCapture() bool   { return true }

func (s *Simulator) StartForegroundHold() error {
	s.holds.Add(1)
	return nil
}

func (s *Simulator) StopForegroundHold() error {
	s.holds.Add(-1)
	return nil
}

// ActiveHolds reports outstanding foreground holds, for tests.
func (s *Simulator) ActiveHolds() int {
	return int(s.holds.Load())
}

func (s *Simulator) ShowCamera(requestID string, destPath string, cb CaptureCallback) error {
	go func() {
		time.Sleep(s.latency())
		if s.CancelNext.CompareAndSwap(true, false) {
			cb.OnCancelled(requestID)
			return
		}
		if err := os.WriteFile(destPath, jpegStub(), 0600); err != nil {
			cb.OnFailed(requestID, err.Error())
			return
		}
		cb.OnCaptured(requestID, destPath)
	}()
	return nil
}

func (s *Simulator) ShowVideoRecorder(requestID string, destPath string, maxDurationSeconds int, cb CaptureCallback) error {
	go func() {
		time.Sleep(s.latency())
		if s.CancelNext.CompareAndSwap(true, false) {
			cb.OnCancelled(requestID)
			return
		}
		if err := os.WriteFile(destPath, mp4Stub(), 0600); err != nil {
			cb.OnFailed(requestID, err.Error())
			return
		}
		cb.OnCaptured(requestID, destPath)
	}()
	return nil
}

func (s *Simulator) ShowMediaPicker(requestID string, mediaType string, multiple bool, maxItems int, cb PickCallback) error {
	go func() {
		time.Sleep(s.latency())
		if s.CancelNext.CompareAndSwap(true, false) {
			cb.OnCancelled(requestID)
			return
		}
		n := 1
		if multiple {
			n = maxItems
			if n > 3 {
				n = 3
			}
		}
		uris := make([]string, 0, n)
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("sim_%d.jpg", s.seq.Add(1))
			data := jpegStub()
			if mediaType == "video" {
				name = fmt.Sprintf("sim_%d.mp4", s.seq.Add(1))
				data = mp4Stub()
			}
			path := filepath.Join(s.Dir, name)
			if err := os.WriteFile(path, data, 0600); err != nil {
				cb.OnFailed(requestID, err.Error())
				return
			}
			uris = append(uris, path)
		}
		out, _ := json.Marshal(uris)
		cb.OnPicked(requestID, string(out))
	}()
	return nil
}

func (s *Simulator) ReadMedia(uri string) ([]byte, error) {
	return os.ReadFile(uri)
}

func (s *Simulator) MediaContentType(uri string) string {
	switch strings.ToLower(filepath.Ext(uri)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	}
	return ""
}

func (s *Simulator) RemoveMedia(uri string) error {
	// Only reap entries from the simulated store, never arbitrary paths.
	if !strings.HasPrefix(uri, s.Dir) {
		return nil
	}
	return os.Remove(uri)
}

func (s *Simulator) latency() time.Duration {
	if s.Latency > 0 {
		return s.Latency
	}
	return 10 * time.Millisecond
}

func jpegStub() []byte {
	return append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("lumo-sim")...)
}

func mp4Stub() []byte {
	return append([]byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'}, []byte("isomlumo")...)
}
