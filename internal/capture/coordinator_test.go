package capture

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumo-cam/lumo/internal/bridge"
	"github.com/lumo-cam/lumo/internal/media"
	"github.com/lumo-cam/lumo/internal/models"
	"github.com/lumo-cam/lumo/internal/state"
)

// fakeCamera is a scripted NativeCamera: Show* calls park the callback
// so the test decides when and how the OS answers.
type fakeCamera struct {
	mu sync.Mutex

	permission int
	hasCamera  bool
	hasVideo   bool

	holdStarts int
	holdStops  int

	showCalls int
	capture   bridge.CaptureCallback
	pick      bridge.PickCallback
	reqID     string
	dest      string

	files  map[string][]byte
	ctypes map[string]string
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{
		permission: bridge.PermissionGranted,
		hasCamera:  true,
		hasVideo:   true,
		files:      make(map[string][]byte),
		ctypes:     make(map[string]string),
	}
}

func (f *fakeCamera) PermissionStatus() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permission
}

func (f *fakeCamera) RequestPermission(cb bridge.PermissionCallback) {
	cb.OnPermissionResult(false)
}

func (f *fakeCamera) HasCameraHardware() bool { return f.hasCamera }
func (f *fakeCamera) HasVideoCapture() bool   { return f.hasVideo }

func (f *fakeCamera) StartForegroundHold() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdStarts++
	return nil
}

func (f *fakeCamera) StopForegroundHold() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdStops++
	return nil
}

func (f *fakeCamera) holds() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holdStarts, f.holdStops
}

func (f *fakeCamera) ShowCamera(requestID, destPath string, cb bridge.CaptureCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.showCalls++
	f.capture = cb
	f.reqID = requestID
	f.dest = destPath
	return nil
}

func (f *fakeCamera) ShowVideoRecorder(requestID, destPath string, maxDurationSeconds int, cb bridge.CaptureCallback) error {
	return f.ShowCamera(requestID, destPath, cb)
}

func (f *fakeCamera) ShowMediaPicker(requestID, mediaType string, multiple bool, maxItems int, cb bridge.PickCallback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.showCalls++
	f.pick = cb
	f.reqID = requestID
	return nil
}

func (f *fakeCamera) ReadMedia(uri string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.files[uri]; ok {
		return data, nil
	}
	return os.ReadFile(uri)
}

func (f *fakeCamera) MediaContentType(uri string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctypes[uri]
}

func (f *fakeCamera) RemoveMedia(uri string) error { return nil }

// completeCapture plays the OS writing the destination and answering.
func (f *fakeCamera) completeCapture(t *testing.T, data []byte) {
	t.Helper()
	f.mu.Lock()
	cb, id, dest := f.capture, f.reqID, f.dest
	f.mu.Unlock()
	require.NotNil(t, cb, "no capture UI was presented")
	require.NoError(t, os.WriteFile(dest, data, 0600))
	cb.OnCaptured(id, dest)
}

func (f *fakeCamera) cancelCapture(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	cb, id := f.capture, f.reqID
	f.mu.Unlock()
	require.NotNil(t, cb, "no capture UI was presented")
	cb.OnCancelled(id)
}

func (f *fakeCamera) completePick(t *testing.T, uris []string) {
	t.Helper()
	f.mu.Lock()
	cb, id := f.pick, f.reqID
	f.mu.Unlock()
	require.NotNil(t, cb, "no picker UI was presented")
	out, err := json.Marshal(uris)
	require.NoError(t, err)
	cb.OnPicked(id, string(out))
}

type sinkEvent struct {
	name    string
	payload map[string]any
}

type recordSink struct {
	mu     sync.Mutex
	events []sinkEvent
	ch     chan sinkEvent
}

func newRecordSink() *recordSink {
	return &recordSink{ch: make(chan sinkEvent, 16)}
}

func (s *recordSink) Dispatch(event string, payload map[string]any) {
	s.mu.Lock()
	s.events = append(s.events, sinkEvent{name: event, payload: payload})
	s.mu.Unlock()
	s.ch <- sinkEvent{name: event, payload: payload}
}

func (s *recordSink) next(t *testing.T) sinkEvent {
	t.Helper()
	select {
	case e := <-s.ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event dispatched")
		return sinkEvent{}
	}
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type testRig struct {
	coord  *Coordinator
	camera *fakeCamera
	sink   *recordSink
	store  *state.Store
	proc   *media.Processor
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	camera := newFakeCamera()
	sink := newRecordSink()
	logger := testLogger()

	store, err := state.Open(filepath.Join(t.TempDir(), "state"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cacheDir := t.TempDir()
	proc := media.NewProcessor(cacheDir, bridge.Source{Camera: camera}, logger)
	t.Cleanup(proc.Close)

	gate := NewGate(camera, logger)
	guard := NewGuard(camera, time.Minute, logger)
	coord := NewCoordinator(
		camera, gate, guard, proc, store, sink,
		filepath.Join(cacheDir, "pending"), 10, logger,
	)
	return &testRig{coord: coord, camera: camera, sink: sink, store: store, proc: proc}
}

func TestPhotoSuccessEchoesToken(t *testing.T) {
	rig := newTestRig(t)

	err := rig.coord.Launch(context.Background(), Request{Kind: KindPhoto, Token: "tok-1"})
	require.NoError(t, err)

	rig.camera.completeCapture(t, []byte{0xFF, 0xD8, 0xFF})

	evt := rig.sink.next(t)
	assert.Equal(t, EventPhotoTaken, evt.name)
	assert.Equal(t, "tok-1", evt.payload["id"])
	assert.NotEmpty(t, evt.payload["path"])
	assert.Equal(t, "image/jpeg", evt.payload["mimeType"])
}

func TestPhotoWithoutTokenOmitsID(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindPhoto}))
	rig.camera.completeCapture(t, []byte("photo"))

	evt := rig.sink.next(t)
	assert.Equal(t, EventPhotoTaken, evt.name)
	_, present := evt.payload["id"]
	assert.False(t, present, "id must be omitted entirely, never null or empty")
}

func TestPhotoCancelled(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindPhoto, Token: "tok-c"}))
	rig.camera.cancelCapture(t)

	evt := rig.sink.next(t)
	assert.Equal(t, EventPhotoCancelled, evt.name)
	assert.Equal(t, true, evt.payload["cancelled"])
	assert.Equal(t, "tok-c", evt.payload["id"])
}

func TestCustomSuccessEventName(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindPhoto, Event: "myPhotoEvent"}))
	rig.camera.completeCapture(t, []byte("photo"))

	evt := rig.sink.next(t)
	assert.Equal(t, "myPhotoEvent", evt.name)
}

func TestDuplicateVideoRejected(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindVideo, Token: "first"}))

	err := rig.coord.Launch(context.Background(), Request{Kind: KindVideo, Token: "second"})
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	rig.camera.mu.Lock()
	shows := rig.camera.showCalls
	rig.camera.mu.Unlock()
	assert.Equal(t, 1, shows, "second launch must not present a second OS UI")

	// First operation completes untouched.
	rig.camera.completeCapture(t, []byte("video"))
	evt := rig.sink.next(t)
	assert.Equal(t, EventVideoRecorded, evt.name)
	assert.Equal(t, "first", evt.payload["id"])
	assert.Equal(t, 1, rig.sink.count(), "duplicate must not produce an event")
}

func TestGuardBalancedPerOperation(t *testing.T) {
	rig := newTestRig(t)

	// Success branch.
	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindPhoto}))
	rig.camera.completeCapture(t, []byte("a"))
	rig.sink.next(t)

	starts, stops := rig.camera.holds()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)

	// Cancel branch.
	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindPhoto}))
	rig.camera.cancelCapture(t)
	rig.sink.next(t)

	starts, stops = rig.camera.holds()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 2, stops)

	// Failure branch.
	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindPhoto}))
	rig.camera.mu.Lock()
	cb, id := rig.camera.capture, rig.camera.reqID
	rig.camera.mu.Unlock()
	cb.OnFailed(id, "lens fell off")
	rig.sink.next(t)

	starts, stops = rig.camera.holds()
	assert.Equal(t, 3, starts)
	assert.Equal(t, 3, stops)
}

func TestPermissionDeniedPhoto(t *testing.T) {
	rig := newTestRig(t)
	rig.camera.mu.Lock()
	rig.camera.permission = bridge.PermissionDenied
	rig.camera.mu.Unlock()

	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindPhoto, Token: "tok-p"}))

	evt := rig.sink.next(t)
	assert.Equal(t, EventPermissionDenied, evt.name)
	assert.Equal(t, "photo", evt.payload["action"])
	assert.Equal(t, "tok-p", evt.payload["id"])

	// No OS UI, no hold, no further events for this launch.
	rig.camera.mu.Lock()
	shows := rig.camera.showCalls
	rig.camera.mu.Unlock()
	assert.Equal(t, 0, shows)
	starts, _ := rig.camera.holds()
	assert.Equal(t, 0, starts)
	assert.Equal(t, 1, rig.sink.count())

	// Denial clears the pending record: a new launch is accepted.
	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindPhoto}))
	rig.sink.next(t)
}

func TestGalleryPickInOrder(t *testing.T) {
	rig := newTestRig(t)
	rig.camera.files["u/1"] = []byte("a")
	rig.camera.files["u/2"] = []byte("b")
	rig.camera.files["u/3"] = []byte("c")
	rig.camera.ctypes["u/1"] = "image/jpeg"
	rig.camera.ctypes["u/2"] = "video/mp4"
	rig.camera.ctypes["u/3"] = "image/png"

	require.NoError(t, rig.coord.Launch(context.Background(), Request{
		Kind:     KindGallery,
		Token:    "tok-g",
		Multiple: true,
		MaxItems: 3,
	}))
	rig.camera.completePick(t, []string{"u/1", "u/2", "u/3"})

	evt := rig.sink.next(t)
	assert.Equal(t, EventMediaPicked, evt.name)
	assert.Equal(t, true, evt.payload["success"])
	assert.Equal(t, 3, evt.payload["count"])
	assert.Equal(t, "tok-g", evt.payload["id"])

	files := evt.payload["files"].([]models.MediaFile)
	require.Len(t, files, 3)
	assert.Equal(t, "image/jpeg", files[0].MimeType)
	assert.Equal(t, "video/mp4", files[1].MimeType)
	assert.Equal(t, "image/png", files[2].MimeType)
	for _, f := range files {
		assert.NotEmpty(t, f.MimeType)
	}
}

func TestGalleryZeroSelections(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindGallery}))
	rig.camera.completePick(t, []string{})

	evt := rig.sink.next(t)
	assert.Equal(t, EventMediaPicked, evt.name)
	assert.Equal(t, false, evt.payload["success"])
	assert.Equal(t, 0, evt.payload["count"])
	assert.Equal(t, true, evt.payload["cancelled"])
	assert.Empty(t, evt.payload["files"])
}

func TestGalleryAllItemsFail(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindGallery}))
	rig.camera.completePick(t, []string{"missing/1", "missing/2"})

	evt := rig.sink.next(t)
	assert.Equal(t, false, evt.payload["success"])
	assert.Equal(t, 0, evt.payload["count"])
	assert.NotEmpty(t, evt.payload["error"])
	_, cancelled := evt.payload["cancelled"]
	assert.False(t, cancelled)
}

func TestGalleryPartialFailuresDropped(t *testing.T) {
	rig := newTestRig(t)
	rig.camera.files["u/ok"] = []byte("a")
	rig.camera.ctypes["u/ok"] = "image/jpeg"

	require.NoError(t, rig.coord.Launch(context.Background(), Request{
		Kind: KindGallery, Multiple: true, MaxItems: 2,
	}))
	rig.camera.completePick(t, []string{"missing/1", "u/ok"})

	evt := rig.sink.next(t)
	assert.Equal(t, true, evt.payload["success"])
	// count reflects files actually produced, not requested.
	assert.Equal(t, 1, evt.payload["count"])
}

func TestDuplicateGalleryRejected(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindGallery}))
	err := rig.coord.Launch(context.Background(), Request{Kind: KindGallery})
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestDifferentKindsMayOverlap(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindPhoto}))
	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindGallery}))
}

func TestVideoValidation(t *testing.T) {
	rig := newTestRig(t)

	err := rig.coord.Launch(context.Background(), Request{Kind: KindVideo, MaxDuration: -3})
	assert.ErrorContains(t, err, "must not be negative")
	assert.Equal(t, 0, rig.sink.count())
}

func TestGalleryMediaTypeValidation(t *testing.T) {
	rig := newTestRig(t)

	err := rig.coord.Launch(context.Background(), Request{Kind: KindGallery, MediaType: "documents"})
	assert.Error(t, err)
}

func TestResumeCompletesWrittenCapture(t *testing.T) {
	rig := newTestRig(t)

	dest := filepath.Join(t.TempDir(), "capture_1.jpg")
	require.NoError(t, os.WriteFile(dest, []byte("recovered"), 0600))
	require.NoError(t, rig.store.Put(state.Record{
		ID:        "op-1",
		Kind:      string(KindPhoto),
		Token:     "tok-r",
		EventName: EventPhotoTaken,
		DestPath:  dest,
		CreatedAt: time.Now(),
	}))

	rig.coord.Resume()

	evt := rig.sink.next(t)
	assert.Equal(t, EventPhotoTaken, evt.name)
	assert.Equal(t, "tok-r", evt.payload["id"])

	_, err := rig.store.Get("op-1")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestResumeDegradedRecordOmitsID(t *testing.T) {
	rig := newTestRig(t)

	dest := filepath.Join(t.TempDir(), "capture_2.jpg")
	require.NoError(t, os.WriteFile(dest, []byte("recovered"), 0600))
	// Token and event name lost across the rebuild.
	require.NoError(t, rig.store.Put(state.Record{
		ID:        "op-2",
		Kind:      string(KindVideo),
		DestPath:  dest,
		CreatedAt: time.Now(),
	}))

	rig.coord.Resume()

	evt := rig.sink.next(t)
	assert.Equal(t, EventVideoRecorded, evt.name, "falls back to the kind default event")
	_, present := evt.payload["id"]
	assert.False(t, present)
}

func TestResumeUnwrittenCaptureCancels(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.store.Put(state.Record{
		ID:        "op-3",
		Kind:      string(KindPhoto),
		Token:     "tok-u",
		DestPath:  filepath.Join(t.TempDir(), "never_written.jpg"),
		CreatedAt: time.Now(),
	}))

	rig.coord.Resume()

	evt := rig.sink.next(t)
	assert.Equal(t, EventPhotoCancelled, evt.name)
	assert.Equal(t, true, evt.payload["cancelled"])
	assert.Equal(t, "tok-u", evt.payload["id"])
}

func TestCallbackAfterShutdownIsDropped(t *testing.T) {
	rig := newTestRig(t)

	require.NoError(t, rig.coord.Launch(context.Background(), Request{Kind: KindPhoto, Token: "tok-s"}))

	rig.coord.Close()
	rig.proc.Close()

	// The OS answers after the core shut down. Must not fault the
	// process and must not emit an event.
	rig.camera.cancelCapture(t)

	assert.Never(t, func() bool { return rig.sink.count() > 0 },
		200*time.Millisecond, 20*time.Millisecond)

	// The guard was still released, and the record stays persisted so
	// the next start's recovery resolves the operation.
	_, stops := rig.camera.holds()
	assert.Equal(t, 1, stops)
	recs, err := rig.store.All()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "tok-s", recs[0].Token)
}

func TestClosedCoordinatorRejectsLaunch(t *testing.T) {
	rig := newTestRig(t)

	rig.coord.Close()
	err := rig.coord.Launch(context.Background(), Request{Kind: KindPhoto})
	assert.ErrorIs(t, err, ErrClosed)
}
