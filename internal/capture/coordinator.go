package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumo-cam/lumo/internal/bridge"
	"github.com/lumo-cam/lumo/internal/media"
	"github.com/lumo-cam/lumo/internal/models"
	"github.com/lumo-cam/lumo/internal/state"
)

// staleAge is how long a persisted pending record may sit before
// startup recovery gives up on it instead of completing it.
const staleAge = 24 * time.Hour

// EventSink receives the terminal event of every operation. The hub
// dispatcher implements it; tests substitute a recorder.
type EventSink interface {
	Dispatch(event string, payload map[string]any)
}

// Coordinator drives each capture flow through
// Idle → PermissionPending → AwaitingOsResult → Processing → Idle.
// One instance exists per hosting shell; at most one operation of each
// kind is in flight at a time.
type Coordinator struct {
	camera     bridge.NativeCamera
	gate       *Gate
	guard      *Guard
	proc       *media.Processor
	store      *state.Store
	sink       EventSink
	logger     *slog.Logger
	pendingDir string
	galleryCap int

	newID func() string
	now   func() time.Time

	mu       sync.Mutex
	inflight map[Kind]*PendingOperation
	closed   bool
}

func NewCoordinator(
	camera bridge.NativeCamera,
	gate *Gate,
	guard *Guard,
	proc *media.Processor,
	store *state.Store,
	sink EventSink,
	pendingDir string,
	galleryCap int,
	logger *slog.Logger,
) *Coordinator {
	if galleryCap < 1 {
		galleryCap = 25
	}
	return &Coordinator{
		camera:     camera,
		gate:       gate,
		guard:      guard,
		proc:       proc,
		store:      store,
		sink:       sink,
		logger:     logger,
		pendingDir: pendingDir,
		galleryCap: galleryCap,
		newID:      uuid.NewString,
		now:        time.Now,
		inflight:   make(map[Kind]*PendingOperation),
	}
}

// Launch starts one capture flow and returns immediately; the outcome
// arrives later as exactly one named event. The only error callers need
// to branch on is ErrDuplicateRequest, which produces no event because
// the original in-flight operation's event already satisfies them.
func (c *Coordinator) Launch(ctx context.Context, req Request) error {
	if err := req.Normalize(c.galleryCap); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if _, busy := c.inflight[req.Kind]; busy {
		c.mu.Unlock()
		c.logger.Warn("duplicate launch dropped", "kind", req.Kind)
		return ErrDuplicateRequest
	}
	op := &PendingOperation{
		ID:          c.newID(),
		Kind:        req.Kind,
		Token:       req.Token,
		Event:       req.Event,
		MaxDuration: req.MaxDuration,
		MediaType:   req.MediaType,
		Multiple:    req.Multiple,
		MaxItems:    req.MaxItems,
		CreatedAt:   c.now(),
	}
	c.inflight[req.Kind] = op
	c.mu.Unlock()

	if err := c.checkHardware(op.Kind); err != nil {
		c.logger.Error("capture hardware unavailable", "kind", op.Kind)
		c.clear(op)
		c.dispatchCancelled(op)
		return nil
	}

	status, err := c.gate.Ensure(ctx)
	if err != nil {
		c.logger.Warn("permission prompt interrupted", "kind", op.Kind, "err", err)
		status = PermissionDenied
	}
	if status == PermissionDenied {
		c.clear(op)
		c.sink.Dispatch(EventPermissionDenied, op.payload(map[string]any{
			"action": string(op.Kind),
		}))
		return nil
	}

	if op.Kind != KindGallery {
		dest, err := c.createDest(op.Kind)
		if err != nil {
			c.logger.Error("could not create capture destination", "err", err)
			c.clear(op)
			c.dispatchCancelled(op)
			return nil
		}
		op.DestPath = dest
	}

	// Persistence is best effort: losing it only costs recovery after a
	// process rebuild, not the live flow.
	if err := c.store.Put(op.record()); err != nil {
		c.logger.Warn("could not persist pending operation", "id", op.ID, "err", err)
	}

	c.guard.Start()

	ch := make(chan osResult, 1)
	switch op.Kind {
	case KindPhoto:
		err = c.camera.ShowCamera(op.ID, op.DestPath, &captureAdapter{ch: ch})
	case KindVideo:
		err = c.camera.ShowVideoRecorder(op.ID, op.DestPath, op.MaxDuration, &captureAdapter{ch: ch})
	case KindGallery:
		err = c.camera.ShowMediaPicker(op.ID, op.MediaType, op.Multiple, op.MaxItems, &pickAdapter{ch: ch})
	}
	if err != nil {
		c.logger.Error("os picker launch failed", "kind", op.Kind, "err", err)
		c.guard.Stop()
		c.removeDest(op)
		c.clear(op)
		c.dispatchCancelled(op)
		return nil
	}

	go c.await(op, ch)
	return nil
}

// await blocks until the OS callback fires. The guard is released
// synchronously before any processing, on every branch.
func (c *Coordinator) await(op *PendingOperation, ch <-chan osResult) {
	res := <-ch
	c.guard.Stop()
	c.proc.Enqueue(func() {
		c.finish(op, res)
	})
}

// finish runs on the processing worker and emits the single terminal
// event for the operation.
func (c *Coordinator) finish(op *PendingOperation, res osResult) {
	defer c.clear(op)

	if op.Kind == KindGallery {
		c.finishGallery(op, res)
		return
	}

	switch res.status {
	case resultCancelled:
		c.removeDest(op)
		c.dispatchCancelled(op)
	case resultFailed:
		c.logger.Error("capture failed", "kind", op.Kind, "reason", res.errMsg)
		c.removeDest(op)
		c.dispatchCancelled(op)
	default:
		uri := res.uri
		if uri == "" {
			uri = op.DestPath
		}
		var (
			file models.MediaFile
			err  error
		)
		if op.Kind == KindPhoto {
			file, err = c.proc.SavePhoto(uri)
		} else {
			file, err = c.proc.SaveVideo(uri)
		}
		c.removeDest(op)
		if err != nil {
			c.logger.Error("capture copy failed", "kind", op.Kind, "err", err)
			c.dispatchCancelled(op)
			return
		}
		c.sink.Dispatch(op.Event, op.payload(map[string]any{
			"path":     file.Path,
			"mimeType": file.MimeType,
		}))
	}
}

func (c *Coordinator) finishGallery(op *PendingOperation, res osResult) {
	empty := []models.MediaFile{}

	switch {
	case res.status == resultCancelled, res.status == resultOK && len(res.uris) == 0:
		c.sink.Dispatch(op.Event, op.payload(map[string]any{
			"success":   false,
			"files":     empty,
			"count":     0,
			"cancelled": true,
		}))
	case res.status == resultFailed:
		c.sink.Dispatch(op.Event, op.payload(map[string]any{
			"success": false,
			"files":   empty,
			"count":   0,
			"error":   res.errMsg,
		}))
	default:
		files, err := c.proc.SaveGallery(res.uris)
		if err != nil {
			c.logger.Error("gallery copy failed", "err", err)
			c.sink.Dispatch(op.Event, op.payload(map[string]any{
				"success": false,
				"files":   empty,
				"count":   0,
				"error":   "could not copy selected media",
			}))
			return
		}
		c.sink.Dispatch(op.Event, op.payload(map[string]any{
			"success": true,
			"files":   files,
			"count":   len(files),
		}))
	}
}

// Resume reloads persisted pending records after a process rebuild.
// Captures whose destination was written are completed through the
// normal processing path; anything else gets its cancellation event so
// a correlating caller never hangs. Records older than staleAge are
// reaped silently.
func (c *Coordinator) Resume() {
	swept, err := c.store.SweepOlderThan(staleAge)
	if err != nil {
		c.logger.Warn("stale record sweep failed", "err", err)
	}
	for _, rec := range swept {
		if rec.DestPath != "" {
			os.Remove(rec.DestPath)
		}
		c.logger.Info("reaped stale pending operation", "id", rec.ID, "kind", rec.Kind)
	}

	recs, err := c.store.All()
	if err != nil {
		c.logger.Error("could not load pending operations", "err", err)
		return
	}
	for _, rec := range recs {
		op := fromRecord(rec)
		if op.Event == "" {
			// Degraded path: the event-name association did not survive
			// the rebuild. Fall back to the kind default; the token may
			// be gone too, in which case the payload carries no id.
			op.Event = op.Kind.DefaultEvent()
		}

		if op.Kind == KindGallery {
			// A pick in flight across a rebuild cannot be recovered:
			// the OS returns its selection to the dead process.
			c.clear(op)
			c.sink.Dispatch(op.Event, op.payload(map[string]any{
				"success":   false,
				"files":     []models.MediaFile{},
				"count":     0,
				"cancelled": true,
			}))
			continue
		}

		info, statErr := os.Stat(op.DestPath)
		if statErr == nil && info.Size() > 0 {
			c.mu.Lock()
			c.inflight[op.Kind] = op
			c.mu.Unlock()
			c.logger.Info("recovering completed capture", "id", op.ID, "kind", op.Kind)
			c.proc.Enqueue(func() {
				c.finish(op, osResult{status: resultOK, uri: op.DestPath})
			})
			continue
		}

		c.removeDest(op)
		c.clear(op)
		c.dispatchCancelled(op)
	}
}

// Close stops accepting launches. Pending records stay persisted for
// the next Resume.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Coordinator) checkHardware(kind Kind) error {
	switch kind {
	case KindPhoto:
		if !c.camera.HasCameraHardware() {
			return ErrResourceUnavailable
		}
	case KindVideo:
		if !c.camera.HasVideoCapture() {
			return ErrResourceUnavailable
		}
	}
	return nil
}

func (c *Coordinator) createDest(kind Kind) (string, error) {
	if err := os.MkdirAll(c.pendingDir, 0700); err != nil {
		return "", err
	}
	ext := "jpg"
	if kind == KindVideo {
		ext = "mp4"
	}
	path := filepath.Join(c.pendingDir, fmt.Sprintf("capture_%d.%s", c.now().UnixNano(), ext))
	if err := os.WriteFile(path, nil, 0600); err != nil {
		return "", err
	}
	return path, nil
}

func (c *Coordinator) removeDest(op *PendingOperation) {
	if op.DestPath == "" {
		return
	}
	if err := os.Remove(op.DestPath); err != nil && !os.IsNotExist(err) {
		c.logger.Debug("could not remove capture destination", "path", op.DestPath, "err", err)
	}
}

func (c *Coordinator) dispatchCancelled(op *PendingOperation) {
	if op.Kind == KindGallery {
		// Gallery cancellation rides the pick event, which the caller
		// may have renamed.
		c.sink.Dispatch(op.Event, op.payload(map[string]any{
			"success":   false,
			"files":     []models.MediaFile{},
			"count":     0,
			"cancelled": true,
		}))
		return
	}
	c.sink.Dispatch(op.Kind.CancelEvent(), op.payload(map[string]any{
		"cancelled": true,
	}))
}

func (c *Coordinator) clear(op *PendingOperation) {
	c.mu.Lock()
	if c.inflight[op.Kind] == op {
		delete(c.inflight, op.Kind)
	}
	c.mu.Unlock()
	if err := c.store.Delete(op.ID); err != nil {
		c.logger.Warn("could not clear persisted operation", "id", op.ID, "err", err)
	}
}

type resultStatus int

const (
	resultOK resultStatus = iota
	resultCancelled
	resultFailed
)

type osResult struct {
	status resultStatus
	uri    string
	uris   []string
	errMsg string
}

// captureAdapter bridges the native callback object to the completion
// channel. Only the first callback per request counts.
type captureAdapter struct {
	ch chan osResult
}

func (a *captureAdapter) OnCaptured(requestID string, uri string) {
	a.deliver(osResult{status: resultOK, uri: uri})
}

func (a *captureAdapter) OnCancelled(requestID string) {
	a.deliver(osResult{status: resultCancelled})
}

func (a *captureAdapter) OnFailed(requestID string, message string) {
	a.deliver(osResult{status: resultFailed, errMsg: message})
}

func (a *captureAdapter) deliver(r osResult) {
	select {
	case a.ch <- r:
	default:
	}
}

type pickAdapter struct {
	ch chan osResult
}

func (a *pickAdapter) OnPicked(requestID string, urisJSON string) {
	var uris []string
	if err := json.Unmarshal([]byte(urisJSON), &uris); err != nil {
		a.deliver(osResult{status: resultFailed, errMsg: "malformed picker payload"})
		return
	}
	a.deliver(osResult{status: resultOK, uris: uris})
}

func (a *pickAdapter) OnCancelled(requestID string) {
	a.deliver(osResult{status: resultCancelled})
}

func (a *pickAdapter) OnFailed(requestID string, message string) {
	a.deliver(osResult{status: resultFailed, errMsg: message})
}

func (a *pickAdapter) deliver(r osResult) {
	select {
	case a.ch <- r:
	default:
	}
}
