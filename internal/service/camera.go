package service

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lumo-cam/lumo/internal/capture"
	"github.com/lumo-cam/lumo/internal/events"
)

const resultHistory = 64

// CameraService is the call surface the handlers and the mobile entry
// point use. It sits between the coordinator and the event hub as the
// coordinator's sink, keeping the last results around so a client that
// reconnects after its websocket dropped can still collect a result by
// token.
type CameraService struct {
	coord      *capture.Coordinator
	dispatcher *events.Dispatcher
	results    *lru.Cache[string, StoredResult]
	logger     *slog.Logger
}

// StoredResult is one delivered event retained for replay by token.
type StoredResult struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

func NewCameraService(dispatcher *events.Dispatcher, logger *slog.Logger) *CameraService {
	results, _ := lru.New[string, StoredResult](resultHistory)
	return &CameraService{
		dispatcher: dispatcher,
		results:    results,
		logger:     logger,
	}
}

// SetCoordinator wires the coordinator after construction; the service
// is the coordinator's sink, so the two reference each other.
func (s *CameraService) SetCoordinator(coord *capture.Coordinator) {
	s.coord = coord
}

// Dispatch implements capture.EventSink.
func (s *CameraService) Dispatch(event string, payload map[string]any) {
	if token, ok := payload["id"].(string); ok && token != "" {
		s.results.Add(token, StoredResult{Event: event, Payload: payload})
	}
	s.dispatcher.Dispatch(event, payload)
}

// GetPhoto launches a single photo capture.
func (s *CameraService) GetPhoto(ctx context.Context, token, event string) error {
	return s.coord.Launch(ctx, capture.Request{
		Kind:  capture.KindPhoto,
		Token: token,
		Event: event,
	})
}

// RecordVideo launches a single video capture.
func (s *CameraService) RecordVideo(ctx context.Context, maxDuration int, token, event string) error {
	return s.coord.Launch(ctx, capture.Request{
		Kind:        capture.KindVideo,
		Token:       token,
		Event:       event,
		MaxDuration: maxDuration,
	})
}

// PickMedia launches a gallery pick.
func (s *CameraService) PickMedia(ctx context.Context, mediaType string, multiple bool, maxItems int, token, event string) error {
	return s.coord.Launch(ctx, capture.Request{
		Kind:      capture.KindGallery,
		Token:     token,
		Event:     event,
		MediaType: mediaType,
		Multiple:  multiple,
		MaxItems:  maxItems,
	})
}

// Result returns the retained event for a correlation token, if any.
func (s *CameraService) Result(token string) (StoredResult, bool) {
	return s.results.Get(token)
}
