package media

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"

	"github.com/lumo-cam/lumo/internal/cache"
	"github.com/lumo-cam/lumo/internal/models"
)

// Source reads media behind OS URIs. On device this is backed by the
// native bridge; tests and the dev shell use the simulator.
type Source interface {
	Read(uri string) ([]byte, error)
	ContentType(uri string) string
	Remove(uri string) error
}

// galleryDir is the subfolder for picked media, kept apart from
// captures so a sweep can treat them uniformly.
const galleryDir = "Gallery"

// contentTypeTTL bounds how long a memoized bridge MIME lookup is
// trusted before a background refresh; the OS can re-index an entry
// under the same URI.
const contentTypeTTL = time.Minute

var ErrNoItems = errors.New("media: no items could be copied")

// Processor materializes OS media into the app-private cache on a
// single background worker, so per-pick item order is deterministic and
// byte copying never runs on the callback path.
type Processor struct {
	cacheDir string
	src      Source
	logger   *slog.Logger

	jobs   chan func()
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	ctypes *xsync.Map[string, cache.Entry[string]]
	sfg    singleflight.Group

	now func() time.Time
}

func NewProcessor(cacheDir string, src Source, logger *slog.Logger) *Processor {
	p := &Processor{
		cacheDir: cacheDir,
		src:      src,
		logger:   logger,
		jobs:     make(chan func(), 16),
		ctypes:   xsync.NewMap[string, cache.Entry[string]](),
		now:      time.Now,
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Processor) run() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

// Enqueue schedules work on the processing worker. Jobs run in
// submission order. After Close the job is dropped: an OS callback can
// land mid-shutdown, and its persisted record is recovered on the next
// start instead.
func (p *Processor) Enqueue(job func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Debug("processing job dropped after close")
		return
	}
	p.jobs <- job
}

// Close drains queued work and stops the worker.
func (p *Processor) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// SavePhoto copies a captured still into the cache as
// captured_<ts>.<ext> and reaps the transient OS entry.
func (p *Processor) SavePhoto(uri string) (models.MediaFile, error) {
	return p.saveCapture(uri, "captured", "image/jpeg")
}

// SaveVideo copies a recorded clip into the cache as video_<ts>.<ext>.
func (p *Processor) SaveVideo(uri string) (models.MediaFile, error) {
	return p.saveCapture(uri, "video", "video/mp4")
}

func (p *Processor) saveCapture(uri, prefix, defaultMime string) (models.MediaFile, error) {
	data, err := p.src.Read(uri)
	if err != nil {
		return models.MediaFile{}, fmt.Errorf("read %s: %w", uri, err)
	}

	mime := p.contentType(uri)
	if mime == "" {
		mime = defaultMime
	}
	ext := ExtensionByMime(mime)

	if err := os.MkdirAll(p.cacheDir, 0700); err != nil {
		return models.MediaFile{}, err
	}
	name := fmt.Sprintf("%s_%d.%s", prefix, p.now().UnixMilli(), ext)
	path := filepath.Join(p.cacheDir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return models.MediaFile{}, fmt.Errorf("write %s: %w", path, err)
	}

	if err := p.src.Remove(uri); err != nil {
		p.logger.Debug("could not remove transient media entry", "uri", uri, "err", err)
	}
	// The entry is gone; a memoized type for its URI is meaningless.
	cache.Invalidate(p.ctypes, uri)

	return models.MediaFile{
		Path:      path,
		MimeType:  mime,
		Extension: ext,
		Type:      Category(mime),
	}, nil
}

// SaveGallery copies each picked item into the Gallery subfolder,
// preserving selection order. Items that fail to copy are dropped and
// logged; the returned slice holds only successes. ErrNoItems is
// returned when every item failed.
func (p *Processor) SaveGallery(uris []string) ([]models.MediaFile, error) {
	if len(uris) == 0 {
		return nil, nil
	}

	dir := filepath.Join(p.cacheDir, galleryDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	ts := p.now().UnixMilli()
	files := make([]models.MediaFile, 0, len(uris))
	for i, uri := range uris {
		data, err := p.src.Read(uri)
		if err != nil {
			p.logger.Warn("gallery item copy failed", "index", i, "uri", uri, "err", err)
			continue
		}

		mime := p.contentType(uri)
		if mime == "" {
			mime = MimeByExtension(filepath.Ext(uri))
		}
		ext := ExtensionByMime(mime)
		if ext == fallbackExt {
			if fromURI := filepath.Ext(uri); fromURI != "" {
				ext = fromURI[1:]
			}
		}

		name := fmt.Sprintf("gallery_selected_%d.%s", ts, ext)
		if len(uris) > 1 {
			name = fmt.Sprintf("gallery_selected_%d_%d.%s", ts, i, ext)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0600); err != nil {
			p.logger.Warn("gallery item write failed", "index", i, "path", path, "err", err)
			continue
		}

		files = append(files, models.MediaFile{
			Path:      path,
			MimeType:  mime,
			Extension: ext,
			Type:      Category(mime),
		})
	}

	if len(files) == 0 {
		return nil, ErrNoItems
	}
	return files, nil
}

// contentType memoizes bridge MIME lookups; resolving a content URI can
// cross the language boundary on device.
func (p *Processor) contentType(uri string) string {
	ctype, _ := cache.Lookup(p.ctypes, &p.sfg, uri, contentTypeTTL, func() (string, error) {
		return p.src.ContentType(uri), nil
	})
	return ctype
}
