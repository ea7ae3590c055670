package videocapture

import (
	"io"
	"sync"

	"github.com/google/uuid"
)

// VideoRenderer consumes frames rendered by a MediaStream.
// RenderFrame runs on the capture goroutine and must not block.
type VideoRenderer interface {
	RenderFrame(frame *VideoFrame)
}

// VideoRendererFunc adapts a function to VideoRenderer.
type VideoRendererFunc func(frame *VideoFrame)

// RenderFrame implements VideoRenderer.
func (f VideoRendererFunc) RenderFrame(frame *VideoFrame) { f(frame) }

type rendererEntry struct {
	id       uint64
	renderer VideoRenderer
}

// MediaStream is the render target of a VideoCapturer.
//
// The stream owns its capturer; the capturer only keeps a weak reference back
// to the stream, so dropping the stream releases both.
type MediaStream struct {
	id string

	mu        sync.RWMutex
	capturer  VideoCapturer
	filter    VideoFilter
	renderers []rendererEntry
	nextID    uint64
}

// NewMediaStream creates a stream. An empty id generates a random one.
func NewMediaStream(id string) *MediaStream {
	if id == "" {
		id = uuid.NewString()
	}
	return &MediaStream{id: id}
}

func (s *MediaStream) ID() string { return s.id }

// VideoCapturer returns the attached capturer, or nil.
func (s *MediaStream) VideoCapturer() VideoCapturer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capturer
}

// SetVideoCapturer attaches capturer and makes this stream its render target.
// The previous capturer is detached but keeps running; stop it separately.
// Pass nil to detach only.
func (s *MediaStream) SetVideoCapturer(capturer VideoCapturer) {
	s.mu.Lock()
	old := s.capturer
	s.capturer = capturer
	s.mu.Unlock()

	if old != nil && old != capturer && old.Stream() == s {
		old.SetStream(nil)
	}
	if capturer != nil {
		capturer.SetStream(s)
	}
}

// VideoFilter returns the filter applied before rendering, or nil.
func (s *MediaStream) VideoFilter() VideoFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetVideoFilter sets the filter applied to every frame before rendering.
func (s *MediaStream) SetVideoFilter(filter VideoFilter) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
}

// AddVideoRenderer attaches renderer. Renderers are called in the order they
// were added. The returned function detaches it.
func (s *MediaStream) AddVideoRenderer(renderer VideoRenderer) (remove func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.renderers = append(s.renderers, rendererEntry{id: id, renderer: renderer})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.removeRenderer(id) })
	}
}

func (s *MediaStream) removeRenderer(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.renderers {
		if e.id == id {
			// copy so in-flight Render calls keep a consistent slice
			renderers := make([]rendererEntry, 0, len(s.renderers)-1)
			renderers = append(renderers, s.renderers[:i]...)
			s.renderers = append(renderers, s.renderers[i+1:]...)
			return
		}
	}
}

// RendererCount returns the number of attached renderers.
func (s *MediaStream) RendererCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.renderers)
}

// Render filters frame and hands the result to every renderer.
// A filter returning nil drops the frame.
func (s *MediaStream) Render(frame *VideoFrame) {
	s.mu.RLock()
	filter := s.filter
	renderers := s.renderers
	s.mu.RUnlock()

	if filter != nil {
		frame = filter.Filter(frame)
	}
	if frame == nil {
		return
	}
	for _, e := range renderers {
		e.renderer.RenderFrame(frame)
	}
}

// Close stops and detaches the capturer and closes renderers that implement
// io.Closer. The last error encountered is returned.
func (s *MediaStream) Close() error {
	s.mu.Lock()
	capturer := s.capturer
	renderers := s.renderers
	s.capturer = nil
	s.renderers = nil
	s.mu.Unlock()

	var lastErr error
	if capturer != nil {
		if err := capturer.Stop(); err != nil {
			lastErr = err
		}
		if capturer.Stream() == s {
			capturer.SetStream(nil)
		}
	}
	for _, e := range renderers {
		if c, ok := e.renderer.(io.Closer); ok {
			if err := c.Close(); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}
