package videocapture

import (
	"errors"
	"sync"
)

var (
	// ErrNoCaptureDevice is returned by Start when no camera exists at the
	// selected position.
	ErrNoCaptureDevice = errors.New("no capture device for position")

	// ErrNoCaptureFormat is returned by Start when the device reports no formats.
	ErrNoCaptureFormat = errors.New("no suitable capture format")

	// ErrNoFrameRate is returned by Start when the chosen format reports no
	// frame rate ranges.
	ErrNoFrameRate = errors.New("no suitable frame rate")

	// ErrInvalidPosition is returned when selecting a position other than
	// front or back.
	ErrInvalidPosition = errors.New("invalid camera position")
)

// VideoCapturer is a source of video frames feeding a MediaStream.
//
// Attach a capturer with MediaStream.SetVideoCapturer; the stream then becomes
// the capturer's render target. Frames handed to the stream are filtered by
// its VideoFilter before they reach any renderer.
type VideoCapturer interface {
	// Stream returns the stream this capturer renders into, or nil.
	// The capturer does not keep the stream alive.
	Stream() *MediaStream

	// SetStream sets the render target. Pass nil to detach.
	SetStream(stream *MediaStream)

	// Handlers returns the handler registry for raw frame notification.
	Handlers() *VideoCapturerHandlers

	// Start begins capture. It is a no-op returning nil while running.
	Start() error

	// Stop ends capture. It is a no-op while stopped.
	Stop() error
}

// VideoCapturerHandlers holds the callback invoked for every captured frame.
// At most one callback is registered; registering again replaces it.
type VideoCapturerHandlers struct {
	mu        sync.RWMutex
	onCapture func(frame *VideoFrame)
}

// OnCapture registers the capture callback. Pass nil to clear it.
// The callback runs on the capture goroutine after the stream has rendered
// the frame; it must return quickly and must not call Start, Stop or
// SetPosition on the delivering capturer.
func (h *VideoCapturerHandlers) OnCapture(handler func(frame *VideoFrame)) {
	h.mu.Lock()
	h.onCapture = handler
	h.mu.Unlock()
}

func (h *VideoCapturerHandlers) capture(frame *VideoFrame) {
	h.mu.RLock()
	handler := h.onCapture
	h.mu.RUnlock()

	if handler != nil {
		handler(frame)
	}
}

// VideoFilter transforms a frame before it is rendered. Returning nil drops
// the frame.
type VideoFilter interface {
	Filter(frame *VideoFrame) *VideoFrame
}

// VideoFilterFunc adapts a function to VideoFilter.
type VideoFilterFunc func(frame *VideoFrame) *VideoFrame

// Filter implements VideoFilter.
func (f VideoFilterFunc) Filter(frame *VideoFrame) *VideoFrame {
	return f(frame)
}

// ChainFilters returns a filter applying filters in order. The chain stops at
// the first filter that drops the frame.
func ChainFilters(filters ...VideoFilter) VideoFilter {
	return VideoFilterFunc(func(frame *VideoFrame) *VideoFrame {
		for _, f := range filters {
			if frame == nil {
				return nil
			}
			if f != nil {
				frame = f.Filter(frame)
			}
		}
		return frame
	})
}
