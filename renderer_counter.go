package videocapture

import (
	"sync"
	"time"
)

// FrameCounter is a VideoRenderer that counts frames and measures their rate.
type FrameCounter struct {
	mu       sync.Mutex
	count    uint64
	first    time.Time
	last     time.Time
	position CameraPosition
	width    int
	height   int

	now func() time.Time
}

// NewFrameCounter creates a frame counter.
func NewFrameCounter() *FrameCounter {
	return &FrameCounter{now: time.Now}
}

// RenderFrame implements VideoRenderer.
func (c *FrameCounter) RenderFrame(frame *VideoFrame) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == 0 {
		c.first = now
	}
	c.count++
	c.last = now
	c.position = frame.Position
	c.width, c.height = frame.Width, frame.Height
}

// FrameCounterStats is a snapshot of a FrameCounter.
type FrameCounterStats struct {
	Frames   uint64
	FPS      float64
	Position CameraPosition // Position of the last frame
	Width    int
	Height   int
}

// Stats returns the current counters. FPS is measured between the first and
// the last frame.
func (c *FrameCounter) Stats() FrameCounterStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := FrameCounterStats{
		Frames:   c.count,
		Position: c.position,
		Width:    c.width,
		Height:   c.height,
	}
	if elapsed := c.last.Sub(c.first); c.count > 1 && elapsed > 0 {
		stats.FPS = float64(c.count-1) / elapsed.Seconds()
	}
	return stats
}

// Reset clears all counters.
func (c *FrameCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
	c.first, c.last = time.Time{}, time.Time{}
}
