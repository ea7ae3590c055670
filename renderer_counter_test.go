package videocapture

import (
	"testing"
	"time"
)

func TestFrameCounter(t *testing.T) {
	c := NewFrameCounter()
	start := time.Unix(1000, 0)
	tick := 0
	c.now = func() time.Time {
		tick++
		return start.Add(time.Duration(tick-1) * 100 * time.Millisecond)
	}

	if stats := c.Stats(); stats.Frames != 0 || stats.FPS != 0 {
		t.Errorf("empty stats = %+v", stats)
	}

	for i := 0; i < 11; i++ {
		frame := NewI420Frame(32, 24)
		frame.Position = CameraPositionBack
		c.RenderFrame(frame)
	}

	stats := c.Stats()
	if stats.Frames != 11 {
		t.Errorf("Frames = %d, want 11", stats.Frames)
	}
	if stats.FPS < 9.99 || stats.FPS > 10.01 {
		t.Errorf("FPS = %f, want 10", stats.FPS)
	}
	if stats.Width != 32 || stats.Height != 24 || stats.Position != CameraPositionBack {
		t.Errorf("last frame stats = %+v", stats)
	}

	c.Reset()
	if stats := c.Stats(); stats.Frames != 0 || stats.FPS != 0 {
		t.Errorf("stats after Reset = %+v", stats)
	}
}
