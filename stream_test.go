package videocapture

import (
	"errors"
	"runtime"
	"slices"
	"testing"
)

type closingRenderer struct {
	frames int
	closed bool
	err    error
}

func (r *closingRenderer) RenderFrame(*VideoFrame) { r.frames++ }

func (r *closingRenderer) Close() error {
	r.closed = true
	return r.err
}

func TestNewMediaStream_ID(t *testing.T) {
	if got := NewMediaStream("camera").ID(); got != "camera" {
		t.Errorf("ID() = %q, want camera", got)
	}

	a, b := NewMediaStream(""), NewMediaStream("")
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("generated IDs %q and %q should be unique and non-empty", a.ID(), b.ID())
	}
}

func TestMediaStream_RendererOrder(t *testing.T) {
	stream := NewMediaStream("s")

	var order []string
	stream.AddVideoRenderer(VideoRendererFunc(func(*VideoFrame) { order = append(order, "first") }))
	stream.AddVideoRenderer(VideoRendererFunc(func(*VideoFrame) { order = append(order, "second") }))

	stream.Render(NewI420Frame(16, 16))
	if want := []string{"first", "second"}; !slices.Equal(order, want) {
		t.Errorf("render order = %v, want %v", order, want)
	}
}

func TestMediaStream_RemoveRenderer(t *testing.T) {
	stream := NewMediaStream("s")

	var a, b int
	removeA := stream.AddVideoRenderer(VideoRendererFunc(func(*VideoFrame) { a++ }))
	stream.AddVideoRenderer(VideoRendererFunc(func(*VideoFrame) { b++ }))

	removeA()
	removeA() // second call is a no-op
	if n := stream.RendererCount(); n != 1 {
		t.Fatalf("RendererCount() = %d, want 1", n)
	}

	stream.Render(NewI420Frame(16, 16))
	if a != 0 || b != 1 {
		t.Errorf("a = %d, b = %d; want 0, 1", a, b)
	}
}

func TestMediaStream_FilterBeforeRenderers(t *testing.T) {
	stream := NewMediaStream("s")

	var order []string
	stream.SetVideoFilter(VideoFilterFunc(func(frame *VideoFrame) *VideoFrame {
		order = append(order, "filter")
		out := frame.Clone()
		out.Width = 8
		return out
	}))

	var rendered *VideoFrame
	stream.AddVideoRenderer(VideoRendererFunc(func(frame *VideoFrame) {
		order = append(order, "render")
		rendered = frame
	}))

	stream.Render(NewI420Frame(16, 16))
	if want := []string{"filter", "render"}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if rendered == nil || rendered.Width != 8 {
		t.Error("renderer did not receive the filtered frame")
	}
}

func TestMediaStream_FilterDrop(t *testing.T) {
	stream := NewMediaStream("s")
	stream.SetVideoFilter(VideoFilterFunc(func(*VideoFrame) *VideoFrame { return nil }))

	called := false
	stream.AddVideoRenderer(VideoRendererFunc(func(*VideoFrame) { called = true }))
	stream.Render(NewI420Frame(16, 16))

	if called {
		t.Error("renderer called for dropped frame")
	}

	stream.SetVideoFilter(nil)
	stream.Render(NewI420Frame(16, 16))
	if !called {
		t.Error("renderer not called after clearing the filter")
	}
}

func TestMediaStream_SetVideoCapturer(t *testing.T) {
	system := newFakeCaptureSystem(frontCamera, backCamera)
	first := newTestCapturer(system)
	second := newTestCapturer(system)
	stream := NewMediaStream("s")

	stream.SetVideoCapturer(first)
	if stream.VideoCapturer() != first || first.Stream() != stream {
		t.Fatal("first capturer not attached")
	}

	stream.SetVideoCapturer(second)
	if stream.VideoCapturer() != second || second.Stream() != stream {
		t.Fatal("second capturer not attached")
	}
	if first.Stream() != nil {
		t.Error("replaced capturer still points at the stream")
	}

	stream.SetVideoCapturer(nil)
	if stream.VideoCapturer() != nil || second.Stream() != nil {
		t.Error("detaching left a back-reference")
	}
}

func TestMediaStream_SetVideoCapturerKeepsForeignStream(t *testing.T) {
	system := newFakeCaptureSystem(frontCamera)
	c := newTestCapturer(system)
	a, b := NewMediaStream("a"), NewMediaStream("b")

	a.SetVideoCapturer(c)
	b.SetVideoCapturer(c)

	// c now renders into b; detaching from a must not clear that
	a.SetVideoCapturer(nil)
	if c.Stream() != b {
		t.Errorf("capturer stream = %v, want b", c.Stream())
	}
}

func TestMediaStream_Close(t *testing.T) {
	system := newFakeCaptureSystem(frontCamera)
	c := newTestCapturer(system)
	stream := NewMediaStream("s")
	stream.SetVideoCapturer(c)

	wantErr := errors.New("close failed")
	plain := &closingRenderer{}
	failing := &closingRenderer{err: wantErr}
	stream.AddVideoRenderer(plain)
	stream.AddVideoRenderer(failing)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := stream.Close(); !errors.Is(err, wantErr) {
		t.Errorf("Close() error = %v, want %v", err, wantErr)
	}
	if c.IsRunning() {
		t.Error("Close should stop the capturer")
	}
	if c.Stream() != nil || stream.VideoCapturer() != nil {
		t.Error("Close should detach the capturer")
	}
	if !plain.closed || !failing.closed {
		t.Error("Close should close renderers")
	}
	if stream.RendererCount() != 0 {
		t.Error("Close should remove renderers")
	}
}

func TestMediaStream_CapturerDelivery(t *testing.T) {
	system := newFakeCaptureSystem(frontCamera, backCamera)
	c := newTestCapturer(system)
	stream := NewMediaStream("s")
	stream.SetVideoCapturer(c)
	stream.SetVideoFilter(NewScaleFilter(32, 24, ScaleModeStretch))

	counter := NewFrameCounter()
	stream.AddVideoRenderer(counter)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	system.emit(NewI420Frame(64, 48))
	if err := c.SetPosition(CameraPositionBack); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}
	system.emit(NewI420Frame(64, 48))

	stats := counter.Stats()
	if stats.Frames != 2 {
		t.Errorf("Frames = %d, want 2", stats.Frames)
	}
	if stats.Width != 32 || stats.Height != 24 {
		t.Errorf("rendered size = %dx%d, want 32x24", stats.Width, stats.Height)
	}
	if stats.Position != CameraPositionBack {
		t.Errorf("last position = %v, want back", stats.Position)
	}
	runtime.KeepAlive(stream)
}
