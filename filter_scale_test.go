package videocapture

import (
	"testing"
)

func TestVideoScaler_NoScaling(t *testing.T) {
	frame := createGradientFrame(640, 480)
	frame.Timestamp = 12345

	scaler := NewVideoScaler(640, 480, 640, 480, ScaleModeStretch)
	out := scaler.Scale(frame)

	// Should return same frame when no scaling needed
	if out != frame {
		t.Error("Expected same frame when no scaling needed")
	}
}

func TestVideoScaler_Downscale(t *testing.T) {
	srcW, srcH := 1280, 720
	dstW, dstH := 640, 360

	frame := createGradientFrame(srcW, srcH)
	frame.Timestamp = 1000
	frame.Position = CameraPositionBack

	scaler := NewVideoScaler(srcW, srcH, dstW, dstH, ScaleModeStretch)
	out := scaler.Scale(frame)

	if out.Width != dstW || out.Height != dstH {
		t.Errorf("Expected %dx%d, got %dx%d", dstW, dstH, out.Width, out.Height)
	}
	if len(out.Data[0]) != dstW*dstH {
		t.Errorf("Y plane size mismatch: expected %d, got %d", dstW*dstH, len(out.Data[0]))
	}
	if len(out.Data[1]) != (dstW/2)*(dstH/2) {
		t.Errorf("U plane size mismatch")
	}
	if out.Timestamp != 1000 || out.Position != CameraPositionBack {
		t.Errorf("frame metadata not carried over: ts=%d pos=%v", out.Timestamp, out.Position)
	}
}

func TestVideoScaler_Upscale(t *testing.T) {
	srcW, srcH := 320, 240
	dstW, dstH := 640, 480

	frame := createGradientFrame(srcW, srcH)

	scaler := NewVideoScaler(srcW, srcH, dstW, dstH, ScaleModeStretch)
	out := scaler.Scale(frame)

	if out.Width != dstW || out.Height != dstH {
		t.Errorf("Expected %dx%d, got %dx%d", dstW, dstH, out.Width, out.Height)
	}
}

func TestVideoScaler_Fill(t *testing.T) {
	// 16:9 source to 4:3 destination (should crop sides)
	srcW, srcH := 1920, 1080
	dstW, dstH := 640, 480

	frame := createGradientFrame(srcW, srcH)

	scaler := NewVideoScaler(srcW, srcH, dstW, dstH, ScaleModeFill)
	out := scaler.Scale(frame)

	if out.Width != dstW || out.Height != dstH {
		t.Errorf("Expected %dx%d, got %dx%d", dstW, dstH, out.Width, out.Height)
	}
	// Cropped left edge is no longer black
	if out.Data[0][0] == 0 {
		t.Error("Expected left edge to be cropped")
	}
}

func TestVideoScaler_FitLetterbox(t *testing.T) {
	// 4:3 source into 16:9 destination: pillarbox of 160px each side
	frame := createGradientFrame(640, 480)

	scaler := NewVideoScaler(640, 480, 1280, 720, ScaleModeFit)
	out := scaler.Scale(frame)

	if out.Width != 1280 || out.Height != 720 {
		t.Fatalf("Expected 1280x720, got %dx%d", out.Width, out.Height)
	}

	row := 360 * 1280
	if got := out.Data[0][row+100]; got != 16 {
		t.Errorf("border luma = %d, want 16", got)
	}
	if got := out.Data[0][row+160]; got != 0 {
		t.Errorf("first content luma = %d, want 0", got)
	}
	if got := out.Data[0][row+1200]; got != 16 {
		t.Errorf("right border luma = %d, want 16", got)
	}
	if got := out.Data[1][0]; got != 128 {
		t.Errorf("border chroma = %d, want 128", got)
	}
}

func TestCalculateScaledSize(t *testing.T) {
	tests := []struct {
		name             string
		srcW, srcH       int
		maxW, maxH       int
		mode             ScaleMode
		expectW, expectH int
	}{
		{"16:9 to 4:3 fit", 1920, 1080, 640, 480, ScaleModeFit, 640, 360},
		{"4:3 to 16:9 fit", 640, 480, 1280, 720, ScaleModeFit, 960, 720},
		{"same aspect", 1280, 720, 640, 360, ScaleModeFit, 640, 360},
		{"fill mode", 1920, 1080, 640, 480, ScaleModeFill, 640, 480},
		{"stretch mode", 1920, 1080, 640, 480, ScaleModeStretch, 640, 480},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := CalculateScaledSize(tt.srcW, tt.srcH, tt.maxW, tt.maxH, tt.mode)
			if w != tt.expectW || h != tt.expectH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.expectW, tt.expectH, w, h)
			}
		})
	}
}

func TestScaleFilter(t *testing.T) {
	filter := NewScaleFilter(320, 180, ScaleModeFit)

	out := filter.Filter(createGradientFrame(1280, 720))
	if out.Width != 320 || out.Height != 180 {
		t.Errorf("Expected 320x180, got %dx%d", out.Width, out.Height)
	}

	// Source size change rebuilds the scaler
	out = filter.Filter(createGradientFrame(640, 480))
	if out.Width != 320 || out.Height != 180 {
		t.Errorf("Expected 320x180, got %dx%d", out.Width, out.Height)
	}
}

func TestScaleFilter_Passthrough(t *testing.T) {
	filter := NewScaleFilter(320, 240, ScaleModeStretch)

	rgba := &VideoFrame{Data: [][]byte{make([]byte, 64*48*4)}, Stride: []int{64 * 4}, Width: 64, Height: 48, Format: PixelFormatRGBA32}
	if got := filter.Filter(rgba); got != rgba {
		t.Error("non-I420 frame should pass through")
	}
	if got := filter.Filter(nil); got != nil {
		t.Error("nil frame should stay nil")
	}
}

func TestNewScaleFilter_RoundsToEven(t *testing.T) {
	filter := NewScaleFilter(321, 181, ScaleModeStretch)
	out := filter.Filter(createGradientFrame(640, 480))
	if out.Width != 322 || out.Height != 182 {
		t.Errorf("Expected 322x182, got %dx%d", out.Width, out.Height)
	}
}

func createGradientFrame(width, height int) *VideoFrame {
	frame := NewI420Frame(width, height)

	// Fill Y with horizontal gradient
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			frame.Data[0][y*width+x] = byte(x * 255 / width)
		}
	}

	// Fill U/V with neutral values
	fill(frame.Data[1], 128)
	fill(frame.Data[2], 128)
	return frame
}

func BenchmarkVideoScaler_720pTo480p(b *testing.B) {
	frame := createGradientFrame(1280, 720)
	scaler := NewVideoScaler(1280, 720, 640, 480, ScaleModeFill)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scaler.Scale(frame)
	}
}

func BenchmarkVideoScaler_1080pTo720p(b *testing.B) {
	frame := createGradientFrame(1920, 1080)
	scaler := NewVideoScaler(1920, 1080, 1280, 720, ScaleModeFill)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scaler.Scale(frame)
	}
}
