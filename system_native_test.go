//go:build (darwin || linux) && !nodevices

package videocapture

import (
	"testing"
	"unsafe"
)

func TestNativeSystemDevices(t *testing.T) {
	system := GetCaptureSystem()
	if system == nil {
		t.Skip("native capture library not available")
	}

	devices := system.CaptureDevices()
	t.Logf("Found %d video devices:", len(devices))
	for _, d := range devices {
		if d.Position != CameraPositionFront && d.Position != CameraPositionBack {
			t.Errorf("device %s has position %v, want front or back", d.ID, d.Position)
		}
		for _, f := range system.SupportedFormats(d) {
			t.Logf("  - %s: %s %v", d, f, f.FrameRateRanges)
		}
	}
}

func TestGoStringFromPtr(t *testing.T) {
	if got := goStringFromPtr(0); got != "" {
		t.Errorf("goStringFromPtr(0) = %q, want empty", got)
	}

	b := cString("FaceTime HD Camera")
	if b[len(b)-1] != 0 {
		t.Fatal("cString not NUL-terminated")
	}
	if got := goStringAt(unsafe.Pointer(&b[0])); got != "FaceTime HD Camera" {
		t.Errorf("goStringAt = %q", got)
	}
	if got := goStringAt(nil); got != "" {
		t.Errorf("goStringAt(nil) = %q, want empty", got)
	}
}

func TestNativePlaneSizes(t *testing.T) {
	tests := []struct {
		name                      string
		yStride, uStride, vStride int
		height                    int
		wantY, wantU, wantV       int
	}{
		{"even", 640, 320, 320, 480, 640 * 480, 320 * 240, 320 * 240},
		{"odd height", 64, 32, 32, 5, 64 * 5, 32 * 3, 32 * 3},
		{"padded strides", 704, 352, 368, 3, 704 * 3, 352 * 2, 368 * 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, u, v := nativePlaneSizes(tt.yStride, tt.uStride, tt.vStride, tt.height)
			if y != tt.wantY || u != tt.wantU || v != tt.wantV {
				t.Errorf("nativePlaneSizes = %d, %d, %d, want %d, %d, %d", y, u, v, tt.wantY, tt.wantU, tt.wantV)
			}
		})
	}
}

func TestNativeFormats(t *testing.T) {
	formats := nativeFormats(FrameRateRange{MinFrameRate: 1, MaxFrameRate: 60})
	if len(formats) != len(commonFormats) {
		t.Fatalf("len = %d, want %d", len(formats), len(commonFormats))
	}
	for _, f := range formats {
		if fps, ok := SuitableFrameRate(f); !ok || fps != 60 {
			t.Errorf("%s: SuitableFrameRate = %d, %v", f, fps, ok)
		}
	}
	if f := SuitableFormat(formats, DefaultPreferredResolution); f.Width != 1280 || f.Height != 720 {
		t.Errorf("SuitableFormat = %s, want 1280x720", f)
	}
}
