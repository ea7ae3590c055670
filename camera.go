package videocapture

import (
	"fmt"
	"strings"
)

// CameraPosition identifies which physical camera to use.
type CameraPosition int

const (
	CameraPositionUnspecified CameraPosition = iota // Device reports no facing
	CameraPositionFront                             // Faces the user
	CameraPositionBack                              // Faces away from the user
)

func (p CameraPosition) String() string {
	switch p {
	case CameraPositionFront:
		return "front"
	case CameraPositionBack:
		return "back"
	default:
		return "unspecified"
	}
}

// ParseCameraPosition parses "front" or "back" (case-insensitive).
// "user" and "environment" are accepted as their browser facingMode aliases.
func ParseCameraPosition(s string) (CameraPosition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front", "user":
		return CameraPositionFront, nil
	case "back", "rear", "environment":
		return CameraPositionBack, nil
	default:
		return CameraPositionUnspecified, fmt.Errorf("unknown camera position %q", s)
	}
}

// Opposite returns the other selectable position. Unspecified maps to front.
func (p CameraPosition) Opposite() CameraPosition {
	if p == CameraPositionFront {
		return CameraPositionBack
	}
	return CameraPositionFront
}

// PositionFromLabel derives a device position from a native device label.
// Cameras that do not say otherwise are treated as front facing.
func PositionFromLabel(label string) CameraPosition {
	l := strings.ToLower(label)
	for _, kw := range []string{"back", "rear", "environment", "world"} {
		if strings.Contains(l, kw) {
			return CameraPositionBack
		}
	}
	return CameraPositionFront
}

// CaptureDevice is a handle to a physical camera. Devices are owned by the
// CaptureSystem that enumerated them.
type CaptureDevice struct {
	ID       string         // Native unique identifier (device path on Linux)
	Label    string         // Human-readable device name
	Position CameraPosition // Physical position tag
}

func (d *CaptureDevice) String() string {
	return fmt.Sprintf("%s (%s, %s)", d.Label, d.ID, d.Position)
}

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// IsZero reports whether no resolution is set.
func (r Resolution) IsZero() bool {
	return r.Width <= 0 || r.Height <= 0
}

// FrameRateRange is a supported frame rate interval of a capture format.
type FrameRateRange struct {
	MinFrameRate float64
	MaxFrameRate float64
}

// CaptureFormat is a capture configuration supported by a device.
type CaptureFormat struct {
	Width           int
	Height          int
	PixelFormat     PixelFormat
	FrameRateRanges []FrameRateRange
}

func (f *CaptureFormat) String() string {
	return fmt.Sprintf("%dx%d %s", f.Width, f.Height, f.PixelFormat)
}
