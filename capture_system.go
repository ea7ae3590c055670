package videocapture

import (
	"sync"
)

// CaptureDelegate receives frames from a capture session.
// DidCaptureFrame runs on the session's delivery goroutine and must not block.
type CaptureDelegate interface {
	DidCaptureFrame(frame *VideoFrame)
}

// CaptureSession drives one camera at a time on behalf of a capturer.
type CaptureSession interface {
	// StartCapture begins capture on device with the given format and frame rate.
	// Calling it while capturing switches to the new configuration.
	StartCapture(device *CaptureDevice, format *CaptureFormat, fps int) error

	// StopCapture ends capture. It is a no-op when nothing is capturing.
	StopCapture() error
}

// CaptureSystem is the native camera capture engine.
type CaptureSystem interface {
	// CaptureDevices returns the available cameras in native enumeration order.
	CaptureDevices() []*CaptureDevice

	// SupportedFormats returns the formats device can capture in.
	SupportedFormats(device *CaptureDevice) []*CaptureFormat

	// NewCaptureSession creates a session that delivers frames to delegate.
	NewCaptureSession(delegate CaptureDelegate) CaptureSession
}

// captureRegistry holds the registered capture system.
type captureRegistry struct {
	system CaptureSystem
	mu     sync.RWMutex
}

var globalCaptureRegistry = &captureRegistry{}

// RegisterCaptureSystem registers the platform capture system.
// Platform implementations call this from init when their native library loads.
func RegisterCaptureSystem(system CaptureSystem) {
	globalCaptureRegistry.mu.Lock()
	defer globalCaptureRegistry.mu.Unlock()
	globalCaptureRegistry.system = system
}

// GetCaptureSystem returns the registered capture system, or nil.
func GetCaptureSystem() CaptureSystem {
	globalCaptureRegistry.mu.RLock()
	defer globalCaptureRegistry.mu.RUnlock()
	return globalCaptureRegistry.system
}

// CaptureDevices returns all cameras of the registered capture system.
func CaptureDevices() []*CaptureDevice {
	system := GetCaptureSystem()
	if system == nil {
		return nil
	}
	return system.CaptureDevices()
}

// CaptureDeviceForPosition returns the first registered camera at position, or nil.
func CaptureDeviceForPosition(position CameraPosition) *CaptureDevice {
	return FindCaptureDevice(CaptureDevices(), position)
}

// FindCaptureDevice returns the first device in devices whose position tag
// matches position. Only front and back match.
func FindCaptureDevice(devices []*CaptureDevice, position CameraPosition) *CaptureDevice {
	if position != CameraPositionFront && position != CameraPositionBack {
		return nil
	}
	for _, device := range devices {
		if device != nil && device.Position == position {
			return device
		}
	}
	return nil
}

// DefaultPreferredResolution is the resolution SuitableFormat aims for when
// the capturer is not configured otherwise.
var DefaultPreferredResolution = Resolution{Width: 1280, Height: 720}

// SuitableFormat picks the format whose size is closest to preferred, measured
// as |Δwidth|+|Δheight|. Ties go to the higher maximum frame rate, then to
// enumeration order. A zero preferred resolution selects the first format.
func SuitableFormat(formats []*CaptureFormat, preferred Resolution) *CaptureFormat {
	if len(formats) == 0 {
		return nil
	}
	if preferred.IsZero() {
		return formats[0]
	}

	var (
		best     *CaptureFormat
		bestDist int
		bestFPS  float64
	)
	for _, f := range formats {
		if f == nil {
			continue
		}
		dist := abs(f.Width-preferred.Width) + abs(f.Height-preferred.Height)
		fps := maxFrameRate(f)
		if best == nil || dist < bestDist || (dist == bestDist && fps > bestFPS) {
			best, bestDist, bestFPS = f, dist, fps
		}
	}
	return best
}

// SuitableFrameRate returns the highest MaxFrameRate advertised by format.
// The first range wins among equal maxima. ok is false when format reports no
// frame rate ranges.
func SuitableFrameRate(format *CaptureFormat) (fps int, ok bool) {
	if format == nil || len(format.FrameRateRanges) == 0 {
		return 0, false
	}
	best := format.FrameRateRanges[0]
	for _, r := range format.FrameRateRanges[1:] {
		if best.MaxFrameRate < r.MaxFrameRate {
			best = r
		}
	}
	return int(best.MaxFrameRate), true
}

func maxFrameRate(format *CaptureFormat) float64 {
	var m float64
	for _, r := range format.FrameRateRanges {
		if r.MaxFrameRate > m {
			m = r.MaxFrameRate
		}
	}
	return m
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
