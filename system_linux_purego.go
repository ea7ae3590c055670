//go:build linux && !nodevices

package videocapture

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/pion/logging"
)

var (
	v4l2Once    sync.Once
	v4l2Handle  uintptr
	v4l2InitErr error
	v4l2Loaded  bool
	v4l2Lib     nativeLibrary
)

// V4L2 function pointers
var (
	streamV4L2DeviceCount func() int32
	streamV4L2DevicePath  func(index int32) uintptr
	streamV4L2DeviceName  func(index int32) uintptr
	streamV4L2FreeString  func(ptr uintptr)
)

// v4l2FrameRates is advertised for every V4L2 format; the library does not
// report per-device rates and clamps the requested rate on create.
var v4l2FrameRates = FrameRateRange{MinFrameRate: 1, MaxFrameRate: 30}

func initV4L2() {
	v4l2Once.Do(func() {
		libPath := findLibrary("libstream_v4l2.so", "STREAM_SDK_LIB_PATH")
		if libPath == "" {
			v4l2InitErr = fmt.Errorf("libstream_v4l2.so not found")
			return
		}

		var err error
		v4l2Handle, err = purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			v4l2InitErr = fmt.Errorf("failed to load %s: %w", libPath, err)
			return
		}

		// Load function pointers
		purego.RegisterLibFunc(&streamV4L2DeviceCount, v4l2Handle, "stream_v4l2_device_count")
		purego.RegisterLibFunc(&streamV4L2DevicePath, v4l2Handle, "stream_v4l2_device_path")
		purego.RegisterLibFunc(&streamV4L2DeviceName, v4l2Handle, "stream_v4l2_device_name")
		purego.RegisterLibFunc(&streamV4L2FreeString, v4l2Handle, "stream_v4l2_free_string")

		v4l2Lib.name = "v4l2"
		purego.RegisterLibFunc(&v4l2Lib.captureCreate, v4l2Handle, "stream_v4l2_capture_create")
		purego.RegisterLibFunc(&v4l2Lib.captureStart, v4l2Handle, "stream_v4l2_capture_start")
		purego.RegisterLibFunc(&v4l2Lib.captureStop, v4l2Handle, "stream_v4l2_capture_stop")
		purego.RegisterLibFunc(&v4l2Lib.captureDestroy, v4l2Handle, "stream_v4l2_capture_destroy")
		purego.RegisterLibFunc(&v4l2Lib.getError, v4l2Handle, "stream_v4l2_get_error")

		v4l2Loaded = true
	})
}

// IsV4L2Available returns true if V4L2 library is available.
func IsV4L2Available() bool {
	initV4L2()
	return v4l2Loaded
}

// V4L2System implements CaptureSystem using Video4Linux2 via purego.
type V4L2System struct {
	log logging.LeveledLogger
}

// NewV4L2System creates the V4L2 capture system.
func NewV4L2System(factory logging.LoggerFactory) (*V4L2System, error) {
	initV4L2()
	if !v4l2Loaded {
		return nil, fmt.Errorf("V4L2 not available: %w", v4l2InitErr)
	}
	return &V4L2System{log: newLogger(factory, "native")}, nil
}

// CaptureDevices implements CaptureSystem. Device IDs are device paths.
func (s *V4L2System) CaptureDevices() []*CaptureDevice {
	count := streamV4L2DeviceCount()
	devices := make([]*CaptureDevice, 0, count)

	for i := int32(0); i < count; i++ {
		pathPtr := streamV4L2DevicePath(i)
		namePtr := streamV4L2DeviceName(i)

		if pathPtr != 0 && namePtr != 0 {
			name := goStringFromPtr(namePtr)
			devices = append(devices, &CaptureDevice{
				ID:       goStringFromPtr(pathPtr),
				Label:    name,
				Position: PositionFromLabel(name),
			})
		}
		if pathPtr != 0 {
			streamV4L2FreeString(pathPtr)
		}
		if namePtr != 0 {
			streamV4L2FreeString(namePtr)
		}
	}
	return devices
}

// SupportedFormats implements CaptureSystem.
func (s *V4L2System) SupportedFormats(device *CaptureDevice) []*CaptureFormat {
	if device == nil {
		return nil
	}
	return nativeFormats(v4l2FrameRates)
}

// NewCaptureSession implements CaptureSystem.
func (s *V4L2System) NewCaptureSession(delegate CaptureDelegate) CaptureSession {
	return newNativeCaptureSession(&v4l2Lib, delegate, s.log)
}

func init() {
	if system, err := NewV4L2System(nil); err == nil {
		RegisterCaptureSystem(system)
	}
}
