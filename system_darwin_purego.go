//go:build darwin && !nodevices

package videocapture

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/pion/logging"
)

// AVFoundation permission status values
const (
	AVAuthorizationStatusNotDetermined = 0
	AVAuthorizationStatusRestricted    = 1
	AVAuthorizationStatusDenied        = 2
	AVAuthorizationStatusAuthorized    = 3
)

// ErrCameraPermission is returned by StartCapture when camera access is not granted.
var ErrCameraPermission = errors.New("camera permission not granted")

var (
	avfOnce    sync.Once
	avfHandle  uintptr
	avfInitErr error
	avfLoaded  bool
	avfLib     nativeLibrary
)

// libstream_avfoundation function pointers
var (
	streamAVVideoDeviceCount        func() int32
	streamAVVideoDeviceID           func(index int32) uintptr
	streamAVVideoDeviceLabel        func(index int32) uintptr
	streamAVFreeString              func(ptr uintptr)
	streamAVCameraPermissionStatus  func() int32
	streamAVRequestCameraPermission func()
	streamAVVideoDeviceFPSRange     func(deviceID uintptr, minFPS, maxFPS uintptr) int32
)

func initAVFoundation() {
	avfOnce.Do(func() {
		libPath := findLibrary("libstream_avfoundation.dylib", "STREAM_AV_LIB_PATH", "STREAM_SDK_LIB_PATH")
		if libPath == "" {
			avfInitErr = fmt.Errorf("libstream_avfoundation.dylib not found")
			return
		}

		var err error
		avfHandle, err = purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			avfInitErr = fmt.Errorf("failed to load %s: %w", libPath, err)
			return
		}

		// Load function pointers
		purego.RegisterLibFunc(&streamAVVideoDeviceCount, avfHandle, "stream_av_video_device_count")
		purego.RegisterLibFunc(&streamAVVideoDeviceID, avfHandle, "stream_av_video_device_id")
		purego.RegisterLibFunc(&streamAVVideoDeviceLabel, avfHandle, "stream_av_video_device_label")
		purego.RegisterLibFunc(&streamAVFreeString, avfHandle, "stream_av_free_string")
		purego.RegisterLibFunc(&streamAVCameraPermissionStatus, avfHandle, "stream_av_camera_permission_status")
		purego.RegisterLibFunc(&streamAVRequestCameraPermission, avfHandle, "stream_av_request_camera_permission")
		purego.RegisterLibFunc(&streamAVVideoDeviceFPSRange, avfHandle, "stream_av_video_device_fps_range")

		avfLib.name = "avfoundation"
		purego.RegisterLibFunc(&avfLib.captureCreate, avfHandle, "stream_av_video_capture_create")
		purego.RegisterLibFunc(&avfLib.captureStart, avfHandle, "stream_av_video_capture_start")
		purego.RegisterLibFunc(&avfLib.captureStop, avfHandle, "stream_av_video_capture_stop")
		purego.RegisterLibFunc(&avfLib.captureDestroy, avfHandle, "stream_av_video_capture_destroy")
		purego.RegisterLibFunc(&avfLib.getError, avfHandle, "stream_av_get_error")

		avfLoaded = true
	})
}

// IsAVFoundationAvailable returns true if AVFoundation library is available.
func IsAVFoundationAvailable() bool {
	initAVFoundation()
	return avfLoaded
}

// CameraPermissionStatus returns the current camera permission status.
func CameraPermissionStatus() int {
	initAVFoundation()
	if !avfLoaded {
		return AVAuthorizationStatusNotDetermined
	}
	return int(streamAVCameraPermissionStatus())
}

// RequestCameraPermission requests camera permission (async).
func RequestCameraPermission() {
	initAVFoundation()
	if avfLoaded {
		streamAVRequestCameraPermission()
	}
}

// AVFoundationSystem implements CaptureSystem using macOS AVFoundation via purego.
type AVFoundationSystem struct {
	log logging.LeveledLogger
}

// NewAVFoundationSystem creates the AVFoundation capture system.
func NewAVFoundationSystem(factory logging.LoggerFactory) (*AVFoundationSystem, error) {
	initAVFoundation()
	if !avfLoaded {
		return nil, fmt.Errorf("AVFoundation not available: %w", avfInitErr)
	}
	return &AVFoundationSystem{log: newLogger(factory, "native")}, nil
}

// CaptureDevices implements CaptureSystem.
func (s *AVFoundationSystem) CaptureDevices() []*CaptureDevice {
	count := streamAVVideoDeviceCount()
	devices := make([]*CaptureDevice, 0, count)

	for i := int32(0); i < count; i++ {
		idPtr := streamAVVideoDeviceID(i)
		labelPtr := streamAVVideoDeviceLabel(i)

		if idPtr != 0 && labelPtr != 0 {
			label := goStringFromPtr(labelPtr)
			devices = append(devices, &CaptureDevice{
				ID:       goStringFromPtr(idPtr),
				Label:    label,
				Position: PositionFromLabel(label),
			})
		}
		if idPtr != 0 {
			streamAVFreeString(idPtr)
		}
		if labelPtr != 0 {
			streamAVFreeString(labelPtr)
		}
	}
	return devices
}

// SupportedFormats implements CaptureSystem. Every format advertises the
// device's frame rate range.
func (s *AVFoundationSystem) SupportedFormats(device *CaptureDevice) []*CaptureFormat {
	if device == nil {
		return nil
	}

	deviceID := cString(device.ID)
	var minVal, maxVal int32
	result := streamAVVideoDeviceFPSRange(
		uintptr(unsafe.Pointer(&deviceID[0])),
		uintptr(unsafe.Pointer(&minVal)),
		uintptr(unsafe.Pointer(&maxVal)),
	)
	if result != 0 || maxVal <= 0 {
		s.log.Debugf("no frame rate range for %s: %s", device.Label, avfLib.lastError())
		return nil
	}
	return nativeFormats(FrameRateRange{MinFrameRate: float64(minVal), MaxFrameRate: float64(maxVal)})
}

// NewCaptureSession implements CaptureSystem.
func (s *AVFoundationSystem) NewCaptureSession(delegate CaptureDelegate) CaptureSession {
	session := newNativeCaptureSession(&avfLib, delegate, s.log)
	session.authorize = authorizeCamera
	return session
}

func authorizeCamera() error {
	switch streamAVCameraPermissionStatus() {
	case AVAuthorizationStatusNotDetermined:
		streamAVRequestCameraPermission()
		return fmt.Errorf("%w: not yet determined, grant permission and try again", ErrCameraPermission)
	case AVAuthorizationStatusDenied, AVAuthorizationStatusRestricted:
		return fmt.Errorf("%w: denied", ErrCameraPermission)
	}
	return nil
}

func init() {
	if system, err := NewAVFoundationSystem(nil); err == nil {
		RegisterCaptureSystem(system)
	}
}
