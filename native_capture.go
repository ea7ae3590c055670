//go:build (darwin || linux) && !nodevices

package videocapture

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/pion/logging"
)

// nativeLibrary is the capture half of a libstream_* platform library.
// Both libraries share the same capture ABI and frame callback signature.
type nativeLibrary struct {
	name           string
	captureCreate  func(deviceID uintptr, width, height, fps int32, callback, userData uintptr) uint64
	captureStart   func(handle uint64) int32
	captureStop    func(handle uint64) int32
	captureDestroy func(handle uint64)
	getError       func() uintptr
}

func (l *nativeLibrary) lastError() string {
	if ptr := l.getError(); ptr != 0 {
		return goStringFromPtr(ptr)
	}
	return "unknown error"
}

// commonFormats are the sizes advertised for native cameras. The libraries
// negotiate the nearest mode the driver supports on create.
var commonFormats = []Resolution{
	{Width: 640, Height: 480},
	{Width: 1280, Height: 720},
	{Width: 1920, Height: 1080},
}

func nativeFormats(frameRates FrameRateRange) []*CaptureFormat {
	formats := make([]*CaptureFormat, 0, len(commonFormats))
	for _, r := range commonFormats {
		formats = append(formats, &CaptureFormat{
			Width:           r.Width,
			Height:          r.Height,
			PixelFormat:     PixelFormatI420,
			FrameRateRanges: []FrameRateRange{frameRates},
		})
	}
	return formats
}

// Global callback state for purego
var (
	nativeSessionsMu     sync.RWMutex
	nativeSessions       = make(map[uintptr]nativeCapture)
	nativeCaptureCounter uintptr
	nativeFrameCallback  uintptr
	nativeCallbackOnce   sync.Once
)

func initFrameCallback() {
	nativeCallbackOnce.Do(func() {
		nativeFrameCallback = purego.NewCallback(nativeFrameCallbackHandler)
	})
}

// nativeCapture is the routing entry for one native capture handle. It is
// immutable once registered.
type nativeCapture struct {
	delegate CaptureDelegate
	position CameraPosition
}

// nativePlaneSizes returns the byte sizes of the three I420 planes. Chroma
// rows round up so odd heights keep their last row.
func nativePlaneSizes(yStride, uStride, vStride, height int) (ySize, uSize, vSize int) {
	uvHeight := (height + 1) / 2
	return yStride * height, uStride * uvHeight, vStride * uvHeight
}

// nativeFrameCallbackHandler is called by the native library on its capture thread.
func nativeFrameCallbackHandler(
	yPlane uintptr, yStride int32,
	uPlane uintptr, uStride int32,
	vPlane uintptr, vStride int32,
	width, height int32,
	timestampNs int64,
	userData uintptr,
) {
	nativeSessionsMu.RLock()
	capture, ok := nativeSessions[userData]
	nativeSessionsMu.RUnlock()

	if !ok || capture.delegate == nil {
		return
	}

	// Copy frame data to avoid referencing C memory after callback returns
	ySize, uSize, vSize := nativePlaneSizes(int(yStride), int(uStride), int(vStride), int(height))

	data := make([]byte, ySize+uSize+vSize)
	copy(data[:ySize], unsafe.Slice((*byte)(unsafe.Pointer(yPlane)), ySize))
	copy(data[ySize:ySize+uSize], unsafe.Slice((*byte)(unsafe.Pointer(uPlane)), uSize))
	copy(data[ySize+uSize:], unsafe.Slice((*byte)(unsafe.Pointer(vPlane)), vSize))

	capture.delegate.DidCaptureFrame(&VideoFrame{
		Data:      [][]byte{data[:ySize], data[ySize : ySize+uSize], data[ySize+uSize:]},
		Stride:    []int{int(yStride), int(uStride), int(vStride)},
		Width:     int(width),
		Height:    int(height),
		Format:    PixelFormatI420,
		Timestamp: timestampNs,
		Position:  capture.position,
	})
}

// nativeCaptureSession drives one native capture handle at a time.
type nativeCaptureSession struct {
	lib       *nativeLibrary
	delegate  CaptureDelegate
	log       logging.LeveledLogger
	authorize func() error

	mu        sync.Mutex
	handle    uint64
	captureID uintptr
}

func newNativeCaptureSession(lib *nativeLibrary, delegate CaptureDelegate, log logging.LeveledLogger) *nativeCaptureSession {
	initFrameCallback()
	return &nativeCaptureSession{lib: lib, delegate: delegate, log: log}
}

func (s *nativeCaptureSession) StartCapture(device *CaptureDevice, format *CaptureFormat, fps int) error {
	if device == nil || format == nil {
		return fmt.Errorf("%s: missing device or format", s.lib.name)
	}
	if s.authorize != nil {
		if err := s.authorize(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	nativeSessionsMu.Lock()
	nativeCaptureCounter++
	captureID := nativeCaptureCounter
	nativeSessionsMu.Unlock()

	deviceID := cString(device.ID)
	handle := s.lib.captureCreate(
		uintptr(unsafe.Pointer(&deviceID[0])),
		int32(format.Width),
		int32(format.Height),
		int32(fps),
		nativeFrameCallback,
		captureID,
	)
	runtime.KeepAlive(deviceID)
	if handle == 0 {
		return fmt.Errorf("%s: failed to create capture: %s", s.lib.name, s.lib.lastError())
	}

	nativeSessionsMu.Lock()
	nativeSessions[captureID] = nativeCapture{delegate: s.delegate, position: device.Position}
	nativeSessionsMu.Unlock()

	if result := s.lib.captureStart(handle); result != 0 {
		nativeSessionsMu.Lock()
		delete(nativeSessions, captureID)
		nativeSessionsMu.Unlock()
		s.lib.captureDestroy(handle)
		return fmt.Errorf("%s: failed to start capture (%d): %s", s.lib.name, result, s.lib.lastError())
	}

	s.handle = handle
	s.captureID = captureID
	s.log.Debugf("%s capture %d started on %s at %s %dfps", s.lib.name, captureID, device.ID, format, fps)
	return nil
}

func (s *nativeCaptureSession) StopCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *nativeCaptureSession) stopLocked() error {
	if s.handle == 0 {
		return nil
	}

	var err error
	if result := s.lib.captureStop(s.handle); result != 0 {
		err = fmt.Errorf("%s: failed to stop capture (%d): %s", s.lib.name, result, s.lib.lastError())
	}
	s.lib.captureDestroy(s.handle)

	// Remove from active captures
	nativeSessionsMu.Lock()
	delete(nativeSessions, s.captureID)
	nativeSessionsMu.Unlock()

	s.log.Debugf("%s capture %d stopped", s.lib.name, s.captureID)
	s.handle = 0
	s.captureID = 0
	return err
}

// findLibrary searches for a library in common locations
func findLibrary(libName string, envVars ...string) string {
	var searchPaths []string
	for _, env := range envVars {
		searchPaths = append(searchPaths, os.Getenv(env))
	}

	// Add relative paths
	if exe, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Dir(exe))
	}
	searchPaths = append(searchPaths,
		"build",
		"build/ffi",
		"../build",
		"../build/ffi",
		"../../build",
		"../../build/ffi",
		"/usr/local/lib",
		"/usr/lib",
	)

	for _, p := range searchPaths {
		if p == "" {
			continue
		}
		candidate := filepath.Join(p, libName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// goStringFromPtr converts a C string pointer to a Go string.
func goStringFromPtr(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	return goStringAt(unsafe.Pointer(ptr))
}

// goStringAt reads the NUL-terminated string at p.
func goStringAt(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	var length int
	for *(*byte)(unsafe.Add(p, length)) != 0 {
		length++
		if length > 1024 { // Safety limit
			break
		}
	}
	return string(unsafe.Slice((*byte)(p), length))
}

// cString returns s as a NUL-terminated byte slice.
func cString(s string) []byte {
	return append([]byte(s), 0)
}
