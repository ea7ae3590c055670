package videocapture

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/pion/logging"
)

// CameraConfig configures a CameraVideoCapturer.
type CameraConfig struct {
	System              CaptureSystem         // Capture engine (default: registered system)
	Position            CameraPosition        // Initial position (default: front)
	PreferredResolution Resolution            // Format selection target (default: 1280x720)
	LoggerFactory       logging.LoggerFactory // Logger source (default: package factory)
}

// DefaultCameraConfig returns a default camera configuration.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Position:            CameraPositionFront,
		PreferredResolution: DefaultPreferredResolution,
	}
}

// CameraVideoCapturer captures video from the front or back camera of a
// CaptureSystem and forwards each frame to its stream and capture handler.
//
// Lifecycle calls (Start, Stop, SetPosition) are serialized internally but
// are expected to come from a single owner. They must not be made from the
// capture handler or from a renderer of the attached stream. The accessors
// never block on a lifecycle call and are safe to use from both.
//
// A capturer that is collected while running stops its session.
type CameraVideoCapturer struct {
	system    CaptureSystem
	session   CaptureSession
	preferred Resolution
	log       logging.LeveledLogger
	handlers  *VideoCapturerHandlers

	// mu serializes lifecycle calls. Stopping a session waits for its
	// delivery goroutine, so state read during delivery lives in atomics.
	mu       sync.Mutex
	running  atomic.Bool
	position atomic.Int32
	front    atomic.Pointer[CaptureDevice]
	back     atomic.Pointer[CaptureDevice]

	streamMu sync.RWMutex
	stream   weak.Pointer[MediaStream]
}

var (
	sharedOnce     sync.Once
	sharedCapturer *CameraVideoCapturer
)

// Shared returns the process-wide camera capturer. It is created on first
// use over the registered capture system and lives for the process lifetime.
// Code that needs a different system should create its own capturer with
// NewCameraVideoCapturer.
func Shared() *CameraVideoCapturer {
	sharedOnce.Do(func() {
		sharedCapturer = NewCameraVideoCapturer(DefaultCameraConfig())
	})
	return sharedCapturer
}

// NewCameraVideoCapturer creates a stopped capturer and resolves the front
// and back cameras of the capture system. A missing camera is not an error;
// starting at its position fails with ErrNoCaptureDevice.
func NewCameraVideoCapturer(config CameraConfig) *CameraVideoCapturer {
	if config.System == nil {
		config.System = GetCaptureSystem()
	}
	if config.System == nil {
		config.System = emptyCaptureSystem{}
	}
	if config.Position != CameraPositionBack {
		config.Position = CameraPositionFront
	}
	if config.PreferredResolution.IsZero() {
		config.PreferredResolution = DefaultPreferredResolution
	}

	c := &CameraVideoCapturer{
		system:    config.System,
		preferred: config.PreferredResolution,
		log:       newLogger(config.LoggerFactory, "camera"),
		handlers:  &VideoCapturerHandlers{},
	}
	c.position.Store(int32(config.Position))
	c.session = c.system.NewCaptureSession(&cameraCaptureDelegate{capturer: weak.Make(c)})
	runtime.AddCleanup(c, stopCollectedSession, c.session)

	c.storeDevices(c.system.CaptureDevices())
	return c
}

// stopCollectedSession stops the session of a capturer that was collected
// without being stopped. Stopping an idle session is a no-op.
func stopCollectedSession(session CaptureSession) {
	_ = session.StopCapture()
}

// Stream implements VideoCapturer.
func (c *CameraVideoCapturer) Stream() *MediaStream {
	c.streamMu.RLock()
	defer c.streamMu.RUnlock()
	return c.stream.Value()
}

// SetStream implements VideoCapturer.
func (c *CameraVideoCapturer) SetStream(stream *MediaStream) {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	if stream == nil {
		c.stream = weak.Pointer[MediaStream]{}
		return
	}
	c.stream = weak.Make(stream)
}

// Handlers implements VideoCapturer.
func (c *CameraVideoCapturer) Handlers() *VideoCapturerHandlers {
	return c.handlers
}

// IsRunning reports whether capture has been started and not stopped.
func (c *CameraVideoCapturer) IsRunning() bool {
	return c.running.Load()
}

// Position returns the selected camera position.
func (c *CameraVideoCapturer) Position() CameraPosition {
	return CameraPosition(c.position.Load())
}

// Device returns the cached camera for position, or nil.
func (c *CameraVideoCapturer) Device(position CameraPosition) *CaptureDevice {
	return c.deviceFor(position)
}

// RefreshDevices re-resolves the front and back cameras, for example after a
// device was plugged in. A running capture keeps its current device until the
// next start or position change.
func (c *CameraVideoCapturer) RefreshDevices() {
	c.storeDevices(c.system.CaptureDevices())
}

func (c *CameraVideoCapturer) storeDevices(devices []*CaptureDevice) {
	c.front.Store(FindCaptureDevice(devices, CameraPositionFront))
	c.back.Store(FindCaptureDevice(devices, CameraPositionBack))
}

// Start implements VideoCapturer. It resolves the camera at the current
// position, its most suitable format and frame rate, then starts the session.
// When any of these cannot be resolved Start returns the reason and the
// capturer stays stopped.
func (c *CameraVideoCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return nil
	}
	if err := c.startCurrentDevice(true); err != nil {
		return err
	}
	c.running.Store(true)
	return nil
}

// Stop implements VideoCapturer. The capturer is stopped afterwards even if
// the session reports an error.
func (c *CameraVideoCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.running.Load() {
		c.log.Debug("stop camera video capture")
		err = c.session.StopCapture()
	}
	c.running.Store(false)
	return err
}

// SetPosition selects the camera to capture from. While running the current
// camera is stopped and the new one started before SetPosition returns, even
// when position is unchanged. If the new camera cannot be started the
// capturer ends up stopped and the error is returned.
func (c *CameraVideoCapturer) SetPosition(position CameraPosition) error {
	if position != CameraPositionFront && position != CameraPositionBack {
		return fmt.Errorf("%w: %v", ErrInvalidPosition, position)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.position.Store(int32(position))
	if !c.running.Load() {
		return nil
	}

	stopErr := c.session.StopCapture()
	if err := c.startCurrentDevice(false); err != nil {
		c.running.Store(false)
		return errors.Join(stopErr, err)
	}
	return stopErr
}

// SwitchPosition toggles between the front and back camera.
func (c *CameraVideoCapturer) SwitchPosition() error {
	return c.SetPosition(c.Position().Opposite())
}

// startCurrentDevice resolves and starts the camera at the selected position.
// Must be called with c.mu held.
func (c *CameraVideoCapturer) startCurrentDevice(logStart bool) error {
	position := c.Position()
	device := c.deviceFor(position)
	if device == nil {
		return fmt.Errorf("%w: %s", ErrNoCaptureDevice, position)
	}
	format := SuitableFormat(c.system.SupportedFormats(device), c.preferred)
	if format == nil {
		return fmt.Errorf("%w: %s", ErrNoCaptureFormat, device.Label)
	}
	fps, ok := SuitableFrameRate(format)
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrNoFrameRate, device.Label, format)
	}

	if logStart {
		c.log.Debug("start camera video capture")
	}
	if err := c.session.StartCapture(device, format, fps); err != nil {
		return fmt.Errorf("failed to start capture on %s: %w", device.Label, err)
	}
	return nil
}

func (c *CameraVideoCapturer) deviceFor(position CameraPosition) *CaptureDevice {
	switch position {
	case CameraPositionFront:
		return c.front.Load()
	case CameraPositionBack:
		return c.back.Load()
	default:
		return nil
	}
}

// deliver forwards a captured frame: stream first, then the capture handler.
func (c *CameraVideoCapturer) deliver(frame *VideoFrame) {
	if frame.Position == CameraPositionUnspecified {
		frame.Position = c.Position()
	}
	if stream := c.Stream(); stream != nil {
		stream.Render(frame)
	}
	c.handlers.capture(frame)
}

// cameraCaptureDelegate adapts the session callback to the capturer without
// keeping the capturer alive.
type cameraCaptureDelegate struct {
	capturer weak.Pointer[CameraVideoCapturer]
}

func (d *cameraCaptureDelegate) DidCaptureFrame(frame *VideoFrame) {
	if frame == nil {
		return
	}
	if c := d.capturer.Value(); c != nil {
		c.deliver(frame)
	}
}

var _ VideoCapturer = (*CameraVideoCapturer)(nil)

// emptyCaptureSystem stands in when no platform system is registered.
type emptyCaptureSystem struct{}

func (emptyCaptureSystem) CaptureDevices() []*CaptureDevice                 { return nil }
func (emptyCaptureSystem) SupportedFormats(*CaptureDevice) []*CaptureFormat { return nil }
func (emptyCaptureSystem) NewCaptureSession(CaptureDelegate) CaptureSession { return emptyCaptureSession{} }

type emptyCaptureSession struct{}

func (emptyCaptureSession) StartCapture(*CaptureDevice, *CaptureFormat, int) error { return nil }
func (emptyCaptureSession) StopCapture() error                                     { return nil }
