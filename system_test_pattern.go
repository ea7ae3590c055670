package videocapture

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pion/logging"
)

// PatternType defines the test pattern a virtual camera generates.
type PatternType int

const (
	PatternColorBars PatternType = iota // SMPTE color bars
	PatternGradient                     // Horizontal gradient
	PatternMovingBox                    // Moving box (animated)
)

func (p PatternType) String() string {
	switch p {
	case PatternColorBars:
		return "ColorBars"
	case PatternGradient:
		return "Gradient"
	case PatternMovingBox:
		return "MovingBox"
	default:
		return "Unknown"
	}
}

// TestPatternConfig configures a TestPatternSystem.
type TestPatternConfig struct {
	Resolutions   []Resolution          // Advertised formats (default: 320x240, 640x480, 1280x720)
	MaxFPS        int                   // Upper bound of every frame rate range (default: 30)
	FrontPattern  PatternType           // Front camera pattern (default: ColorBars)
	BackPattern   PatternType           // Back camera pattern (default: MovingBox)
	LoggerFactory logging.LoggerFactory // Logger source (default: package factory)
}

// DefaultTestPatternConfig returns a default test pattern configuration.
func DefaultTestPatternConfig() TestPatternConfig {
	return TestPatternConfig{
		Resolutions: []Resolution{
			{Width: 320, Height: 240},
			{Width: 640, Height: 480},
			{Width: 1280, Height: 720},
		},
		MaxFPS:       30,
		FrontPattern: PatternColorBars,
		BackPattern:  PatternMovingBox,
	}
}

// TestPatternSystem is a CaptureSystem with a virtual front and back camera
// generating synthetic I420 frames. It works on every platform and needs no
// native library.
type TestPatternSystem struct {
	config  TestPatternConfig
	devices []*CaptureDevice
	formats []*CaptureFormat
	log     logging.LeveledLogger
}

// NewTestPatternSystem creates a test pattern capture system.
func NewTestPatternSystem(config TestPatternConfig) *TestPatternSystem {
	defaults := DefaultTestPatternConfig()
	if len(config.Resolutions) == 0 {
		config.Resolutions = defaults.Resolutions
	}
	if config.MaxFPS <= 0 {
		config.MaxFPS = defaults.MaxFPS
	}

	formats := make([]*CaptureFormat, 0, len(config.Resolutions))
	for _, r := range config.Resolutions {
		if r.IsZero() {
			continue
		}
		formats = append(formats, &CaptureFormat{
			// I420 needs even dimensions
			Width:           r.Width &^ 1,
			Height:          r.Height &^ 1,
			PixelFormat:     PixelFormatI420,
			FrameRateRanges: []FrameRateRange{{MinFrameRate: 1, MaxFrameRate: float64(config.MaxFPS)}},
		})
	}

	return &TestPatternSystem{
		config: config,
		devices: []*CaptureDevice{
			{ID: "testpattern:front", Label: "Test Pattern Front Camera", Position: CameraPositionFront},
			{ID: "testpattern:back", Label: "Test Pattern Back Camera", Position: CameraPositionBack},
		},
		formats: formats,
		log:     newLogger(config.LoggerFactory, "testpattern"),
	}
}

// CaptureDevices implements CaptureSystem.
func (s *TestPatternSystem) CaptureDevices() []*CaptureDevice {
	devices := make([]*CaptureDevice, len(s.devices))
	copy(devices, s.devices)
	return devices
}

// SupportedFormats implements CaptureSystem.
func (s *TestPatternSystem) SupportedFormats(device *CaptureDevice) []*CaptureFormat {
	if !s.owns(device) {
		return nil
	}
	formats := make([]*CaptureFormat, len(s.formats))
	copy(formats, s.formats)
	return formats
}

// NewCaptureSession implements CaptureSystem.
func (s *TestPatternSystem) NewCaptureSession(delegate CaptureDelegate) CaptureSession {
	return &testPatternSession{system: s, delegate: delegate}
}

func (s *TestPatternSystem) owns(device *CaptureDevice) bool {
	for _, d := range s.devices {
		if d == device {
			return true
		}
	}
	return false
}

func (s *TestPatternSystem) patternFor(device *CaptureDevice) PatternType {
	if device.Position == CameraPositionBack {
		return s.config.BackPattern
	}
	return s.config.FrontPattern
}

type testPatternSession struct {
	system   *TestPatternSystem
	delegate CaptureDelegate

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *testPatternSession) StartCapture(device *CaptureDevice, format *CaptureFormat, fps int) error {
	if !s.system.owns(device) {
		return fmt.Errorf("unknown test pattern device %v", device)
	}
	if format == nil || format.Width <= 0 || format.Height <= 0 {
		return fmt.Errorf("invalid capture format %v", format)
	}
	if fps <= 0 {
		return fmt.Errorf("invalid frame rate %d", fps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	gen := newPatternGenerator(format.Width&^1, format.Height&^1, s.system.patternFor(device))
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.system.log.Debugf("generating %s on %s at %s %dfps", gen.pattern, device.Label, format, fps)
	go s.generateLoop(ctx, s.done, gen, device.Position, time.Second/time.Duration(fps))
	return nil
}

func (s *testPatternSession) StopCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

// stopLocked cancels the generator and waits for it to exit.
func (s *testPatternSession) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *testPatternSession) generateLoop(ctx context.Context, done chan struct{}, gen *patternGenerator, position CameraPosition, frameDuration time.Duration) {
	defer close(done)

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	startTime := time.Now()
	var frameCount uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frameCount++
			frame := gen.next(frameCount)
			frame.Timestamp = time.Since(startTime).Nanoseconds()
			frame.Duration = frameDuration.Nanoseconds()
			frame.Position = position
			s.delegate.DidCaptureFrame(frame)
		}
	}
}

// patternGenerator renders a pattern into a single reused I420 buffer.
type patternGenerator struct {
	width, height int
	pattern       PatternType

	yPlane, uPlane, vPlane []byte
}

func newPatternGenerator(width, height int, pattern PatternType) *patternGenerator {
	ySize := width * height
	uvSize := (width / 2) * (height / 2)
	data := make([]byte, ySize+2*uvSize)

	g := &patternGenerator{
		width:   width,
		height:  height,
		pattern: pattern,
		yPlane:  data[:ySize],
		uPlane:  data[ySize : ySize+uvSize],
		vPlane:  data[ySize+uvSize:],
	}
	g.generate(0)
	return g
}

// next returns the frame for frameNum. The planes are shared between frames.
func (g *patternGenerator) next(frameNum uint64) *VideoFrame {
	if g.pattern == PatternMovingBox {
		g.generate(frameNum)
	}
	return &VideoFrame{
		Data:   [][]byte{g.yPlane, g.uPlane, g.vPlane},
		Stride: []int{g.width, g.width / 2, g.width / 2},
		Width:  g.width,
		Height: g.height,
		Format: PixelFormatI420,
	}
}

func (g *patternGenerator) generate(frameNum uint64) {
	switch g.pattern {
	case PatternGradient:
		g.generateGradient()
	case PatternMovingBox:
		g.generateMovingBox(frameNum)
	default:
		g.generateColorBars()
	}
}

// SMPTE color bars (simplified 8-bar pattern)
var colorBarsRGB = [][3]uint8{
	{192, 192, 192}, // White (75%)
	{192, 192, 0},   // Yellow
	{0, 192, 192},   // Cyan
	{0, 192, 0},     // Green
	{192, 0, 192},   // Magenta
	{192, 0, 0},     // Red
	{0, 0, 192},     // Blue
	{16, 16, 16},    // Black
}

func (g *patternGenerator) generateColorBars() {
	w, h := g.width, g.height
	barWidth := max(w/8, 1)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			barIdx := min(x/barWidth, 7)
			rgb := colorBarsRGB[barIdx]
			yVal, u, v := rgbToYUV(rgb[0], rgb[1], rgb[2])

			g.yPlane[y*w+x] = yVal

			// UV planes (subsampled 2x2)
			if x%2 == 0 && y%2 == 0 {
				uvIdx := (y/2)*(w/2) + (x / 2)
				g.uPlane[uvIdx] = u
				g.vPlane[uvIdx] = v
			}
		}
	}
}

func (g *patternGenerator) generateGradient() {
	w, h := g.width, g.height

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.yPlane[y*w+x] = uint8((x * 255) / w)
		}
	}
	fill(g.uPlane, 128)
	fill(g.vPlane, 128)
}

func (g *patternGenerator) generateMovingBox(frameNum uint64) {
	w, h := g.width, g.height

	fill(g.yPlane, 16)
	fill(g.uPlane, 128)
	fill(g.vPlane, 128)

	// Box moves in a circle around the center
	boxSize := max(min(w, h)/5, 2)
	radius := float64(min(w, h)) / 4
	angle := float64(frameNum) * 0.05
	boxX := w/2 + int(radius*math.Cos(angle)) - boxSize/2
	boxY := h/2 + int(radius*math.Sin(angle)) - boxSize/2

	for y := max(boxY, 0); y < boxY+boxSize && y < h; y++ {
		for x := max(boxX, 0); x < boxX+boxSize && x < w; x++ {
			g.yPlane[y*w+x] = 235
		}
	}
}

// rgbToYUV converts RGB to YUV (BT.601)
func rgbToYUV(r, g, b uint8) (y, u, v uint8) {
	yf := 16.0 + 65.481*float64(r)/255.0 + 128.553*float64(g)/255.0 + 24.966*float64(b)/255.0
	uf := 128.0 - 37.797*float64(r)/255.0 - 74.203*float64(g)/255.0 + 112.0*float64(b)/255.0
	vf := 128.0 + 112.0*float64(r)/255.0 - 93.786*float64(g)/255.0 - 18.214*float64(b)/255.0

	y = uint8(clamp(yf, 16, 235))
	u = uint8(clamp(uf, 16, 240))
	v = uint8(clamp(vf, 16, 240))
	return
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ CaptureSystem = (*TestPatternSystem)(nil)
