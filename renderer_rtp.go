package videocapture

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/pion/rtp"
)

// defaultFrameDuration is assumed when a frame carries no timing.
const defaultFrameDuration = time.Second / 30

// orientationExtensionSize is what a one-byte CVO extension adds to a packet:
// the 4 byte extension header plus one element padded to 4 bytes.
const orientationExtensionSize = 8

// RTPRendererConfig configures an RTPRenderer.
type RTPRendererConfig struct {
	Codec       VideoCodec // Payload format (default: VP8)
	PayloadType uint8      // RTP payload type (default: codec default)
	SSRC        uint32     // Synchronization source (default: random)
	MTU         int        // Maximum packet size (default: DefaultMTU)

	// Orientation stamps the CVO header extension on the last packet of
	// every frame, carrying the frame's camera position.
	Orientation bool
	// OrientationExtensionID is the negotiated CVO extension ID
	// (default: ExtensionIDVideoOrientation).
	OrientationExtensionID uint8

	LoggerFactory logging.LoggerFactory
}

// RTPRenderer encodes rendered frames and writes them as RTP packets.
type RTPRenderer struct {
	encoder FrameEncoder
	writer  RTPWriter
	config  RTPRendererConfig
	log     logging.LeveledLogger

	mu         sync.Mutex
	packetizer rtp.Packetizer
	timing     frameTiming
	packets    uint64
}

// NewRTPRenderer creates a renderer that encodes with encoder and writes
// packets to writer.
func NewRTPRenderer(encoder FrameEncoder, writer RTPWriter, config RTPRendererConfig) (*RTPRenderer, error) {
	if encoder == nil || writer == nil {
		return nil, fmt.Errorf("rtp renderer needs an encoder and a writer")
	}
	if config.Codec == VideoCodecUnknown {
		config.Codec = VideoCodecVP8
	}
	if config.PayloadType == 0 {
		config.PayloadType = config.Codec.DefaultPayloadType()
	}
	if config.SSRC == 0 {
		config.SSRC = randutil.NewMathRandomGenerator().Uint32()
	}
	if config.MTU <= 0 {
		config.MTU = DefaultMTU
	}
	if config.OrientationExtensionID == 0 {
		config.OrientationExtensionID = ExtensionIDVideoOrientation
	}

	payloader, err := config.Codec.payloader()
	if err != nil {
		return nil, err
	}

	// The packetizer fills packets up to its MTU before the extension is added.
	mtu := config.MTU
	if config.Orientation {
		mtu -= orientationExtensionSize
	}
	if mtu <= rtpHeaderSize {
		return nil, fmt.Errorf("MTU %d too small", config.MTU)
	}

	return &RTPRenderer{
		encoder: encoder,
		writer:  writer,
		config:  config,
		log:     newLogger(config.LoggerFactory, "renderer"),
		packetizer: rtp.NewPacketizer(
			uint16(mtu),
			config.PayloadType,
			config.SSRC,
			payloader,
			rtp.NewRandomSequencer(),
			config.Codec.ClockRate(),
		),
	}, nil
}

// SSRC returns the synchronization source of outgoing packets.
func (r *RTPRenderer) SSRC() uint32 {
	return r.config.SSRC
}

// PacketsSent returns the number of packets written successfully.
func (r *RTPRenderer) PacketsSent() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.packets
}

// RenderFrame implements VideoRenderer.
func (r *RTPRenderer) RenderFrame(frame *VideoFrame) {
	encoded, err := r.encoder.Encode(frame)
	if err != nil {
		r.log.Warnf("failed to encode frame: %v", err)
		return
	}
	if encoded == nil || len(encoded.Data) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	before, after := r.timing.rtpAdvance(frame)
	if before > 0 {
		r.packetizer.SkipSamples(r.samples(before))
	}
	packets := r.packetizer.Packetize(encoded.Data, r.samples(after))
	if len(packets) == 0 {
		return
	}

	if r.config.Orientation {
		last := packets[len(packets)-1]
		orientation := OrientationForPosition(frame.Position)
		if err := last.Header.SetExtension(r.config.OrientationExtensionID, orientation.Marshal()); err != nil {
			r.log.Warnf("failed to set video orientation: %v", err)
		}
	}

	for _, p := range packets {
		if err := r.writer.WriteRTP(p); err != nil {
			r.log.Warnf("failed to write RTP packet: %v", err)
			return
		}
		r.packets++
	}
}

func (r *RTPRenderer) samples(d time.Duration) uint32 {
	return uint32(math.Round(d.Seconds() * float64(r.config.Codec.ClockRate())))
}

// frameTiming derives a frame's duration from its own duration or from the
// distance to the previous frame's timestamp.
type frameTiming struct {
	lastTimestamp int64
	started       bool

	// previous frame had no duration and has not advanced the RTP clock yet
	open bool
}

// duration estimates a frame's own duration. Without one on the frame, the
// distance from the previous frame is used, which lags by one frame when the
// frame rate changes.
func (t *frameTiming) duration(frame *VideoFrame) time.Duration {
	d := time.Duration(frame.Duration)
	if d <= 0 && t.started && frame.Timestamp > t.lastTimestamp {
		d = time.Duration(frame.Timestamp - t.lastTimestamp)
	}
	if d <= 0 {
		d = defaultFrameDuration
	}
	t.lastTimestamp = frame.Timestamp
	t.started = true
	return d
}

// rtpAdvance splits a frame's effect on the RTP clock into the time skipped
// before it is packetized and the time passed along with it. The packetizer
// applies the passed time to the following frame, so a frame without a
// duration is closed by the next frame's timestamp instead.
func (t *frameTiming) rtpAdvance(frame *VideoFrame) (before, after time.Duration) {
	if t.open {
		before = time.Duration(frame.Timestamp - t.lastTimestamp)
		if before <= 0 {
			before = defaultFrameDuration
		}
	}
	after = max(time.Duration(frame.Duration), 0)
	t.open = after == 0
	t.lastTimestamp = frame.Timestamp
	t.started = true
	return before, after
}

var _ VideoRenderer = (*RTPRenderer)(nil)
