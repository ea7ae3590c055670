package videocapture

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// SampleWriter accepts encoded media samples.
// *webrtc.TrackLocalStaticSample satisfies it.
type SampleWriter interface {
	WriteSample(sample media.Sample) error
}

// NewVideoTrack creates a pion sample track for codec that can be added to a
// PeerConnection and fed by a SampleTrackRenderer.
func NewVideoTrack(codec VideoCodec, id, streamID string) (*webrtc.TrackLocalStaticSample, error) {
	if codec.MimeType() == "" {
		return nil, fmt.Errorf("unsupported track codec %v", codec)
	}
	return webrtc.NewTrackLocalStaticSample(codec.Capability(), id, streamID)
}

// SampleTrackRenderer encodes rendered frames and writes them as samples,
// typically to a *webrtc.TrackLocalStaticSample. Packetization and timing
// are left to the track.
type SampleTrackRenderer struct {
	encoder FrameEncoder
	writer  SampleWriter
	log     logging.LeveledLogger

	mu      sync.Mutex
	timing  frameTiming
	samples uint64
}

// NewSampleTrackRenderer creates a renderer writing encoder output to writer.
func NewSampleTrackRenderer(encoder FrameEncoder, writer SampleWriter, factory logging.LoggerFactory) *SampleTrackRenderer {
	return &SampleTrackRenderer{
		encoder: encoder,
		writer:  writer,
		log:     newLogger(factory, "renderer"),
	}
}

// SamplesWritten returns the number of samples written successfully.
func (r *SampleTrackRenderer) SamplesWritten() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples
}

// RenderFrame implements VideoRenderer.
func (r *SampleTrackRenderer) RenderFrame(frame *VideoFrame) {
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

	sample := media.Sample{
		Data:     encoded.Data,
		Duration: r.timing.duration(frame),
	}
	if err := r.writer.WriteSample(sample); err != nil {
		r.log.Warnf("failed to write sample: %v", err)
		return
	}
	r.samples++
}

// Close closes the encoder when it implements io.Closer.
func (r *SampleTrackRenderer) Close() error {
	if c, ok := r.encoder.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ VideoRenderer = (*SampleTrackRenderer)(nil)

// RTCPReader reads feedback for a sent track.
// *webrtc.RTPSender satisfies it.
type RTCPReader interface {
	ReadRTCP() ([]rtcp.Packet, interceptor.Attributes, error)
}

// KeyframeRequester is implemented by encoders that can force a keyframe.
type KeyframeRequester interface {
	RequestKeyframe()
}

// ForwardKeyframeRequests reads RTCP from reader until it fails and calls
// RequestKeyframe for every PLI or FIR. It returns nil when the reader is
// closed with io.EOF.
func ForwardKeyframeRequests(reader RTCPReader, requester KeyframeRequester) error {
	for {
		packets, _, err := reader.ReadRTCP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		for _, p := range packets {
			switch p.(type) {
			case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
				requester.RequestKeyframe()
			}
		}
	}
}
