package videocapture

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4/pkg/media"
)

type sampleRecorder struct {
	samples []media.Sample
	err     error
}

func (r *sampleRecorder) WriteSample(s media.Sample) error {
	if r.err != nil {
		return r.err
	}
	r.samples = append(r.samples, s)
	return nil
}

type closingEncoder struct {
	FrameEncoder
	closed bool
}

func (e *closingEncoder) Close() error {
	e.closed = true
	return nil
}

func TestSampleTrackRenderer_Durations(t *testing.T) {
	writer := &sampleRecorder{}
	r := NewSampleTrackRenderer(fixedEncoder(100), writer, nil)

	// No timing information
	r.RenderFrame(&VideoFrame{Timestamp: 0})
	// Explicit duration
	r.RenderFrame(&VideoFrame{Timestamp: 10_000_000, Duration: 20_000_000})
	// Derived from timestamps
	r.RenderFrame(&VideoFrame{Timestamp: 50_000_000})

	want := []time.Duration{defaultFrameDuration, 20 * time.Millisecond, 40 * time.Millisecond}
	if len(writer.samples) != len(want) {
		t.Fatalf("wrote %d samples, want %d", len(writer.samples), len(want))
	}
	for i, s := range writer.samples {
		if s.Duration != want[i] {
			t.Errorf("sample %d duration = %v, want %v", i, s.Duration, want[i])
		}
		if len(s.Data) != 100 {
			t.Errorf("sample %d size = %d, want 100", i, len(s.Data))
		}
	}
	if r.SamplesWritten() != 3 {
		t.Errorf("SamplesWritten() = %d, want 3", r.SamplesWritten())
	}
}

func TestSampleTrackRenderer_Failures(t *testing.T) {
	log := &eventLog{}
	writer := &sampleRecorder{err: errors.New("track closed")}
	r := NewSampleTrackRenderer(fixedEncoder(100), writer, recordingLoggerFactory{log: log})

	r.RenderFrame(NewI420Frame(16, 16))
	if r.SamplesWritten() != 0 {
		t.Errorf("SamplesWritten() = %d, want 0", r.SamplesWritten())
	}
	if n := log.count("warn:failed to write sample"); n != 1 {
		t.Errorf("write warnings = %d, want 1", n)
	}

	r = NewSampleTrackRenderer(FrameEncoderFunc(func(*VideoFrame) (*EncodedFrame, error) {
		return nil, errors.New("encoder broken")
	}), &sampleRecorder{}, recordingLoggerFactory{log: log})
	r.RenderFrame(NewI420Frame(16, 16))
	if n := log.count("warn:failed to encode frame"); n != 1 {
		t.Errorf("encode warnings = %d, want 1", n)
	}
}

func TestSampleTrackRenderer_WebRTCTrack(t *testing.T) {
	track, err := NewVideoTrack(VideoCodecVP8, "video", "camera")
	if err != nil {
		t.Fatalf("NewVideoTrack failed: %v", err)
	}
	if track.Codec().MimeType != "video/VP8" {
		t.Errorf("track codec = %s, want video/VP8", track.Codec().MimeType)
	}
	if track.ID() != "video" || track.StreamID() != "camera" {
		t.Errorf("track id = %s/%s", track.StreamID(), track.ID())
	}

	// An unbound track accepts samples
	r := NewSampleTrackRenderer(fixedEncoder(100), track, nil)
	r.RenderFrame(NewI420Frame(16, 16))
	if r.SamplesWritten() != 1 {
		t.Errorf("SamplesWritten() = %d, want 1", r.SamplesWritten())
	}

	if _, err := NewVideoTrack(VideoCodecUnknown, "video", "camera"); err == nil {
		t.Error("unknown codec should fail")
	}
}

func TestSampleTrackRenderer_ClosedByStream(t *testing.T) {
	encoder := &closingEncoder{FrameEncoder: fixedEncoder(10)}
	stream := NewMediaStream("s")
	stream.AddVideoRenderer(NewSampleTrackRenderer(encoder, &sampleRecorder{}, nil))

	if err := stream.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !encoder.closed {
		t.Error("stream Close should close the encoder")
	}
}

type scriptedRTCPReader struct {
	batches [][]rtcp.Packet
	err     error
}

func (r *scriptedRTCPReader) ReadRTCP() ([]rtcp.Packet, interceptor.Attributes, error) {
	if len(r.batches) == 0 {
		return nil, nil, r.err
	}
	batch := r.batches[0]
	r.batches = r.batches[1:]
	return batch, nil, nil
}

type keyframeCounter struct{ n int }

func (k *keyframeCounter) RequestKeyframe() { k.n++ }

func TestForwardKeyframeRequests(t *testing.T) {
	reader := &scriptedRTCPReader{
		batches: [][]rtcp.Packet{
			{&rtcp.PictureLossIndication{MediaSSRC: 1}},
			{&rtcp.ReceiverReport{SSRC: 2}, &rtcp.FullIntraRequest{MediaSSRC: 1}},
			{&rtcp.ReceiverReport{SSRC: 2}},
		},
		err: io.EOF,
	}
	counter := &keyframeCounter{}

	if err := ForwardKeyframeRequests(reader, counter); err != nil {
		t.Fatalf("ForwardKeyframeRequests() = %v, want nil on EOF", err)
	}
	if counter.n != 2 {
		t.Errorf("keyframe requests = %d, want 2", counter.n)
	}

	wantErr := errors.New("sender stopped")
	if err := ForwardKeyframeRequests(&scriptedRTCPReader{err: wantErr}, counter); !errors.Is(err, wantErr) {
		t.Errorf("ForwardKeyframeRequests() = %v, want %v", err, wantErr)
	}
}
