package videocapture

import (
	"fmt"
	"strings"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4"
)

// VideoCodec identifies the video codec type.
type VideoCodec int

const (
	VideoCodecUnknown VideoCodec = iota
	VideoCodecVP8
	VideoCodecVP9
	VideoCodecH264
	VideoCodecAV1
)

func (c VideoCodec) String() string {
	switch c {
	case VideoCodecVP8:
		return "VP8"
	case VideoCodecVP9:
		return "VP9"
	case VideoCodecH264:
		return "H264"
	case VideoCodecAV1:
		return "AV1"
	default:
		return "Unknown"
	}
}

// ParseVideoCodec parses a codec name such as "vp8" or "H264".
func ParseVideoCodec(s string) (VideoCodec, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VP8":
		return VideoCodecVP8, nil
	case "VP9":
		return VideoCodecVP9, nil
	case "H264", "AVC":
		return VideoCodecH264, nil
	case "AV1":
		return VideoCodecAV1, nil
	default:
		return VideoCodecUnknown, fmt.Errorf("unknown video codec %q", s)
	}
}

// MimeType returns the MIME type for this codec.
func (c VideoCodec) MimeType() string {
	switch c {
	case VideoCodecVP8:
		return webrtc.MimeTypeVP8
	case VideoCodecVP9:
		return webrtc.MimeTypeVP9
	case VideoCodecH264:
		return webrtc.MimeTypeH264
	case VideoCodecAV1:
		return webrtc.MimeTypeAV1
	default:
		return ""
	}
}

// ClockRate returns the RTP clock rate for this codec.
func (c VideoCodec) ClockRate() uint32 {
	// All video codecs use 90kHz clock
	return 90000
}

// DefaultPayloadType returns a typical payload type for this codec.
// Note: Actual payload type is negotiated via SDP.
func (c VideoCodec) DefaultPayloadType() uint8 {
	switch c {
	case VideoCodecVP8:
		return 96
	case VideoCodecVP9:
		return 98
	case VideoCodecH264:
		return 102
	case VideoCodecAV1:
		return 35
	default:
		return 96
	}
}

// Capability returns the codec capability used to create pion tracks.
func (c VideoCodec) Capability() webrtc.RTPCodecCapability {
	return webrtc.RTPCodecCapability{MimeType: c.MimeType(), ClockRate: c.ClockRate()}
}

func (c VideoCodec) payloader() (rtp.Payloader, error) {
	switch c {
	case VideoCodecVP8:
		return &codecs.VP8Payloader{EnablePictureID: true}, nil
	case VideoCodecVP9:
		return &codecs.VP9Payloader{}, nil
	case VideoCodecH264:
		return &codecs.H264Payloader{}, nil
	case VideoCodecAV1:
		return &codecs.AV1Payloader{}, nil
	default:
		return nil, fmt.Errorf("no RTP payloader for codec %v", c)
	}
}

// FrameEncoder compresses raw frames for transport. Implementations wrap a
// real codec; Encode may return nil while the encoder is buffering.
type FrameEncoder interface {
	Encode(frame *VideoFrame) (*EncodedFrame, error)
}

// FrameEncoderFunc adapts a function to FrameEncoder.
type FrameEncoderFunc func(frame *VideoFrame) (*EncodedFrame, error)

// Encode implements FrameEncoder.
func (f FrameEncoderFunc) Encode(frame *VideoFrame) (*EncodedFrame, error) {
	return f(frame)
}
