package videocapture

import (
	"fmt"

	"github.com/pion/rtp"
)

// DefaultMTU is the RTP payload budget used when none is configured.
const DefaultMTU = 1200

// rtpHeaderSize is the fixed RTP header without CSRCs or extensions.
const rtpHeaderSize = 12

// ExtensionIDVideoOrientation is the one-byte header extension ID commonly
// negotiated for urn:3gpp:video-orientation.
const ExtensionIDVideoOrientation = 4

// VideoOrientation represents the CVO (Coordination of Video Orientation) extension.
// This is not provided by pion/rtp, so we keep our own implementation.
type VideoOrientation struct {
	CameraBackFacing bool // true = back camera, false = front camera
	FlipHorizontal   bool // Flip horizontally
	Rotation         int  // 0, 90, 180, 270 degrees clockwise
}

// OrientationForPosition returns the orientation of an upright frame from
// the camera at position.
func OrientationForPosition(position CameraPosition) VideoOrientation {
	return VideoOrientation{CameraBackFacing: position == CameraPositionBack}
}

// Marshal returns the extension payload bytes.
func (v VideoOrientation) Marshal() []byte {
	var val uint8
	if v.CameraBackFacing {
		val |= 0x08
	}
	if v.FlipHorizontal {
		val |= 0x04
	}
	switch v.Rotation {
	case 90:
		val |= 0x01
	case 180:
		val |= 0x02
	case 270:
		val |= 0x03
	}
	return []byte{val}
}

// Unmarshal parses a video orientation extension.
func (v *VideoOrientation) Unmarshal(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty video orientation data")
	}
	b := data[0]
	v.CameraBackFacing = (b & 0x08) != 0
	v.FlipHorizontal = (b & 0x04) != 0
	switch b & 0x03 {
	case 1:
		v.Rotation = 90
	case 2:
		v.Rotation = 180
	case 3:
		v.Rotation = 270
	default:
		v.Rotation = 0
	}
	return nil
}

// RTPWriter is an interface for writing RTP packets.
// *webrtc.TrackLocalStaticRTP satisfies it.
type RTPWriter interface {
	WriteRTP(packet *rtp.Packet) error
}

// RTPWriterFunc adapts a function to RTPWriter.
type RTPWriterFunc func(packet *rtp.Packet) error

// WriteRTP implements RTPWriter.
func (f RTPWriterFunc) WriteRTP(packet *rtp.Packet) error {
	return f(packet)
}
