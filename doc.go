// Package videocapture binds a native camera capture engine to a media
// stream. It enumerates cameras, picks a device, format and frame rate for
// the selected front or back position, and forwards every captured frame to
// the attached MediaStream and an optional capture callback.
//
// Key pieces include:
//   - CameraVideoCapturer, the camera-backed VideoCapturer (see Shared)
//   - MediaStream, the render target applying a VideoFilter before its renderers
//   - CaptureSystem implementations for AVFoundation, V4L2 and a test pattern
//   - Renderers feeding pion/webrtc sample tracks and pion/rtp packetizers
//
// # Architecture
//
//   CaptureSystem -> CaptureSession -> CameraVideoCapturer -> MediaStream.Render -> VideoFilter -> VideoRenderer...
//                                                          -> VideoCapturerHandlers.OnCapture
//
// The stream renders each frame before the capture callback runs. A
// capturer never keeps its stream alive.
//
// # Native Libraries
//
// Native capture systems load libstream_avfoundation (darwin) or
// libstream_v4l2 (linux) with purego and register themselves at init when the
// library is found. Set STREAM_SDK_LIB_PATH to the directory containing them.
//
// # Build Tags
//
//   - nodevices: disable native capture systems
//
// # Logging
//
// Components log through github.com/pion/logging. Use SetLoggerFactory or
// the LoggerFactory field of the component configs to redirect output.
package videocapture
