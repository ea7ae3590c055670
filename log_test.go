package videocapture

import (
	"testing"
)

func TestSetLoggerFactory(t *testing.T) {
	t.Cleanup(func() { SetLoggerFactory(nil) })

	log := &eventLog{}
	SetLoggerFactory(recordingLoggerFactory{log: log})

	system := newFakeCaptureSystem(frontCamera)
	c := NewCameraVideoCapturer(CameraConfig{System: system})
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if n := log.count("debug:start camera video capture"); n != 1 {
		t.Errorf("package factory not used: %v", log.list())
	}

	// Explicit factory wins over the package factory
	explicit := &eventLog{}
	c = NewCameraVideoCapturer(CameraConfig{System: system, LoggerFactory: recordingLoggerFactory{log: explicit}})
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if explicit.count("debug:") != 1 || log.count("debug:") != 1 {
		t.Errorf("explicit factory not used: package=%v explicit=%v", log.list(), explicit.list())
	}
}
