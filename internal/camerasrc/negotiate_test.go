package camerasrc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gridcam/internal/mediaframe"
)

const sampleListFormatsExt = `
ioctl: VIDIOC_ENUM_FMT
	Type: Video Capture

	[0]: 'MJPG' (Motion-JPEG, compressed)
		Size: Discrete 1920x1080
			Interval: Discrete 0.033s (30.000 fps)
		Size: Discrete 1280x720
			Interval: Discrete 0.033s (30.000 fps)
			Interval: Discrete 0.017s (60.000 fps)
	[1]: 'YUYV' (YUYV 4:2:2)
		Size: Discrete 640x480
			Interval: Discrete 0.033s (30.000 fps)
`

func TestParseCapabilitiesExtractsOnlyMJPEG(t *testing.T) {
	caps := parseCapabilities(sampleListFormatsExt)

	assert.Contains(t, caps.Formats, mediaframe.CameraFormat{Width: 1920, Height: 1080, FPS: 30})
	assert.Contains(t, caps.Formats, mediaframe.CameraFormat{Width: 1280, Height: 720, FPS: 30})
	assert.Contains(t, caps.Formats, mediaframe.CameraFormat{Width: 1280, Height: 720, FPS: 60})
	assert.NotContains(t, caps.Formats, mediaframe.CameraFormat{Width: 640, Height: 480, FPS: 30})
}

func TestNegotiatePrefersFirstMatchingCandidate(t *testing.T) {
	caps := parseCapabilities(sampleListFormatsExt)
	got, ok := Negotiate(caps, mediaframe.DefaultCandidates)
	assert.True(t, ok)
	assert.Equal(t, mediaframe.CameraFormat{Width: 1920, Height: 1080, FPS: 30}, got)
}

func TestNegotiateFallsBackWhenFirstCandidateUnsupported(t *testing.T) {
	caps := DeviceCapabilities{Formats: []mediaframe.CameraFormat{{Width: 1280, Height: 720, FPS: 30}}}
	got, ok := Negotiate(caps, mediaframe.DefaultCandidates)
	assert.True(t, ok)
	assert.Equal(t, mediaframe.CameraFormat{Width: 1280, Height: 720, FPS: 30}, got)
}

func TestNegotiateFailsWhenNothingSupported(t *testing.T) {
	caps := DeviceCapabilities{Formats: []mediaframe.CameraFormat{{Width: 640, Height: 480, FPS: 30}}}
	_, ok := Negotiate(caps, mediaframe.DefaultCandidates)
	assert.False(t, ok)
}

func TestNegotiateAcceptsHigherSupportedFPS(t *testing.T) {
	caps := DeviceCapabilities{Formats: []mediaframe.CameraFormat{{Width: 1920, Height: 1080, FPS: 60}}}
	got, ok := Negotiate(caps, mediaframe.DefaultCandidates)
	assert.True(t, ok)
	assert.Equal(t, 30, got.FPS, "negotiated format is the candidate's own fps, not the device max")
}
