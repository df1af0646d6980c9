// Package camerasrc implements the Camera Source stage: format negotiation,
// permission handling, and the FFmpeg-subprocess MJPEG capture loop. The
// negotiation and discovery logic is adapted from the teacher's
// internal/camera/device.go (DiscoverCameras / queryCameraCapabilities),
// narrowed from a dynamic multi-camera, bandwidth-aware scan to negotiating
// a single device against the spec's fixed candidate list.
package camerasrc

import (
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"gridcam/internal/mediaframe"
)

var (
	sizeRegex = regexp.MustCompile(`Size:\s+Discrete\s+(\d+)x(\d+)`)
	fpsRegex  = regexp.MustCompile(`\(([\d.]+)\s+fps\)`)
)

// DeviceCapabilities is the set of resolution/fps combinations a device
// reports for MJPEG, as parsed from `v4l2-ctl --list-formats-ext`.
type DeviceCapabilities struct {
	Formats []mediaframe.CameraFormat
}

// QueryCapabilities shells out to v4l2-ctl the same way the teacher's
// queryCameraCapabilities does, parsing the MJPEG section for discrete
// sizes and their supported frame rates.
func QueryCapabilities(devicePath string) (DeviceCapabilities, error) {
	out, err := exec.Command("v4l2-ctl", "-d", devicePath, "--list-formats-ext").Output()
	if err != nil {
		return DeviceCapabilities{}, err
	}
	return parseCapabilities(string(out)), nil
}

func parseCapabilities(output string) DeviceCapabilities {
	var caps DeviceCapabilities
	inMJPEG := false
	var curW, curH int

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "'MJPG'") || strings.Contains(trimmed, "Motion-JPEG") {
			inMJPEG = true
			continue
		}
		if strings.HasPrefix(trimmed, "[") && !strings.Contains(trimmed, "MJPG") && !strings.Contains(trimmed, "Motion-JPEG") {
			inMJPEG = false
		}
		if !inMJPEG {
			continue
		}
		if m := sizeRegex.FindStringSubmatch(trimmed); m != nil {
			curW, _ = strconv.Atoi(m[1])
			curH, _ = strconv.Atoi(m[2])
			continue
		}
		if m := fpsRegex.FindStringSubmatch(trimmed); m != nil && curW > 0 {
			fpsF, _ := strconv.ParseFloat(m[1], 64)
			caps.Formats = append(caps.Formats, mediaframe.CameraFormat{
				Width: curW, Height: curH, FPS: int(fpsF + 0.5),
			})
		}
	}
	return caps
}

// Negotiate walks candidates in order and returns the first one caps
// supports, matching it by resolution and accepting any reported fps that
// is >= the candidate's fps (a device that can do 1920x1080@60 satisfies a
// @30 candidate). ok is false if nothing in candidates is supported.
func Negotiate(caps DeviceCapabilities, candidates []mediaframe.CameraFormat) (mediaframe.CameraFormat, bool) {
	for _, cand := range candidates {
		for _, have := range caps.Formats {
			if have.Width == cand.Width && have.Height == cand.Height && have.FPS >= cand.FPS {
				return cand, true
			}
		}
	}
	return mediaframe.CameraFormat{}, false
}
