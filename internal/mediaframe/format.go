package mediaframe

import "fmt"

// CameraFormat describes a negotiated capture resolution and frame rate.
type CameraFormat struct {
	Width  int
	Height int
	FPS    int
}

func (f CameraFormat) String() string {
	return fmt.Sprintf("%dx%d@%d", f.Width, f.Height, f.FPS)
}

// Empty reports whether f is the zero value, i.e. no format has been
// negotiated yet.
func (f CameraFormat) Empty() bool {
	return f.Width == 0 || f.Height == 0 || f.FPS == 0
}

// DefaultCandidates is the fixed, preference-ordered list of formats the
// Camera Source negotiates against. The first candidate the device
// advertises support for wins; candidates never change at runtime.
var DefaultCandidates = []CameraFormat{
	{Width: 1920, Height: 1080, FPS: 30},
	{Width: 1280, Height: 720, FPS: 30},
}
