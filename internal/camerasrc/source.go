package camerasrc

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"gridcam/internal/errsink"
	"gridcam/internal/mediaframe"
)

const (
	jpegSOI = 0xD8
	jpegEOI = 0xD9
	jpegTag = 0xFF
)

// maxReconnectAttempts bounds the CameraDisconnected recovery strategy:
// spec.md §7 calls for up to 5 attempts with a short backoff before the
// error is escalated to fatal.
const maxReconnectAttempts = 5

// FrameSink receives every frame the source successfully decodes — in
// practice the Capture Tee's Push method.
type FrameSink interface {
	Push(f mediaframe.Frame)
}

// Source is the Camera Source stage: it negotiates a format, spawns an
// FFmpeg subprocess piping MJPEG out of the device, decodes each frame, and
// pushes it to a FrameSink. The subprocess-piped-MJPEG approach and its
// SOI/EOI byte scanning are carried over from the teacher's
// internal/camera/capture.go tryFFmpegCapture/readMJPEGFrameRaw.
type Source struct {
	devicePath string
	candidates []mediaframe.CameraFormat
	sink       FrameSink
	errs       errsink.Sink
	log        *logrus.Logger

	format   mediaframe.CameraFormat
	sequence atomic.Uint64
	running  atomic.Bool

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

func New(devicePath string, candidates []mediaframe.CameraFormat, sink FrameSink, errs errsink.Sink, log *logrus.Logger) *Source {
	return &Source{devicePath: devicePath, candidates: candidates, sink: sink, errs: errs, log: log}
}

// NegotiateFormat queries the device and pins s.format to the first
// matching candidate. If the device cannot be queried or nothing in the
// candidate list is supported, it submits an errsink.CategoryUnsupportedFormat
// record (fatal, per spec.md §7) and returns the error.
func (s *Source) NegotiateFormat() error {
	KillDeviceHolders(s.log, s.devicePath, true)

	caps, err := QueryCapabilities(s.devicePath)
	if err != nil {
		s.errs.Submit(errsink.New("camerasrc", errsink.CategoryUnsupportedFormat, 0, err,
			"could not query device capabilities"))
		return err
	}
	format, ok := Negotiate(caps, s.candidates)
	if !ok {
		err := fmt.Errorf("no candidate format supported by %s", s.devicePath)
		s.errs.Submit(errsink.New("camerasrc", errsink.CategoryUnsupportedFormat, 0, err, err.Error()))
		return err
	}
	s.format = format
	return nil
}

// Format returns the negotiated format. Valid only after NegotiateFormat
// succeeds.
func (s *Source) Format() mediaframe.CameraFormat {
	return s.format
}

// Start spawns the capture loop in a goroutine. It negotiates a format if
// one has not already been pinned.
func (s *Source) Start(ctx context.Context) error {
	if s.format.Empty() {
		if err := s.NegotiateFormat(); err != nil {
			return err
		}
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	s.running.Store(true)
	go s.captureLoop(runCtx)
	return nil
}

func (s *Source) Stop() {
	s.running.Store(false)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

// Running reports whether the capture loop is active.
func (s *Source) Running() bool {
	return s.running.Load()
}

// captureLoop runs ffmpeg, and on failure retries with a short backoff up
// to maxReconnectAttempts times before reporting a fatal condition — the
// same bounded-retry shape as the teacher's stale-frame auto-restart policy
// in internal/ui/app.go's restartCaptureIfStale.
func (s *Source) captureLoop(ctx context.Context) {
	attempts := 0
	for s.running.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := s.runFFmpeg(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			attempts = 0
			continue
		}

		attempts++
		s.errs.Submit(errsink.New("camerasrc", errsink.CategoryCameraDisconnected, 0, err,
			fmt.Sprintf("capture failed (attempt %d/%d): %v", attempts, maxReconnectAttempts, err)))

		if attempts >= maxReconnectAttempts {
			s.errs.Submit(errsink.New("camerasrc", errsink.CategoryFatalInternal, 0, err,
				"camera reconnect attempts exhausted"))
			s.running.Store(false)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempts) * 200 * time.Millisecond):
		}
		KillDeviceHolders(s.log, s.devicePath, true)
	}
}

func (s *Source) ffmpegArgs() []string {
	return []string{
		"-f", "v4l2",
		"-input_format", "mjpeg",
		"-video_size", fmt.Sprintf("%dx%d", s.format.Width, s.format.Height),
		"-framerate", fmt.Sprintf("%d", s.format.FPS),
		"-i", s.devicePath,
		"-f", "mjpeg",
		"-",
	}
}

func (s *Source) runFFmpeg(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", s.ffmpegArgs()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	reader := newMJPEGReader(stdout)
	for {
		data, err := reader.Next()
		if err != nil {
			_ = cmd.Wait()
			return err
		}
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			continue // a torn frame is not a disconnect, just skip it
		}
		s.sink.Push(mediaframe.Frame{
			Image:          img,
			SequenceNumber: s.sequence.Add(1),
			CapturedAt:     time.Now(),
			Format:         s.format,
		})
	}
}

// mjpegReader scans a byte stream for JPEG SOI/EOI markers, the same
// approach as the teacher's readMJPEGFrameRaw.
type mjpegReader struct {
	r   io.Reader
	buf []byte
}

func newMJPEGReader(r io.Reader) *mjpegReader {
	return &mjpegReader{r: r, buf: make([]byte, 0, 64*1024)}
}

func (m *mjpegReader) Next() ([]byte, error) {
	chunk := make([]byte, 4096)
	for {
		if start, end, ok := findFrame(m.buf); ok {
			frame := make([]byte, end-start)
			copy(frame, m.buf[start:end])
			m.buf = append([]byte{}, m.buf[end:]...)
			return frame, nil
		}
		n, err := m.r.Read(chunk)
		if n > 0 {
			m.buf = append(m.buf, chunk[:n]...)
		}
		if err != nil {
			return nil, err
		}
	}
}

func findFrame(buf []byte) (start, end int, ok bool) {
	soi := -1
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == jpegTag && buf[i+1] == jpegSOI {
			soi = i
			break
		}
	}
	if soi < 0 {
		return 0, 0, false
	}
	for i := soi + 2; i+1 < len(buf); i++ {
		if buf[i] == jpegTag && buf[i+1] == jpegEOI {
			return soi, i + 2, true
		}
	}
	return 0, 0, false
}
