// Package errsink implements the Error Sink collaborator: a typed taxonomy
// of pipeline error conditions, the ErrorRecord every stage submits, and the
// Sink implementations that receive them. Recovery itself is performed by
// the stages that report the errors, not by this package.
package errsink

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Category classifies an ErrorRecord as fatal (the pipeline cannot continue)
// or recoverable (a stage-local recovery strategy applies).
type Category int

const (
	// Fatal categories. LogSink logs them and then invokes its onFatal
	// callback (the one main.go installs exits the process with a non-zero
	// status).
	CategoryPermissionDenied Category = iota
	CategoryUnsupportedFormat
	CategoryFatalInternal

	// Recoverable categories. A bounded retry or a local state change
	// handles these without tearing down the whole graph.
	CategoryCameraDisconnected
	CategoryRecordingBufferFull
	CategoryResourceExhausted
	CategoryFrameRateUnstable
	CategoryPipelineDeadlock
)

func (c Category) String() string {
	switch c {
	case CategoryPermissionDenied:
		return "PermissionDenied"
	case CategoryUnsupportedFormat:
		return "UnsupportedFormat"
	case CategoryFatalInternal:
		return "FatalInternal"
	case CategoryCameraDisconnected:
		return "CameraDisconnected"
	case CategoryRecordingBufferFull:
		return "RecordingBufferFull"
	case CategoryResourceExhausted:
		return "ResourceExhausted"
	case CategoryFrameRateUnstable:
		return "FrameRateUnstable"
	case CategoryPipelineDeadlock:
		return "PipelineDeadlock"
	default:
		return "Unknown"
	}
}

// Fatal reports whether c is one of the categories that requires tearing
// down the pipeline.
func (c Category) Fatal() bool {
	switch c {
	case CategoryPermissionDenied, CategoryUnsupportedFormat, CategoryFatalInternal:
		return true
	default:
		return false
	}
}

// ErrorRecord is the unit carried on the Error Sink channel.
type ErrorRecord struct {
	ID        uuid.UUID
	Category  Category
	Stage     string
	Message   string
	Err       error
	Cell      int // 0 when not cell-specific
	Timestamp time.Time

	// Terminal marks a record as fatal for this occurrence even though its
	// Category is ordinarily recoverable — e.g. a DeadlockDetected/
	// PipelineDeadlock record raised once the revert/force-Ready/force-Null
	// recovery ladder has been exhausted rather than on every stuck check.
	Terminal bool
}

func New(stage string, cat Category, cell int, err error, msg string) ErrorRecord {
	return ErrorRecord{
		ID:        uuid.New(),
		Category:  cat,
		Stage:     stage,
		Message:   msg,
		Err:       err,
		Cell:      cell,
		Timestamp: time.Now(),
	}
}

// NewFatal builds an ErrorRecord identical to New but marked Terminal, for a
// normally-recoverable category whose recovery strategy has just exhausted
// every documented attempt and must now terminate the process.
func NewFatal(stage string, cat Category, cell int, err error, msg string) ErrorRecord {
	rec := New(stage, cat, cell, err, msg)
	rec.Terminal = true
	return rec
}

// IsFatal reports whether rec should tear down the pipeline and exit the
// process: either its Category is inherently fatal, or it has been marked
// Terminal by a recovery strategy that just ran out of attempts.
func (rec ErrorRecord) IsFatal() bool {
	return rec.Category.Fatal() || rec.Terminal
}

// Sink receives ErrorRecords from every stage. The default implementation
// logs each record synchronously on the caller's goroutine and returns; it
// does not rate-limit, batch or drop records.
type Sink interface {
	Submit(rec ErrorRecord)
}

// LogSink is the production Sink: every record is logged at a severity
// derived from its Category, fatal records additionally invoke onFatal.
type LogSink struct {
	log     *logrus.Logger
	onFatal func(ErrorRecord)

	mu       sync.Mutex
	dropped  int
	lastWarn time.Time
}

func NewLogSink(log *logrus.Logger, onFatal func(ErrorRecord)) *LogSink {
	return &LogSink{log: log, onFatal: onFatal}
}

func (s *LogSink) Submit(rec ErrorRecord) {
	entry := s.log.WithFields(logrus.Fields{
		"error_id": rec.ID.String(),
		"stage":    rec.Stage,
		"category": rec.Category.String(),
		"cell":     rec.Cell,
	})

	switch {
	case rec.IsFatal():
		entry.Error(rec.Message)
	case rec.Category == CategoryFrameRateUnstable, rec.Category == CategoryRecordingBufferFull:
		entry.Warn(rec.Message)
	default:
		entry.Warn(rec.Message)
	}

	if rec.IsFatal() && s.onFatal != nil {
		s.onFatal(rec)
	}
}

// RecordingSink is a test double that records every ErrorRecord it receives
// for assertions, without logging anything.
type RecordingSink struct {
	mu      sync.Mutex
	records []ErrorRecord
}

func NewRecordingSink() *RecordingSink { return &RecordingSink{} }

func (s *RecordingSink) Submit(rec ErrorRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *RecordingSink) All() []ErrorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ErrorRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *RecordingSink) CountOf(cat Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.Category == cat {
			n++
		}
	}
	return n
}
