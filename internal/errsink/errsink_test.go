package errsink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalCategories(t *testing.T) {
	fatal := []Category{CategoryPermissionDenied, CategoryUnsupportedFormat, CategoryFatalInternal}
	for _, c := range fatal {
		assert.Truef(t, c.Fatal(), "%s should be fatal", c)
	}

	recoverable := []Category{CategoryCameraDisconnected, CategoryRecordingBufferFull,
		CategoryResourceExhausted, CategoryFrameRateUnstable, CategoryPipelineDeadlock}
	for _, c := range recoverable {
		assert.Falsef(t, c.Fatal(), "%s should be recoverable", c)
	}
}

func TestRecordingSinkCapturesAndCounts(t *testing.T) {
	sink := NewRecordingSink()
	sink.Submit(New("camerasrc", CategoryCameraDisconnected, 0, errors.New("boom"), "disconnected"))
	sink.Submit(New("recordbin", CategoryRecordingBufferFull, 2, nil, "buffer full"))
	sink.Submit(New("camerasrc", CategoryCameraDisconnected, 0, errors.New("boom again"), "disconnected"))

	assert.Len(t, sink.All(), 3)
	assert.Equal(t, 2, sink.CountOf(CategoryCameraDisconnected))
	assert.Equal(t, 1, sink.CountOf(CategoryRecordingBufferFull))
	assert.Equal(t, 0, sink.CountOf(CategoryFatalInternal))
}

func TestNewStampsUniqueID(t *testing.T) {
	a := New("stage", CategoryFrameRateUnstable, 0, nil, "msg")
	b := New("stage", CategoryFrameRateUnstable, 0, nil, "msg")
	assert.NotEqual(t, a.ID, b.ID)
}
