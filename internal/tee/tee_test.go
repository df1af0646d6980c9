package tee

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridcam/internal/mediaframe"
)

func TestLiveBufferAlwaysHoldsLatestWrite(t *testing.T) {
	b := NewLiveBuffer()
	b.Write(mediaframe.Frame{SequenceNumber: 1})
	b.Write(mediaframe.Frame{SequenceNumber: 2})

	got := b.Read()
	assert.Equal(t, uint64(2), got.SequenceNumber)
}

func TestLiveBufferReadIfNewOnlyFiresOnce(t *testing.T) {
	b := NewLiveBuffer()
	b.Write(mediaframe.Frame{SequenceNumber: 5})

	_, seq, ok := b.ReadIfNew(0)
	require.True(t, ok)
	assert.Equal(t, uint64(5), seq)

	_, _, ok = b.ReadIfNew(seq)
	assert.False(t, ok, "re-reading with the same lastSeen should report no new frame")
}

func TestPushAlwaysUpdatesLiveEvenWithNoBranchesAttached(t *testing.T) {
	live := NewLiveBuffer()
	tee := New(live)

	tee.Push(mediaframe.Frame{SequenceNumber: 1})

	assert.Equal(t, uint64(1), live.Read().SequenceNumber)
	assert.Equal(t, 0, tee.ActiveBranches())
}

func TestAttachFansOutToRecordBranch(t *testing.T) {
	live := NewLiveBuffer()
	tr := New(live)

	branch := tr.Attach(1, 4)
	require.Equal(t, 1, tr.ActiveBranches())

	tr.Push(mediaframe.Frame{SequenceNumber: 9})

	select {
	case f := <-branch:
		assert.Equal(t, uint64(9), f.SequenceNumber)
	case <-time.After(time.Second):
		t.Fatal("expected frame on attached record branch")
	}
}

func TestDetachClosesTheBranchChannel(t *testing.T) {
	live := NewLiveBuffer()
	tr := New(live)

	branch := tr.Attach(2, 4)
	tr.Detach(2)
	assert.Equal(t, 0, tr.ActiveBranches())

	_, ok := <-branch
	assert.False(t, ok, "Detach must close the branch so the Record Bin's drain goroutine sees end-of-input")
}

func TestPushAppliesBackpressureOnAFullRecordBranch(t *testing.T) {
	live := NewLiveBuffer()
	tr := New(live)
	branch := tr.Attach(3, 1) // capacity 1, not drained until the assertions below

	done := make(chan struct{})
	go func() {
		tr.Push(mediaframe.Frame{SequenceNumber: 1}) // fills the branch's one slot
		tr.Push(mediaframe.Frame{SequenceNumber: 2}) // must block until the branch is drained
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Push must apply backpressure on a full record branch instead of dropping frames")
	case <-time.After(100 * time.Millisecond):
	}

	<-branch // drain frame 1, unblocking the second Push
	<-branch // drain frame 2

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push should have unblocked once the branch had room")
	}
}
