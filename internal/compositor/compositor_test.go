package compositor

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutProducesTenEqualSlots(t *testing.T) {
	slots := Layout(1000, 100)
	require.Len(t, slots, CellCount)

	for i, s := range slots {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, 0, s.Bounds.Min.Y)
		assert.Equal(t, 100, s.Bounds.Max.Y)
	}
	// slots tile the full width with no gap or overlap
	assert.Equal(t, 0, slots[0].Bounds.Min.X)
	for i := 1; i < CellCount; i++ {
		assert.Equal(t, slots[i-1].Bounds.Max.X, slots[i].Bounds.Min.X)
	}
	assert.Equal(t, 1000, slots[CellCount-1].Bounds.Max.X)
}

func TestCompositeFillsBlackForNeverFilledCells(t *testing.T) {
	c := New(200, 20)
	var cells [CellCount]image.Image
	out := c.Composite(cells)

	r, g, b, a := out.At(5, 5).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)
	assert.Equal(t, uint32(0xffff), a)
}

func TestCompositeHoldsLastImageForAMissingCell(t *testing.T) {
	c := New(200, 20) // 10 slots of 20px wide each
	red := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			red.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	var cells [CellCount]image.Image
	cells[3] = red
	c.Composite(cells)

	// the next tick has no source for slot 3 (e.g. between a recording's
	// stop and its playback's first frame) - the slot must still show the
	// last frame it composited, not go black.
	cells[3] = nil
	out := c.Composite(cells)

	r, _, _, a := out.At(70, 10).RGBA()
	assert.Equal(t, uint32(0xffff), r, "slot 3 must hold its last image instead of going black")
	assert.Equal(t, uint32(0xffff), a)
}

func TestCompositePlacesCellInItsSlot(t *testing.T) {
	c := New(200, 20) // 10 slots of 20px wide each
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var cells [CellCount]image.Image
	cells[3] = src // slot index 3 -> x in [60,80)

	out := c.Composite(cells)
	r, _, _, _ := out.At(70, 10).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	// a neighbouring slot stays black
	r2, _, _, _ := out.At(10, 10).RGBA()
	assert.Equal(t, uint32(0), r2)
}

func TestCapsFilterAcceptsOnlyPinnedSize(t *testing.T) {
	caps := NewCapsFilter(640, 480)
	assert.True(t, caps.Accept(image.NewRGBA(image.Rect(0, 0, 640, 480))))
	assert.False(t, caps.Accept(image.NewRGBA(image.Rect(0, 0, 320, 240))))
}
