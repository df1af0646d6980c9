// Package compositor implements the Compositor and Format Caps stages: a
// fixed 1x10 horizontal strip mixer producing a single composited image
// each tick. The fixed-slot layout adapts the teacher's
// internal/helpers/grid.go (GetSmartGrid) and internal/ui/app.go's
// fillGridLayout from a dynamic row/column grid to the single fixed strip
// spec.md §4.7 describes.
package compositor

import (
	"image"
	"image/draw"

	"gridcam/internal/mediaframe"
)

const CellCount = 10

// Slot describes one cell's rectangle within the composited output.
type Slot struct {
	Index  int // 0-based, 0 == live cell
	Bounds image.Rectangle
}

// Layout computes the CellCount slot rectangles for an output of the given
// total width/height, each cell an equal 1/10th horizontal share — the
// fixed-strip analogue of the teacher's dynamic grid layout.
func Layout(totalWidth, totalHeight int) []Slot {
	slots := make([]Slot, CellCount)
	cellWidth := totalWidth / CellCount
	for k := 0; k < CellCount; k++ {
		x0 := k * cellWidth
		x1 := x0 + cellWidth
		if k == CellCount-1 {
			x1 = totalWidth // last cell absorbs any integer-division remainder
		}
		slots[k] = Slot{
			Index:  k,
			Bounds: image.Rect(x0, 0, x1, totalHeight),
		}
	}
	return slots
}

// Compositor mixes CellCount source images into one output image each
// tick. A slot with no current source holds its last composited image
// rather than going black, per the Compositor's documented behaviour on a
// missing input; a slot that has never received a frame is left black.
type Compositor struct {
	width, height int
	slots         []Slot
	out           *image.RGBA
	lastImage     []image.Image // per-slot hold-last cache, indexed like slots
}

func New(width, height int) *Compositor {
	return &Compositor{
		width:     width,
		height:    height,
		slots:     Layout(width, height),
		out:       image.NewRGBA(image.Rect(0, 0, width, height)),
		lastImage: make([]image.Image, CellCount),
	}
}

// Composite draws each of the up to CellCount source images (index i ==
// cell i) into its slot and returns the shared output buffer. A nil entry
// reuses that slot's last composited image — "hold last" — instead of
// going black, so a cell briefly between a recording's stop and its
// playback's first frame keeps showing content. The returned image is only
// valid until the next call to Composite — the Renderer must finish using
// it (or copy it) before requesting the next frame, matching the teacher's
// own buffer-reuse convention in internal/ui/nightmode.go.
func (c *Compositor) Composite(cells [CellCount]image.Image) *image.RGBA {
	for i, src := range cells {
		slot := c.slots[i]
		if src != nil {
			c.lastImage[i] = scaleToFit(src, slot.Bounds.Dx(), slot.Bounds.Dy())
		}
		img := c.lastImage[i]
		if img == nil {
			draw.Draw(c.out, slot.Bounds, image.Black, image.Point{}, draw.Src)
			continue
		}
		draw.Draw(c.out, slot.Bounds, img, image.Point{}, draw.Src)
	}
	return c.out
}

// scaleToFit performs a nearest-neighbour resize of src into a w x h image.
// A full resampling filter is unnecessary here: the grid cells are small
// and the 120Hz render loop has no time budget for anything fancier.
func scaleToFit(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == w && sh == h {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		sy := b.Min.Y + y*sh/h
		for x := 0; x < w; x++ {
			sx := b.Min.X + x*sw/w
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

// CapsFilter pins the pixel layout downstream of the Compositor — the
// Format Caps stage. Fyne's canvas.Image consumes an image.Image directly,
// so the cap here is a contract check rather than a pixel conversion.
// Accept checks only the image's dimensions, not its pixel type, and the
// render path in internal/ui does not call it: Composite's output is the
// fixed-size *image.RGBA it allocated at construction.
type CapsFilter struct {
	width, height int
}

func NewCapsFilter(width, height int) *CapsFilter {
	return &CapsFilter{width: width, height: height}
}

// Accept validates img against the pinned caps, returning false if the
// Renderer should reject the frame (e.g. UnsupportedFormat upstream of
// negotiation somehow slipped a mismatched size through).
func (c *CapsFilter) Accept(img image.Image) bool {
	b := img.Bounds()
	return b.Dx() == c.width && b.Dy() == c.height
}

// Wrap stamps composited output as a mediaframe.Frame, with the sequence
// number and format supplied by the caller. It sets no timestamp:
// CapturedAt is left as the zero time.
func Wrap(img image.Image, seq uint64, format mediaframe.CameraFormat) mediaframe.Frame {
	return mediaframe.Frame{
		Image:          img,
		SequenceNumber: seq,
		Format:         format,
	}
}
