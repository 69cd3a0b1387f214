// Package asset turns ordinary images into sprite sheets for the matrix.
//
// A source image holds its frames side by side (horizontal strip) or
// stacked (vertical strip). Each frame is scaled to the grid with
// nearest-neighbour sampling and stored as packed RGB rows, back to back,
// the layout animation.SpriteSheet slices.
package asset

import (
	"bufio"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/animation"
	"github.com/wippyai/wasm-matrix/errors"
)

// Layout is the direction frames run in inside the source image.
type Layout int

const (
	Vertical Layout = iota
	Horizontal
)

func (l Layout) String() string {
	if l == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Sheet is a sprite sheet ready for playback.
type Sheet struct {
	Data    []byte                 `cbor:"3,keyasint"`
	Entries []animation.SheetEntry `cbor:"4,keyasint"`
	Width   int                    `cbor:"1,keyasint"`
	Height  int                    `cbor:"2,keyasint"`
}

// Grid returns the frame size of the sheet.
func (s *Sheet) Grid() wasmmatrix.Grid {
	return wasmmatrix.Grid{Width: s.Width, Height: s.Height}
}

// Pattern validates the sheet and wraps it for playback.
func (s *Sheet) Pattern() (*animation.SpriteSheet, error) {
	return animation.NewSpriteSheet(s.Grid(), s.Data, s.Entries)
}

// Decode reads a PNG, GIF, JPEG or BMP image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode image")
	}
	return img, nil
}

// Build slices img into len(durations) frames along layout, scales each to
// grid and assigns cumulative end ticks from the per-frame durations.
func Build(img image.Image, grid wasmmatrix.Grid, layout Layout, durations []uint64) (*Sheet, error) {
	if err := grid.Validate(); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "grid")
	}
	n := len(durations)
	if n == 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, "sprite sheet needs at least one frame")
	}

	b := img.Bounds()
	fw, fh := b.Dx(), b.Dy()
	if layout == Horizontal {
		fw /= n
	} else {
		fh /= n
	}
	if fw == 0 || fh == 0 {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("%dx%d image is too small for %d %s frames", b.Dx(), b.Dy(), n, layout).
			Build()
	}

	size := grid.BufferSize()
	sheet := &Sheet{
		Width:   grid.Width,
		Height:  grid.Height,
		Data:    make([]byte, 0, size*n),
		Entries: make([]animation.SheetEntry, n),
	}
	dst := image.NewRGBA(image.Rect(0, 0, grid.Width, grid.Height))

	var end uint64
	for i, d := range durations {
		if d == 0 {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Value(i).
				Detail("frame %d has zero duration", i).
				Build()
		}
		src := image.Rect(b.Min.X, b.Min.Y+i*fh, b.Min.X+fw, b.Min.Y+(i+1)*fh)
		if layout == Horizontal {
			src = image.Rect(b.Min.X+i*fw, b.Min.Y, b.Min.X+(i+1)*fw, b.Min.Y+fh)
		}
		xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, src, xdraw.Src, nil)

		end += d
		sheet.Entries[i] = animation.SheetEntry{Offset: len(sheet.Data), EndTick: end}
		sheet.Data = appendRGB(sheet.Data, dst)
	}
	return sheet, nil
}

// appendRGB flattens img to packed row-major RGB, compositing any alpha
// over black.
func appendRGB(buf []byte, img *image.RGBA) []byte {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// RGBA is alpha-premultiplied, so this is already over black.
			c := img.RGBAAt(x, y)
			buf = append(buf, c.R, c.G, c.B)
		}
	}
	return buf
}

// Image renders frame i of the sheet back into an image.
func (s *Sheet) Image(i int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	off := s.Entries[i].Offset
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			p := off + (y*s.Width+x)*wasmmatrix.PixelChannels
			img.SetRGBA(x, y, color.RGBA{R: s.Data[p], G: s.Data[p+1], B: s.Data[p+2], A: 0xFF})
		}
	}
	return img
}

// Write encodes the sheet as canonical CBOR.
func Write(w io.Writer, s *Sheet) error {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return err
	}
	if err := em.NewEncoder(w).Encode(s); err != nil {
		return errors.Wrap(errors.PhaseOutput, errors.KindIO, err, "encode sprite sheet")
	}
	return nil
}

// Read decodes a sheet written by Write and validates it.
func Read(r io.Reader) (*Sheet, error) {
	var s Sheet
	if err := cbor.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode sprite sheet")
	}
	if _, err := s.Pattern(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a sheet file. Files written by Write are read directly; any
// other file is decoded as a single-image sheet using durations.
func Load(path string, grid wasmmatrix.Grid, layout Layout, durations []uint64) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "cannot read "+path)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if head, err := br.Peek(1); err == nil && isCBORMap(head[0]) {
		return Read(br)
	}
	img, err := Decode(br)
	if err != nil {
		return nil, err
	}
	return Build(img, grid, layout, durations)
}

// isCBORMap reports whether b starts a CBOR map (major type 5). No
// supported image format begins with such a byte.
func isCBORMap(b byte) bool {
	return b>>5 == 5
}
