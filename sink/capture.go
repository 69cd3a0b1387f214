package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	wasmmatrix "github.com/wippyai/wasm-matrix"
	"github.com/wippyai/wasm-matrix/colorspace"
)

// CaptureVersion is the on-disk capture format version.
const CaptureVersion = 1

// captureHeader opens a capture stream.
type captureHeader struct {
	Version uint   `cbor:"1,keyasint"`
	Width   int    `cbor:"2,keyasint"`
	Height  int    `cbor:"3,keyasint"`
	TPS     uint64 `cbor:"4,keyasint,omitempty"`
}

// captureFrame is one frame; Pixels is strip-order RGB bytes.
type captureFrame struct {
	Number     uint64 `cbor:"1,keyasint"`
	Ticks      uint64 `cbor:"2,keyasint"`
	Brightness uint8  `cbor:"3,keyasint"`
	Pixels     []byte `cbor:"4,keyasint"`
}

var captureEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("sink: failed to create CBOR enc mode: %v", err))
	}
	captureEncMode = em
}

// Capture records frames as a stream of CBOR items: a header, then one item
// per frame.
type Capture struct {
	w     io.Writer
	bw    *bufio.Writer
	enc   *cbor.Encoder
	grid  wasmmatrix.Grid
	bytes []byte
}

// NewCapture writes the header for grid and returns the sink.
func NewCapture(w io.Writer, grid wasmmatrix.Grid, ticksPerSecond uint64) (*Capture, error) {
	bw := bufio.NewWriter(w)
	c := &Capture{
		w:     w,
		bw:    bw,
		enc:   captureEncMode.NewEncoder(bw),
		grid:  grid,
		bytes: make([]byte, 0, grid.BufferSize()),
	}
	hdr := captureHeader{Version: CaptureVersion, Width: grid.Width, Height: grid.Height, TPS: ticksPerSecond}
	if err := c.enc.Encode(hdr); err != nil {
		return nil, fmt.Errorf("sink: write capture header: %w", err)
	}
	return c, nil
}

func (c *Capture) Write(_ context.Context, f Frame) error {
	if len(f.Pixels) != c.grid.Pixels() {
		return fmt.Errorf("sink: frame %d has %d pixels, want %d", f.Number, len(f.Pixels), c.grid.Pixels())
	}
	c.bytes = c.bytes[:0]
	for _, p := range f.Pixels {
		c.bytes = append(c.bytes, p.R, p.G, p.B)
	}
	rec := captureFrame{Number: f.Number, Ticks: f.Ticks, Brightness: f.Brightness, Pixels: c.bytes}
	if err := c.enc.Encode(rec); err != nil {
		return fmt.Errorf("sink: write capture frame %d: %w", f.Number, err)
	}
	return nil
}

// Close flushes buffered frames and closes the underlying writer if it is
// a Closer.
func (c *Capture) Close() error {
	err := c.bw.Flush()
	if cl, ok := c.w.(io.Closer); ok {
		err = errors.Join(err, cl.Close())
	}
	return err
}

// Replay reads a capture stream.
type Replay struct {
	dec            *cbor.Decoder
	grid           wasmmatrix.Grid
	ticksPerSecond uint64
}

// OpenReplay reads and checks the capture header.
func OpenReplay(r io.Reader) (*Replay, error) {
	dec := cbor.NewDecoder(bufio.NewReader(r))
	var hdr captureHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("sink: read capture header: %w", err)
	}
	if hdr.Version != CaptureVersion {
		return nil, fmt.Errorf("sink: unsupported capture version %d", hdr.Version)
	}
	grid := wasmmatrix.Grid{Width: hdr.Width, Height: hdr.Height}
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("sink: capture header: %w", err)
	}
	return &Replay{dec: dec, grid: grid, ticksPerSecond: hdr.TPS}, nil
}

// Grid returns the grid recorded in the header.
func (r *Replay) Grid() wasmmatrix.Grid {
	return r.grid
}

// TicksPerSecond returns the recorded tick rate, 0 if unknown.
func (r *Replay) TicksPerSecond() uint64 {
	return r.ticksPerSecond
}

// Next returns the next frame or io.EOF at the end of the stream.
func (r *Replay) Next() (Frame, error) {
	var rec captureFrame
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("sink: read capture frame: %w", err)
	}
	if len(rec.Pixels) != r.grid.BufferSize() {
		return Frame{}, fmt.Errorf("sink: capture frame %d has %d bytes, want %d", rec.Number, len(rec.Pixels), r.grid.BufferSize())
	}
	px := make([]colorspace.RGB, r.grid.Pixels())
	for i := range px {
		px[i] = colorspace.RGB{R: rec.Pixels[3*i], G: rec.Pixels[3*i+1], B: rec.Pixels[3*i+2]}
	}
	return Frame{Number: rec.Number, Ticks: rec.Ticks, Brightness: rec.Brightness, Pixels: px}, nil
}
