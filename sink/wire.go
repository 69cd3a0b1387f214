package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/wippyai/wasm-matrix/colorspace"
)

// ChannelOrder is the byte order a LED driver expects per pixel.
type ChannelOrder string

const (
	OrderRGB ChannelOrder = "rgb"
	OrderGRB ChannelOrder = "grb"
)

// Wire writes frames as raw LED bytes, brightness and gamma applied, for a
// strip controller on the other end of w.
type Wire struct {
	w     io.Writer
	order ChannelOrder
	buf   []byte
	gamma bool
}

// NewWire creates a wire sink. gamma enables the LED gamma curve.
func NewWire(w io.Writer, order ChannelOrder, gamma bool) (*Wire, error) {
	switch order {
	case OrderRGB, OrderGRB:
	case "":
		order = OrderGRB
	default:
		return nil, fmt.Errorf("unknown channel order %q", order)
	}
	return &Wire{w: w, order: order, gamma: gamma}, nil
}

func (s *Wire) Write(_ context.Context, f Frame) error {
	s.buf = s.buf[:0]
	for _, c := range f.Pixels {
		c = colorspace.Adjust(c, f.Brightness, s.gamma)
		if s.order == OrderGRB {
			s.buf = append(s.buf, c.G, c.R, c.B)
		} else {
			s.buf = append(s.buf, c.R, c.G, c.B)
		}
	}
	if _, err := s.w.Write(s.buf); err != nil {
		return fmt.Errorf("write frame %d: %w", f.Number, err)
	}
	return nil
}

func (s *Wire) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
