// Package sink is where finished frames leave the host: terminal preview,
// LED wire bytes, capture files and test recorders.
//
// Frames reach a sink in physical strip order, already reordered by the
// serpentine mapper. A sink never sees a frame from a failed render cycle.
package sink

import (
	"context"
	"errors"

	"github.com/wippyai/wasm-matrix/colorspace"
)

// Frame is one rendered frame in strip order.
type Frame struct {
	Pixels     []colorspace.RGB
	Number     uint64
	Ticks      uint64
	Brightness uint8
}

// Clone returns a frame that does not share Pixels with f.
func (f Frame) Clone() Frame {
	out := f
	out.Pixels = append([]colorspace.RGB(nil), f.Pixels...)
	return out
}

// Sink consumes frames. Write must not retain f.Pixels after it returns.
type Sink interface {
	Write(ctx context.Context, f Frame) error
	Close() error
}

// Null discards every frame.
type Null struct{}

func (Null) Write(context.Context, Frame) error { return nil }
func (Null) Close() error                       { return nil }

// Multi writes each frame to every sink in order and stops at the first
// error.
type Multi []Sink

func (m Multi) Write(ctx context.Context, f Frame) error {
	for _, s := range m {
		if err := s.Write(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
