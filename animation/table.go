package animation

import (
	"math"
	"sort"

	"github.com/wippyai/wasm-matrix/errors"
)

// Open marks the end of a final segment that runs to the end of the cycle.
const Open uint64 = math.MaxUint64

// Pattern renders one frame. ticks are local to the pattern's segment and
// frame is the host frame counter. work is a scratch frame the pattern may
// draw into; the returned frame is either work or a buffer the pattern owns.
type Pattern interface {
	Render(ticks, frame uint64, work Frame) Frame
}

// PatternFunc adapts a function to Pattern.
type PatternFunc func(ticks, frame uint64, work Frame) Frame

func (f PatternFunc) Render(ticks, frame uint64, work Frame) Frame {
	return f(ticks, frame, work)
}

// Segment maps the half-open tick range [Start, End) to a pattern.
type Segment struct {
	Pattern Pattern
	Name    string
	Start   uint64
	End     uint64
}

// Table is a validated partition of a repeating cycle into segments.
type Table struct {
	segments []Segment
	cycle    uint64
}

func tableError(format string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidData).Detail(format, args...).Build()
}

// NewTable validates segments against cycle. The first segment starts at 0,
// each segment starts where the previous one ended, every segment is
// non-empty and the last one ends at cycle or is Open.
func NewTable(cycle uint64, segments ...Segment) (*Table, error) {
	if cycle == 0 {
		return nil, tableError("cycle length must be positive")
	}
	if len(segments) == 0 {
		return nil, tableError("table has no segments")
	}
	if segments[0].Start != 0 {
		return nil, tableError("first segment %q starts at %d, want 0", segments[0].Name, segments[0].Start)
	}
	for i, s := range segments {
		if s.End <= s.Start {
			return nil, tableError("segment %q is empty: [%d, %d)", s.Name, s.Start, s.End)
		}
		if i > 0 && s.Start != segments[i-1].End {
			return nil, tableError("segment %q starts at %d, previous ends at %d", s.Name, s.Start, segments[i-1].End)
		}
		if i < len(segments)-1 && s.End == Open {
			return nil, tableError("only the last segment may be open, %q is not last", s.Name)
		}
		if s.Start >= cycle {
			return nil, tableError("segment %q starts at %d, beyond cycle %d", s.Name, s.Start, cycle)
		}
	}
	if last := segments[len(segments)-1]; last.End != cycle && last.End != Open {
		return nil, tableError("last segment %q ends at %d, want %d", last.Name, last.End, cycle)
	}

	return &Table{
		segments: append([]Segment(nil), segments...),
		cycle:    cycle,
	}, nil
}

// MustTable is NewTable for tables fixed at compile time.
func MustTable(cycle uint64, segments ...Segment) *Table {
	t, err := NewTable(cycle, segments...)
	if err != nil {
		panic(err)
	}
	return t
}

// Cycle returns the cycle length in ticks.
func (t *Table) Cycle() uint64 {
	return t.cycle
}

// Segments returns a copy of the table's segments.
func (t *Table) Segments() []Segment {
	return append([]Segment(nil), t.segments...)
}

// Lookup selects the segment for ticks mod cycle and returns it with the
// ticks local to that segment.
func (t *Table) Lookup(ticks uint64) (Segment, uint64, bool) {
	if t == nil || len(t.segments) == 0 {
		return Segment{}, 0, false
	}
	pos := ticks % t.cycle
	i := sort.Search(len(t.segments), func(i int) bool {
		return t.segments[i].End > pos
	})
	if i == len(t.segments) {
		return Segment{}, 0, false
	}
	s := t.segments[i]
	return s, pos - s.Start, true
}
