// Package animation is the tick-driven state machine that decides what the
// matrix shows.
//
// Time is measured in ticks. A Timeline first plays a boot table for a fixed
// number of ticks, then loops a cycle table forever. Each table partitions
// its cycle into half-open segments [start, end) and each segment names a
// Pattern. Selection is by ticks mod cycle; the pattern receives ticks local
// to its segment.
//
// Patterns are pure: the output depends only on (ticks, frame) and, for
// patterns that keep their own buffer, on what they drew before. Nothing
// reads the wall clock or a random source, so a given tick always renders
// the same frame.
//
// The package has no host dependencies. The same code runs inside the
// WebAssembly guest (cmd/guest) and natively in the host (render.NativeSource).
package animation
