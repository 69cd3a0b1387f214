// Package framebuf implements the byte-level contract for moving a rendered
// frame across the sandbox boundary.
//
// A pixel buffer is Width*Height*3 bytes, row-major, logical origin
// top-left, three bytes per pixel in whatever channel order the guest
// produced. The guest hands the host a 32-bit offset into its linear memory;
// the host never trusts it. Every read is checked against the current memory
// size before a single byte is touched, and the copy into the host-local
// buffer is byte-exact.
//
// Two ownership variants exist and a guest uses exactly one:
//
//	guest-owned    the guest renders into its own static storage and
//	               returns a pointer to it
//	host-provided  the host grows guest memory, reserves a region at the old
//	               top of memory and passes its offset to update; the guest
//	               renders in place and returns that same offset
//
// The returned offset is valid only until the next call into the guest, so
// the host copies the frame out before calling update again. Host-side
// writes into the reserved region happen only between guest calls.
package framebuf
