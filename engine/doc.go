// Package engine embeds the wazero runtime and enforces the guest ABI.
//
// A guest is a core WebAssembly module that exports:
//
//	init:   func()
//	update: func(ticks: u64, frame: u64, host-buffer-offset: u32) -> u32
//	memory: its linear memory
//
// The contract is written in WIT, parsed once and lowered to core value
// types so that validation compares the compiled export signatures against
// the same text a guest author reads.
//
// # Lifecycle
//
//  1. Engine.Load compiles the module and validates exports and imports.
//     Any failure is a configuration error.
//  2. Module.Instantiate runs the setup protocol: instantiate, record the
//     current memory size as the host buffer offset, grow memory by the
//     reserve, assert the buffer fits, then call init exactly once.
//  3. Instance.Update calls update once per render cycle.
//
// # Failure model
//
// Every error on these paths is fatal. A trap in init or update poisons the
// instance and later calls return the original error. The host never
// re-initializes a guest mid-run.
//
// # Host imports
//
// A guest may import a small host surface. It is linked only when imported:
//
//	env.output(u64)                log a number
//	env.log(ptr: u32, len: u32)    log a UTF-8 message from guest memory
//	wasi_snapshot_preview1.*       WASI for Go and TinyGo guests
//
// Guest stdout and stderr are routed into the engine logger.
package engine
