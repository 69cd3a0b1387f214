// Package wasmmatrix hosts sandboxed WebAssembly animations on an LED matrix.
//
// A guest module exports init, update and its linear memory. The host calls
// update once per render cycle with the elapsed ticks, a derived frame
// number and the offset of a host-reserved pixel buffer, then copies the
// returned row-major RGB frame out of guest memory, maps it onto a
// serpentine LED strip and hands it to an output sink.
//
// # Architecture Overview
//
//	wasmmatrix/          Root package with Grid and the Memory interfaces
//	├── engine/          wazero sandbox, export ABI validation, setup protocol
//	├── framebuf/        Bounds-checked pixel buffer copy-out
//	├── animation/       Timelines, segment tables and patterns (guest and native)
//	├── colorspace/      RGB, hue wheel, gamma and brightness
//	├── serpentine/      Logical grid to zig-zag strip mapping
//	├── render/          Clocks, frame sources and the render loop
//	├── sink/            Terminal, wire, capture and replay outputs
//	├── asset/           Image strips to sprite sheets
//	├── config/          matrix.toml loading and logger setup
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Run a guest:
//
//	eng, err := engine.New(ctx, &engine.Config{Grid: wasmmatrix.DefaultGrid})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	mod, err := eng.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx) // grows memory, calls init once
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	loop, err := render.New(render.NewGuestSource(inst), out, render.NewSystemClock(), render.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = loop.Run(ctx)
//
// # Guest Contract
//
//	init: func();
//	update: func(ticks: u64, frame: u64, host-buffer-offset: u32) -> u32;
//
// plus an exported memory named "memory". update returns the offset of the
// frame to display: either host-buffer-offset after writing into it, or a
// pointer into guest-owned memory.
//
// # Thread Safety
//
// Engine is safe for concurrent use but hosts one live instance at a time.
// Instance rejects overlapping calls; the render loop drives it from a single
// goroutine.
//
// # Memory Model
//
// The host buffer region is reserved once, right after instantiation, by
// growing guest memory. WASM linear memory never shrinks, so the offset stays
// valid for the life of the instance. Any trap poisons the instance.
package wasmmatrix
