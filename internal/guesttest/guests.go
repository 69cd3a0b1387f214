package guesttest

var (
	updateParams  = []ValType{I64, I64, I32}
	updateResults = []ValType{I32}
)

// CounterAddr is the byte of guest memory that CountingInit increments.
const CounterAddr = 0

// Option adjusts a prebuilt guest before encoding.
type Option func(*guestConfig)

type guestConfig struct {
	skipInit    bool
	skipUpdate  bool
	skipMemory  bool
	badUpdate   bool
	memoryName  string
	memoryMin   uint32
	memoryMax   uint32
	hasMax      bool
	trapInit    bool
	trapUpdate  bool
	extraImport [2]string
}

// WithoutInit omits the init export.
func WithoutInit() Option { return func(s *guestConfig) { s.skipInit = true } }

// WithoutUpdate omits the update export.
func WithoutUpdate() Option { return func(s *guestConfig) { s.skipUpdate = true } }

// WithoutMemory omits the memory export.
func WithoutMemory() Option { return func(s *guestConfig) { s.skipMemory = true } }

// WithMemoryName exports memory under a different name.
func WithMemoryName(name string) Option { return func(s *guestConfig) { s.memoryName = name } }

// WithWrongUpdateSignature exports update as (i32) -> (i32).
func WithWrongUpdateSignature() Option { return func(s *guestConfig) { s.badUpdate = true } }

// WithMemoryLimits sets the declared memory limits.
func WithMemoryLimits(min, max uint32) Option {
	return func(s *guestConfig) { s.memoryMin, s.memoryMax, s.hasMax = min, max, true }
}

// WithTrapInit makes init execute unreachable.
func WithTrapInit() Option { return func(s *guestConfig) { s.trapInit = true } }

// WithTrapUpdate makes update execute unreachable.
func WithTrapUpdate() Option { return func(s *guestConfig) { s.trapUpdate = true } }

// WithImport adds an unused () -> () function import.
func WithImport(module, name string) Option {
	return func(s *guestConfig) { s.extraImport = [2]string{module, name} }
}

func newGuestConfig(opts []Option) *guestConfig {
	s := &guestConfig{memoryName: "memory", memoryMin: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *guestConfig) module() *Module {
	m := New()
	if s.extraImport[0] != "" {
		m.Import(s.extraImport[0], s.extraImport[1], nil, nil)
	}
	if s.hasMax {
		m.MemoryMax(s.memoryMin, s.memoryMax)
	} else {
		m.Memory(s.memoryMin)
	}
	if !s.skipMemory {
		m.ExportMemory(s.memoryName)
	}
	return m
}

// addInit exports an init that increments the byte at CounterAddr.
func (s *guestConfig) addInit(m *Module) {
	if s.skipInit {
		return
	}
	body := [][]byte{
		I32Const(CounterAddr),
		I32Const(CounterAddr),
		I32Load8U(0),
		I32Const(1),
		I32Add(),
		I32Store8(0),
	}
	if s.trapInit {
		body = [][]byte{Unreachable()}
	}
	m.ExportFunc("init", m.Func(nil, nil, nil, body...))
}

func (s *guestConfig) addUpdate(m *Module, body ...[]byte) {
	if s.skipUpdate {
		return
	}
	if s.badUpdate {
		m.ExportFunc("update", m.Func([]ValType{I32}, []ValType{I32}, nil, LocalGet(0)))
		return
	}
	if s.trapUpdate {
		body = [][]byte{Unreachable()}
	}
	m.ExportFunc("update", m.Func(updateParams, updateResults, nil, body...))
}

// HostFill is a host-provided-variant guest. update fills bufferSize bytes
// at host_buffer_offset with the low byte of ticks and returns that offset.
func HostFill(bufferSize int, opts ...Option) []byte {
	s := newGuestConfig(opts)
	m := s.module()
	s.addInit(m)
	s.addUpdate(m,
		LocalGet(2),
		LocalGet(0),
		I32WrapI64(),
		I32Const(int32(bufferSize)),
		MemoryFill(),
		LocalGet(2),
	)
	return m.Bytes()
}

// StaticFrame is a guest-owned-variant guest. The frame lives in a data
// segment at offset and update always returns offset.
func StaticFrame(offset uint32, frame []byte, opts ...Option) []byte {
	s := newGuestConfig(opts)
	m := s.module()
	s.addInit(m)
	s.addUpdate(m, I32Const(int32(offset)))
	m.Data(offset, frame)
	return m.Bytes()
}

// ReturnOffset returns a guest whose update returns offset unconditionally.
func ReturnOffset(offset uint32, opts ...Option) []byte {
	s := newGuestConfig(opts)
	m := s.module()
	s.addInit(m)
	s.addUpdate(m, I32Const(int32(offset)))
	return m.Bytes()
}

// LogMessage is the text HostLogger passes to env.log during init.
const LogMessage = "hello from guest"

// HostLogger imports env.log and env.output. init logs LogMessage from a data
// segment at offset 16, and update reports ticks through output before
// returning host_buffer_offset.
func HostLogger(opts ...Option) []byte {
	s := newGuestConfig(opts)
	m := New()
	logFn := m.Import("env", "log", []ValType{I32, I32}, nil)
	outFn := m.Import("env", "output", []ValType{I64}, nil)
	m.Memory(s.memoryMin).ExportMemory(s.memoryName)
	m.ExportFunc("init", m.Func(nil, nil, nil,
		I32Const(16),
		I32Const(int32(len(LogMessage))),
		Call(logFn),
	))
	m.ExportFunc("update", m.Func(updateParams, updateResults, nil,
		LocalGet(0),
		Call(outFn),
		LocalGet(2),
	))
	m.Data(16, []byte(LogMessage))
	return m.Bytes()
}

// BadLogger calls env.log with a range that leaves guest memory.
func BadLogger() []byte {
	m := New()
	logFn := m.Import("env", "log", []ValType{I32, I32}, nil)
	m.Memory(1).ExportMemory("memory")
	m.ExportFunc("init", m.Func(nil, nil, nil,
		I32Const(0x7FFFFFF0),
		I32Const(64),
		Call(logFn),
	))
	m.ExportFunc("update", m.Func(updateParams, updateResults, nil, LocalGet(2)))
	return m.Bytes()
}
