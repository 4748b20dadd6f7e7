package bytecode

// DebugLevel selects how much debug-sidecar information the compiler emits
// and the VM traces, per spec §6's {none, minimal, full} configuration.
type DebugLevel byte

const (
	DebugNone DebugLevel = iota
	DebugMinimal
	DebugFull
)

// Config carries every compile-time constant spec §6 names. The same
// values must be used by whatever produced an Image (the local-index width
// and frame-array size are baked into the bytecode's meaning) and by the VM
// that runs it — see spec §9 "Global configuration as compile-time
// constants."
type Config struct {
	MaxLocals                 uint32
	MaxCallFrames              uint32
	InitialCodeSize            uint32
	InitialDataSize            uint32
	DeduplicateStringLiterals  bool
	EscapeByDefault            bool
	Debug                      DebugLevel
}

// DefaultConfig returns the defaults listed in spec §6's configuration
// table.
func DefaultConfig() Config {
	return Config{
		MaxLocals:                 256,
		MaxCallFrames:              255,
		InitialCodeSize:            512,
		InitialDataSize:            512,
		DeduplicateStringLiterals:  true,
		EscapeByDefault:            false,
		Debug:                      DebugNone,
	}
}

// LocalWidth returns the number of bytes used to encode a local-slot index
// (the "L" notation in spec §4.3's instruction table): 1 byte when
// MaxLocals <= 256 (every slot index 0..255 fits in a byte), 2 otherwise.
func (c Config) LocalWidth() int {
	if c.MaxLocals <= 256 {
		return 1
	}
	return 2
}
