package types

// ============================================================================
// Windows Registry Limits Constants
// ============================================================================
// These constants define the documented limits imposed by the Windows
// registry. Backends validate names against them so the emulated store
// rejects exactly what the native one rejects.

const (
	// MaxKeyNameLen is the hard limit for a single key name segment,
	// measured in characters (UTF-16 code units), not bytes.
	MaxKeyNameLen = 255

	// MaxValueNameLen is the hard limit for registry value names
	// in Windows (measured in characters, not bytes).
	MaxValueNameLen = 16383

	// MaxValueSize is the documented ceiling for a single value's data.
	// Larger values are possible but discouraged.
	MaxValueSize = 1 << 20 // 1,048,576 bytes

	// MaxTreeDepth is the nesting limit for keys. Windows refuses to
	// create keys deeper than 512 levels.
	MaxTreeDepth = 512
)
