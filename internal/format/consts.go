package format

// ============================================================================
// Value payload sizes
// ============================================================================

const (
	// DWORDSize is the size of REG_DWORD and REG_DWORD_BIG_ENDIAN values in bytes (uint32).
	DWORDSize = 4

	// QWORDSize is the size of REG_QWORD values in bytes (uint64).
	QWORDSize = 8
)

// ============================================================================
// UTF-16 text
// ============================================================================

const (
	// UTF16CodeUnitSize is the size of a UTF-16 code unit in bytes.
	UTF16CodeUnitSize = 2

	// UTF16ASCIIThreshold is the threshold for ASCII characters in UTF-16LE.
	// Characters below this value have a zero high byte.
	UTF16ASCIIThreshold = 0x80
)

// ============================================================================
// Paths
// ============================================================================

const (
	// PathSeparator joins key name segments.
	PathSeparator = `\`

	// pathSepByte is PathSeparator as a byte for scanning.
	pathSepByte = '\\'
)
