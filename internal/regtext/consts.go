package regtext

const (
	// ============================================================================
	// .reg File Format Tokens
	// ============================================================================

	// RegFileHeader is the header line regedit writes for version 5.00 files.
	RegFileHeader = "Windows Registry Editor Version 5.00"

	// LegacyHeader is the header of ANSI .reg files from older Windows.
	LegacyHeader = "REGEDIT4"

	// ============================================================================
	// Delimiters and Structural Tokens
	// ============================================================================

	// KeyOpenBracket marks the start of a registry key path
	KeyOpenBracket = "["

	// KeyCloseBracket marks the end of a registry key path
	KeyCloseBracket = "]"

	// DeleteKeyPrefix marks a key for deletion (e.g., [-HKEY_LOCAL_MACHINE\...])
	DeleteKeyPrefix = "-"

	// ValueAssignment separates value names from their data
	ValueAssignment = "="

	// DefaultValuePrefix marks the default (unnamed) value
	DefaultValuePrefix = "@="

	// CommentPrefix marks a comment line
	CommentPrefix = ";"

	// LineContinuation ends a line whose hex data goes on below.
	LineContinuation = "\\"

	// ============================================================================
	// Quote and Escape Characters
	// ============================================================================

	Quote            = "\""
	Backslash        = "\\"
	EscapedQuote     = "\\\""
	EscapedBackslash = "\\\\"

	// ============================================================================
	// Line Endings
	// ============================================================================

	CRLF = "\r\n"
	CR   = "\r"

	// ============================================================================
	// Value Type Prefixes
	// ============================================================================

	// DWORDPrefix identifies a DWORD value in .reg format
	DWORDPrefix = "dword:"

	// HexPrefix identifies REG_BINARY data
	HexPrefix = "hex:"

	// HexTypedPrefix starts a typed hex value such as hex(7):
	HexTypedPrefix = "hex("

	// HexTypeFormat renders a typed hex prefix from the type number.
	HexTypeFormat = "hex(%x):"

	// ============================================================================
	// Encoding Names
	// ============================================================================

	EncodingUTF8        = "UTF-8"
	EncodingUTF16LE     = "UTF-16LE"
	EncodingWindows1252 = "WINDOWS-1252"

	// ============================================================================
	// Hex Data Formatting
	// ============================================================================

	// HexByteSeparator separates bytes in hex data
	HexByteSeparator = ","

	// DWORDHexFormat is the format string for DWORD values (8 hex digits)
	DWORDHexFormat = "%08x"

	// DWORDHexLength is the expected length of a DWORD hex string
	DWORDHexLength = 8

	// HexLineWidth is where regedit wraps long hex data.
	HexLineWidth = 80

	// HexIndent prefixes continuation lines of wrapped hex data.
	HexIndent = "  "

	// DeleteValueToken marks a value for deletion
	DeleteValueToken = "-"

	// ============================================================================
	// Buffer and Parsing Sizes
	// ============================================================================

	// ScannerInitialBufferSize is the initial buffer size for the .reg file scanner
	ScannerInitialBufferSize = 64 * 1024 // 64KB

	// ScannerMaxLineSize is the maximum line size for the .reg file scanner
	ScannerMaxLineSize = 4 * 1024 * 1024 // 4MB
)

var (
	// UTF16LEBOM is the byte order mark for UTF-16 little-endian
	UTF16LEBOM = []byte{0xFF, 0xFE}

	// UTF8BOM is the byte order mark for UTF-8
	UTF8BOM = []byte{0xEF, 0xBB, 0xBF}
)
