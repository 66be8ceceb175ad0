package regtext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// unescapeRegString unescapes a string from .reg format.
// .reg files escape backslashes as \\ and quotes as \"
func unescapeRegString(s string) string {
	if strings.IndexByte(s, '\\') == -1 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '"') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func escapeString(s string) string {
	s = strings.ReplaceAll(s, Backslash, EscapedBackslash)
	s = strings.ReplaceAll(s, Quote, EscapedQuote)
	return s
}

// findClosingQuote finds the position of the closing quote in a line,
// accounting for escaped quotes (preceded by an odd number of backslashes).
// Returns -1 if no valid closing quote is found.
// The search starts at position 1 (assuming the opening quote is at position 0).
func findClosingQuote(line string) int {
	for i := 1; i < len(line); i++ {
		if line[i] != '"' {
			continue
		}
		numBackslashes := 0
		for j := i - 1; j >= 1 && line[j] == '\\'; j-- {
			numBackslashes++
		}
		if numBackslashes%2 == 1 {
			continue
		}
		return i
	}
	return -1
}

// parseHexType extracts N from a hex(N): prefix. N is hexadecimal, as
// regedit writes it (hex(b): is REG_QWORD).
func parseHexType(payload string) (uint32, string, error) {
	closeParen := strings.IndexByte(payload, ')')
	if !strings.HasPrefix(payload, HexTypedPrefix) || closeParen < 0 {
		return 0, "", errors.New("malformed typed hex prefix")
	}
	var n uint32
	if _, err := fmt.Sscanf(payload[len(HexTypedPrefix):closeParen], "%x", &n); err != nil {
		return 0, "", fmt.Errorf("invalid hex type %q", payload[:closeParen+1])
	}
	return n, payload[closeParen+1:], nil
}

// parseHexBytes parses the comma-separated bytes after a hex prefix. The
// data may already have had its line continuations joined; any stray
// whitespace and backslashes are skipped.
func parseHexBytes(hexStr string) ([]byte, error) {
	colonPos := strings.IndexByte(hexStr, ':')
	if colonPos == -1 {
		return nil, errors.New("invalid hex data format: missing colon")
	}
	data := hexStr[colonPos+1:]

	result := make([]byte, 0, len(data)/3+1)
	i := 0
	for i < len(data) {
		for i < len(data) && isHexSkipChar(data[i]) {
			i++
		}
		if i >= len(data) {
			break
		}
		hi := hexCharToNibble(data[i])
		if hi == 0xFF {
			return nil, fmt.Errorf("invalid hex digit %q at position %d", data[i], i)
		}
		i++
		if i < len(data) && !isHexSkipChar(data[i]) {
			lo := hexCharToNibble(data[i])
			if lo == 0xFF {
				return nil, fmt.Errorf("invalid hex digit %q at position %d", data[i], i)
			}
			result = append(result, hi<<4|lo)
			i++
			continue
		}
		// single digit byte
		result = append(result, hi)
	}
	return result, nil
}

// hexCharToNibble converts a hex character to its 4-bit value
// Returns 0xFF for invalid characters.
func hexCharToNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0xFF
	}
}

// isHexSkipChar returns true for characters to skip during hex parsing.
func isHexSkipChar(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',' || c == '\\'
}

// writeHex appends data as comma-separated hex bytes, wrapping lines the way
// regedit does. col is the width of what is already on the line.
func writeHex(buf *bytes.Buffer, data []byte, col int) {
	const digits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			buf.WriteString(HexByteSeparator)
			col++
			// room for "xx," plus the continuation backslash
			if col+4 > HexLineWidth {
				buf.WriteString(LineContinuation + CRLF + HexIndent)
				col = len(HexIndent)
			}
		}
		buf.WriteByte(digits[b>>4])
		buf.WriteByte(digits[b&0x0f])
		col += 2
	}
}
