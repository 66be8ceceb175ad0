package format

import (
	"errors"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrOddLength reports a UTF-16 payload that is not a whole number of code units.
	ErrOddLength = errors.New("utf16 string has odd length")
	// ErrMissingTerminator reports a REG_MULTI_SZ payload without its final NUL.
	ErrMissingTerminator = errors.New("multisz missing terminator")
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodeUTF16 encodes s as UTF-16LE followed by a NUL terminator, the layout
// of REG_SZ and REG_EXPAND_SZ.
func EncodeUTF16(s string) ([]byte, error) {
	if isASCIIString(s) {
		// ASCII: every code unit is [byte, 0x00]
		buf := make([]byte, (len(s)+1)*UTF16CodeUnitSize)
		for i := 0; i < len(s); i++ {
			buf[i*UTF16CodeUnitSize] = s[i]
		}
		return buf, nil
	}
	enc, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, err
	}
	return append(enc, 0, 0), nil
}

// DecodeUTF16 decodes a UTF-16LE payload, trimming every trailing NUL.
// Unpaired surrogates decode to U+FFFD rather than failing.
func DecodeUTF16(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if len(data)%UTF16CodeUnitSize != 0 {
		return "", ErrOddLength
	}
	for len(data) >= 2 && data[len(data)-2] == 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-2]
	}
	if isASCIIUTF16(data) {
		var b strings.Builder
		b.Grow(len(data) / 2)
		for i := 0; i < len(data); i += 2 {
			b.WriteByte(data[i])
		}
		return b.String(), nil
	}
	out, err := utf16le.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodeMultiString lays out REG_MULTI_SZ: each entry NUL-terminated, then
// one extra NUL.
func EncodeMultiString(values []string) ([]byte, error) {
	var buf []byte
	for _, v := range values {
		enc, err := EncodeUTF16(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	return append(buf, 0, 0), nil
}

// DecodeMultiString splits a REG_MULTI_SZ payload on NUL. Trailing NULs are
// dropped; interior empty entries are kept. An empty payload yields no
// entries. When strict is set the final terminator must be present.
func DecodeMultiString(data []byte, strict bool) ([]string, error) {
	if len(data)%UTF16CodeUnitSize != 0 {
		return nil, ErrOddLength
	}
	if len(data) == 0 {
		return []string{}, nil
	}
	if strict && (data[len(data)-1] != 0 || data[len(data)-2] != 0) {
		return nil, ErrMissingTerminator
	}
	for len(data) >= 2 && data[len(data)-2] == 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-2]
	}
	result := []string{}
	if len(data) == 0 {
		return result, nil
	}
	start := 0
	for i := 0; i <= len(data); i += 2 {
		if i == len(data) || (data[i] == 0 && data[i+1] == 0) {
			s, err := DecodeUTF16(data[start:i])
			if err != nil {
				return nil, err
			}
			result = append(result, s)
			start = i + 2
		}
	}
	return result, nil
}

// UTF16Len is the number of UTF-16 code units needed for s. Registry name
// limits and QueryInfo lengths are measured in these units.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func isASCIIString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= UTF16ASCIIThreshold {
			return false
		}
	}
	return true
}

func isASCIIUTF16(data []byte) bool {
	for i := 0; i < len(data); i += 2 {
		if data[i+1] != 0 || data[i] >= UTF16ASCIIThreshold {
			return false
		}
	}
	return true
}
