package regtext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
	"github.com/joshuapare/regkit/values"
)

// Export renders k and everything below it as .reg text. Keys and values
// appear in enumeration order.
func Export(k *regkey.Key, opts types.RegExportOptions) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(RegFileHeader + CRLF + CRLF)
	if err := exportKey(&buf, k, 0); err != nil {
		return nil, err
	}
	return encodeOutput(buf.String(), opts)
}

func exportKey(buf *bytes.Buffer, k *regkey.Key, depth int) error {
	if depth > types.MaxTreeDepth {
		return &types.Error{Kind: types.ErrKindInvalidPath, Op: "export", Path: k.Path(), Msg: "tree too deep"}
	}

	buf.WriteString(KeyOpenBracket + k.Path() + KeyCloseBracket + CRLF)
	it := k.EnumValues()
	for it.Next() {
		writeValue(buf, it.Name(), it.Value())
	}
	if err := it.Err(); err != nil {
		return err
	}
	buf.WriteString(CRLF)

	names, err := k.SubkeyNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		err := k.With(name, types.KEY_READ, func(child *regkey.Key) error {
			return exportKey(buf, child, depth+1)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// FormatValue renders one value as a .reg value line, without the line
// ending.
func FormatValue(name string, v types.RegValue) string {
	var buf bytes.Buffer
	writeValue(&buf, name, v)
	return strings.TrimSuffix(buf.String(), CRLF)
}

func writeValue(buf *bytes.Buffer, name string, v types.RegValue) {
	start := buf.Len()
	if name == "" {
		buf.WriteString(DefaultValuePrefix)
	} else {
		buf.WriteString(Quote + escapeString(name) + Quote + ValueAssignment)
	}

	switch {
	case v.Type == types.REG_SZ:
		if s, ok := quotable(v); ok {
			buf.WriteString(Quote + escapeString(s) + Quote)
			break
		}
		writeTypedHex(buf, v, start)
	case v.Type == types.REG_DWORD && len(v.Bytes) == 4:
		n, _ := values.DWORD.Decode(v)
		fmt.Fprintf(buf, DWORDPrefix+DWORDHexFormat, n)
	case v.Type == types.REG_BINARY:
		buf.WriteString(HexPrefix)
		writeHex(buf, v.Bytes, buf.Len()-start)
	default:
		writeTypedHex(buf, v, start)
	}
	buf.WriteString(CRLF)
}

func writeTypedHex(buf *bytes.Buffer, v types.RegValue, start int) {
	fmt.Fprintf(buf, HexTypeFormat, uint32(v.Type))
	writeHex(buf, v.Bytes, buf.Len()-start)
}

// quotable reports whether a REG_SZ payload survives being written as a
// quoted string and parsed back byte for byte.
func quotable(v types.RegValue) (string, bool) {
	s, err := values.String.Decode(v)
	if err != nil || strings.ContainsAny(s, "\r\n\x00") {
		return "", false
	}
	back, err := values.String.Encode(s)
	if err != nil || !back.Equal(v) {
		return "", false
	}
	return s, true
}
