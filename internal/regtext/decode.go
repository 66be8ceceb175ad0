package regtext

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/joshuapare/regkit/pkg/types"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// decodeInput turns raw .reg bytes into UTF-8 text. A byte order mark wins
// over the declared encoding; an empty declaration means UTF-8.
func decodeInput(data []byte, declared string) (string, error) {
	switch {
	case bytes.HasPrefix(data, UTF8BOM):
		return string(data[len(UTF8BOM):]), nil
	case bytes.HasPrefix(data, UTF16LEBOM):
		return transcode(utf16le, data[len(UTF16LEBOM):])
	}

	switch strings.ToUpper(declared) {
	case "", EncodingUTF8, "UTF8":
		return string(data), nil
	case EncodingUTF16LE, "UTF16LE":
		return transcode(utf16le, data)
	case EncodingWindows1252, "CP1252":
		return transcode(charmap.Windows1252, data)
	default:
		return "", types.Errorf(types.ErrKindNotImplemented, "unsupported .reg encoding %q", declared)
	}
}

func transcode(enc encoding.Encoding, data []byte) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", &types.Error{Kind: types.ErrKindParse, Op: "decode .reg", Err: err}
	}
	return string(out), nil
}

// encodeOutput converts UTF-8 .reg text to the requested output encoding.
func encodeOutput(text string, opts types.RegExportOptions) ([]byte, error) {
	switch strings.ToUpper(opts.OutputEncoding) {
	case "", EncodingUTF8, "UTF8":
		if !opts.WithBOM {
			return []byte(text), nil
		}
		return append(append([]byte(nil), UTF8BOM...), text...), nil
	case EncodingUTF16LE, "UTF16LE":
		out, _, err := transform.Bytes(utf16le.NewEncoder(), []byte(text))
		if err != nil {
			return nil, &types.Error{Kind: types.ErrKindMalformedValue, Op: "encode .reg", Err: err}
		}
		if opts.WithBOM {
			out = append(append([]byte(nil), UTF16LEBOM...), out...)
		}
		return out, nil
	default:
		return nil, types.Errorf(types.ErrKindNotImplemented, "unsupported .reg encoding %q", opts.OutputEncoding)
	}
}
