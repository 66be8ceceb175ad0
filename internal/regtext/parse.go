// Package regtext reads and writes regedit's .reg text format on top of the
// regkey layer.
package regtext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/values"
)

// Parse reads .reg text into edit operations, in file order. Key lines
// produce OpCreateKey or OpDeleteKey; value lines produce OpSetValue or
// OpDeleteValue against the most recent key.
func Parse(data []byte, opts types.RegParseOptions) ([]types.EditOp, error) {
	text, err := decodeInput(data, opts.InputEncoding)
	if err != nil {
		return nil, err
	}

	p := &parser{}
	lines := strings.Split(text, "\n")
	headerSeen := false
	for i := 0; i < len(lines); i++ {
		p.line = i + 1
		line := strings.TrimSpace(strings.TrimSuffix(lines[i], CR))

		// hex data may continue over several lines ending in a backslash
		for strings.HasSuffix(line, LineContinuation) && i+1 < len(lines) {
			i++
			line = strings.TrimSuffix(line, LineContinuation) + strings.TrimSpace(strings.TrimSuffix(lines[i], CR))
		}

		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}
		if !headerSeen {
			if line != RegFileHeader && line != LegacyHeader {
				return nil, p.errorf("missing header %q", RegFileHeader)
			}
			headerSeen = true
			continue
		}
		if err := p.parseLine(line); err != nil {
			return nil, err
		}
	}
	if !headerSeen {
		return nil, p.errorf("missing header %q", RegFileHeader)
	}
	return p.ops, nil
}

type parser struct {
	line int
	path string // current key; empty after a key deletion
	ops  []types.EditOp
}

func (p *parser) errorf(format string, args ...any) error {
	return &types.Error{
		Kind: types.ErrKindParse,
		Op:   "parse .reg",
		Msg:  fmt.Sprintf("line %d: %s", p.line, fmt.Sprintf(format, args...)),
	}
}

func (p *parser) parseLine(line string) error {
	if strings.HasPrefix(line, KeyOpenBracket) {
		return p.parseKey(line)
	}
	if p.path == "" {
		return p.errorf("value outside of a key section")
	}

	var name, rest string
	switch {
	case strings.HasPrefix(line, DefaultValuePrefix):
		rest = line[len(DefaultValuePrefix):]
	case strings.HasPrefix(line, Quote):
		end := findClosingQuote(line)
		if end < 0 {
			return p.errorf("unterminated value name")
		}
		name = unescapeRegString(line[1:end])
		after := strings.TrimSpace(line[end+1:])
		if !strings.HasPrefix(after, ValueAssignment) {
			return p.errorf("expected %q after value name", ValueAssignment)
		}
		rest = after[len(ValueAssignment):]
	default:
		return p.errorf("unrecognized line %q", line)
	}
	rest = strings.TrimSpace(rest)

	if rest == DeleteValueToken {
		p.ops = append(p.ops, types.OpDeleteValue{Path: p.path, Name: name})
		return nil
	}
	v, err := p.parseData(rest)
	if err != nil {
		return err
	}
	p.ops = append(p.ops, types.OpSetValue{Path: p.path, Name: name, Type: v.Type, Data: v.Bytes})
	return nil
}

func (p *parser) parseKey(line string) error {
	if !strings.HasSuffix(line, KeyCloseBracket) {
		return p.errorf("unterminated key path")
	}
	inner := line[len(KeyOpenBracket) : len(line)-len(KeyCloseBracket)]
	del := strings.HasPrefix(inner, DeleteKeyPrefix)
	if del {
		inner = inner[len(DeleteKeyPrefix):]
	}
	path := strings.TrimSuffix(strings.TrimSpace(inner), Backslash)
	if _, _, ok := types.SplitRootPath(path); !ok {
		return p.errorf("unknown root in %q", path)
	}

	if del {
		p.ops = append(p.ops, types.OpDeleteKey{Path: path, Recursive: true})
		p.path = ""
		return nil
	}
	p.ops = append(p.ops, types.OpCreateKey{Path: path})
	p.path = path
	return nil
}

func (p *parser) parseData(data string) (types.RegValue, error) {
	switch {
	case strings.HasPrefix(data, Quote):
		end := findClosingQuote(data)
		if end != len(data)-1 {
			return types.RegValue{}, p.errorf("malformed string data")
		}
		v, err := values.String.Encode(unescapeRegString(data[1:end]))
		if err != nil {
			return types.RegValue{}, p.errorf("%v", err)
		}
		return v, nil

	case strings.HasPrefix(data, DWORDPrefix):
		digits := data[len(DWORDPrefix):]
		if len(digits) == 0 || len(digits) > DWORDHexLength {
			return types.RegValue{}, p.errorf("dword needs 1 to %d hex digits, got %q", DWORDHexLength, digits)
		}
		n, err := strconv.ParseUint(digits, 16, 32)
		if err != nil {
			return types.RegValue{}, p.errorf("invalid dword %q", digits)
		}
		v, _ := values.DWORD.Encode(uint32(n))
		return v, nil

	case strings.HasPrefix(data, HexPrefix):
		b, err := parseHexBytes(data)
		if err != nil {
			return types.RegValue{}, p.errorf("%v", err)
		}
		return types.RegValue{Bytes: b, Type: types.REG_BINARY}, nil

	case strings.HasPrefix(data, HexTypedPrefix):
		t, tail, err := parseHexType(data)
		if err != nil {
			return types.RegValue{}, p.errorf("%v", err)
		}
		b, err := parseHexBytes(tail)
		if err != nil {
			return types.RegValue{}, p.errorf("%v", err)
		}
		return types.RegValue{Bytes: b, Type: types.RegType(t)}, nil

	default:
		return types.RegValue{}, p.errorf("unrecognized value data %q", data)
	}
}
