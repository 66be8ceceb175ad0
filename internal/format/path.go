package format

import (
	"strings"
	"unicode"
)

// PathError classifies why SplitPath rejected a path. Backends translate it
// to their native code.
type PathError int

const (
	PathOK PathError = iota
	// PathBadSyntax: leading separator or an empty segment.
	PathBadSyntax
	// PathBadName: a segment contains NUL or exceeds the name limit.
	PathBadName
)

// SplitPath splits a relative key path into its segments.
//
// Rules (mirroring the native API):
//   - "" means the key itself and yields no segments
//   - one trailing separator is tolerated
//   - a leading separator or an empty segment ("a\\b") is malformed
//   - a segment containing NUL or longer than maxName code units is invalid
func SplitPath(path string, maxName int) ([]string, PathError) {
	if path == "" {
		return nil, PathOK
	}
	if path[0] == pathSepByte {
		return nil, PathBadSyntax
	}
	path = strings.TrimSuffix(path, PathSeparator)
	segs := strings.Split(path, PathSeparator)
	for _, s := range segs {
		if s == "" {
			return nil, PathBadSyntax
		}
		if strings.IndexByte(s, 0) >= 0 {
			return nil, PathBadName
		}
		if maxName > 0 && UTF16Len(s) > maxName {
			return nil, PathBadName
		}
	}
	return segs, PathOK
}

// JoinPath joins segments with the registry separator, skipping empty ones.
func JoinPath(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(PathSeparator)
		}
		b.WriteString(p)
	}
	return b.String()
}

// FoldName returns the comparison form of a key or value name. The registry
// compares names case-insensitively by upper-casing; folding to upper keeps
// the same equivalence classes for the characters it maps.
func FoldName(name string) string {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= UTF16ASCIIThreshold || ('a' <= c && c <= 'z') {
			return strings.Map(unicode.ToUpper, name)
		}
	}
	return name
}
