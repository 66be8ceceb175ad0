package values

import (
	"os"
	"strings"
)

// ExpandEnvironment replaces %NAME% references with environment variables.
// Undefined names are left as written, matching ExpandEnvironmentStrings.
func ExpandEnvironment(s string) string {
	return ExpandWith(s, os.LookupEnv)
}

// ExpandWith is ExpandEnvironment with a caller-supplied lookup.
func ExpandWith(s string, lookup func(string) (string, bool)) string {
	if strings.IndexByte(s, '%') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for {
		start := strings.IndexByte(s, '%')
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.IndexByte(s[start+1:], '%')
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		end += start + 1
		name := s[start+1 : end]
		b.WriteString(s[:start])
		if val, ok := lookup(name); ok && name != "" {
			b.WriteString(val)
			s = s[end+1:]
			continue
		}
		// keep the opening % and let the closing one start the next reference
		b.WriteString(s[start:end])
		s = s[end:]
	}
}
