package screenshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	maxNameLen   = 50
	fallbackName = "screenshot"
)

// strftimeMap covers the timestamp directives accepted in filename
// patterns, translated to Go reference-time layouts.
var strftimeMap = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
}

// formatPattern expands strftime-style directives in a filename
// pattern for the given time. Unrecognized directives are kept
// literally, so a malformed pattern degrades instead of erroring.
func formatPattern(pattern string, t time.Time) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' || i+1 >= len(pattern) {
			b.WriteByte(pattern[i])
			continue
		}
		i++
		if pattern[i] == '%' {
			b.WriteByte('%')
			continue
		}
		if layout, ok := strftimeMap[pattern[i]]; ok {
			b.WriteString(t.Format(layout))
			continue
		}
		b.WriteByte('%')
		b.WriteByte(pattern[i])
	}
	return b.String()
}

// sanitizeName makes a string safe to use as a filename: filesystem
// metacharacters and non-printable-ASCII runes are dropped, whitespace
// collapses to underscores, and the result is capped in length. An
// empty result falls back to a generic name rather than producing
// dotfile-like paths.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r):
			// dropped
		case r == ' ' || r == '\t':
			b.WriteByte('_')
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), "._")
	if len(out) > maxNameLen {
		out = out[:maxNameLen]
	}
	if out == "" {
		return fallbackName
	}
	return out
}

// uniquePath resolves filename collisions by appending _1, _2, ... to
// the stem until the path is free.
func uniquePath(dir, stem, ext string) string {
	path := filepath.Join(dir, stem+ext)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// resolvePath builds the full output path for a capture: prefix (if
// any) joined with the expanded timestamp pattern, sanitized, made
// collision-free under dir.
func resolvePath(dir, prefix, pattern string, format Format, t time.Time) string {
	stem := formatPattern(pattern, t)
	if prefix != "" {
		stem = prefix + "_" + stem
	}
	stem = sanitizeName(stem)
	return uniquePath(dir, stem, format.Ext())
}
