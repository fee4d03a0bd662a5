// Package workspace derives filesystem-safe names and allocates the
// per-listing output directories.
package workspace

import (
	"strings"
	"unicode"
)

// Placeholder replaces names that sanitize to nothing.
const Placeholder = "untitled"

// replacements is the complete mapping table applied by Sanitize. A rune
// mapped to "" is dropped. No replacement value contains a key, so a second
// pass is a no-op.
var replacements = map[rune]string{
	' ':  "_",
	'-':  "_",
	'/':  "_",
	'\\': "_",
	'(':  "_",
	')':  "_",
	':':  "_",
	'*':  "",
	'|':  "",
	'?':  "",
	'<':  "",
	'>':  "",
	'"':  "",
}

// Sanitize maps an arbitrary title or slug to a token usable both as a path
// segment and inside a file name. It never fails and is idempotent.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if repl, ok := replacements[r]; ok {
			b.WriteString(repl)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return Placeholder
	}
	return b.String()
}
