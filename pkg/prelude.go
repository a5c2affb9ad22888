package dc

import (
	_ "embed"
	"strings"
)

//go:embed prelude.dc
var preludeSource string

// preludeLineOffset is the starting-line value NewLexer needs so that, once
// every newline embedded in the prelude has been scanned past, the line
// counter reads exactly 1 at the first character of user source (§6).
// NewLexer sets the initial counter to 1-offset, and each of the prelude's
// newlines increments it back up by one, so the offset is exactly the
// prelude's newline count.
var preludeLineOffset = strings.Count(preludeSource, "\n")

// PreludeSource returns the embedded prelude text declaring printf, scanf,
// malloc, free, exit, and strtol, and defining alloc, delete, collapse,
// collapse_handler, and parse_int on top of them.
func PreludeSource() string {
	return preludeSource
}

// WithPrelude concatenates the prelude ahead of src, returning the combined
// text and the starting-line offset to pass to NewLexer so src's own lines
// still read 1-based.
func WithPrelude(src string) (string, int) {
	return preludeSource + src, preludeLineOffset
}
