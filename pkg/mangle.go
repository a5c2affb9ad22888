package dc

import (
	"strconv"
	"strings"

	"github.com/llir/llvm/ir/types"
)

// stripDigitsAndUnderscores removes every digit and underscore from s. Per
// §4.4/§9, both the mangler and the demangler-based lookup run a name
// through this before comparison; two source names differing only in
// digits or underscores are, by design, indistinguishable to it.
func stripDigitsAndUnderscores(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '_' || (r >= '0' && r <= '9') {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// typeMangleName gives a short, stable spelling for a type used inside a
// mangled symbol. Pointer levels are rendered as a trailing run of "P".
func typeMangleName(t types.Type) string {
	var stars int
	base := t
	for {
		pt, ok := base.(*types.PointerType)
		if !ok {
			break
		}
		stars++
		base = pt.ElemType
	}

	var name string
	switch {
	case types.Equal(base, types.Void):
		name = "v"
	case types.Equal(base, types.I8):
		name = "c"
	case types.Equal(base, types.I16):
		name = "s"
	case types.Equal(base, types.I32):
		name = "i"
	case types.Equal(base, types.I64):
		name = "l"
	default:
		name = "x"
	}
	return strings.Repeat("P", stars) + name
}

// mangle implements §4.4's naming scheme:
//
//	_Z<L1><name-digit-stripped><L2><module-digit-stripped>_<ret>_<arg>_...
//
// name and module are first stripped of underscores and digits; L1/L2 are
// their stripped lengths. This is lossy by construction (see §9) and is
// reproduced verbatim rather than "fixed," per SPEC_FULL.md Expansion D.5.
func mangle(name, module string, ret types.Type, args []types.Type) string {
	strippedName := stripDigitsAndUnderscores(name)
	strippedModule := stripDigitsAndUnderscores(module)

	var b strings.Builder
	b.WriteString("_Z")
	b.WriteString(strconv.Itoa(len(strippedName)))
	b.WriteString(strippedName)
	b.WriteString(strconv.Itoa(len(strippedModule)))
	b.WriteString(strippedModule)
	b.WriteString("_")
	b.WriteString(typeMangleName(ret))
	for _, a := range args {
		b.WriteString("_")
		b.WriteString(typeMangleName(a))
	}
	return b.String()
}

// demangledNameMatches reports whether the mangled symbol name, once run
// through the same lossy digit/underscore strip used to build it, matches
// rawName similarly stripped. Call resolution (§4.4) uses this instead of
// reconstructing the original source name, which the scheme cannot recover.
func demangledNameMatches(mangledOrRaw, rawName string) bool {
	lhs := stripDigitsAndUnderscores(demangledCore(mangledOrRaw))
	rhs := stripDigitsAndUnderscores(rawName)
	return lhs == rhs
}

// demangledCore extracts the embedded source-name field from a mangled
// symbol (the bytes between the first length prefix and the second length
// prefix). Names that were never mangled (main, #nomangle) are returned
// unchanged, since they carry no _Z prefix to parse.
func demangledCore(symbol string) string {
	if !strings.HasPrefix(symbol, "_Z") {
		return symbol
	}
	rest := symbol[2:]

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return symbol
	}
	n, err := strconv.Atoi(rest[:digits])
	if err != nil || digits+n > len(rest) {
		return symbol
	}
	return rest[digits : digits+n]
}
