package dc

import (
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// baseType maps a DC base type name to its llir/llvm representation. "str"
// and "ptr" both resolve to i8*: llir/llvm v0.3.6 predates LLVM's opaque
// pointer IR and has no standalone "ptr" type, so the bare-pointer form is
// represented the same way the teacher's own builtin.go reaches for
// types.I8Ptr (see SPEC_FULL.md Expansion D.1).
func baseType(name string) (types.Type, bool) {
	switch name {
	case "void":
		return types.Void, true
	case "i8":
		return types.I8, true
	case "i16":
		return types.I16, true
	case "i32":
		return types.I32, true
	case "i64":
		return types.I64, true
	case "ptr", "str":
		return types.I8Ptr, true
	default:
		return nil, false
	}
}

// TypeFromString resolves a textual type form (§4.2): every trailing '*' is
// stripped, the remaining word is looked up, and the result is re-wrapped in
// a pointer once per stripped star. line is only used for the error it
// raises on an unmapped base.
func TypeFromString(text string, line int) types.Type {
	stripped := strings.TrimRight(text, "*")
	ptrCount := len(text) - len(stripped)

	base, ok := baseType(stripped)
	if !ok {
		fatalf(line, "unknown type: %s", stripped)
	}

	t := base
	for i := 0; i < ptrCount; i++ {
		t = types.NewPointer(t)
	}
	return t
}

// Coerce converts v, of its own type, to target type t, per §4.2's implicit
// coercion matrix. It panics a CompileError on an unsupported cross-category
// cast. block.NewX methods auto-append the conversion instruction at the
// current insertion point, matching the emitter's direct-builder style.
func Coerce(block *ir.Block, v value.Value, t types.Type, line int) value.Value {
	from := v.Type()
	if types.Equal(from, t) {
		return v
	}

	_, fromPtr := from.(*types.PointerType)
	_, toPtr := t.(*types.PointerType)
	fromInt, fromIsInt := from.(*types.IntType)
	toInt, toIsInt := t.(*types.IntType)
	_, fromFloat := from.(*types.FloatType)
	_, toFloat := t.(*types.FloatType)

	switch {
	case fromPtr && toIsInt:
		return block.NewPtrToInt(v, t)
	case fromIsInt && toPtr:
		return block.NewIntToPtr(v, t)
	case fromPtr && toPtr:
		return block.NewBitCast(v, t)
	case fromIsInt && toIsInt:
		switch {
		case toInt.BitSize > fromInt.BitSize:
			return block.NewZExt(v, t)
		case toInt.BitSize < fromInt.BitSize:
			return block.NewTrunc(v, t)
		default:
			return v
		}
	case fromIsInt && toFloat:
		return block.NewSIToFP(v, t)
	case fromFloat && toIsInt:
		return block.NewFPToSI(v, t)
	case fromFloat && toFloat:
		// No DC textual type currently resolves to a FloatType (§4.2 lists
		// only integer and pointer forms), so this path is unreachable from
		// TypeFromString today; it is kept so Coerce implements the full
		// matrix the spec describes. Without a reachable narrowing literal
		// to calibrate against, widen unconditionally.
		return block.NewFPExt(v, t)
	default:
		fatalf(line, "unsupported cast from %s to %s", from, t)
		return nil
	}
}
