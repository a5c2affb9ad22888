package dc

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// parseEscapeSequences expands \n \r \0 \\ in a string or char literal's
// inner text; any other backslash sequence is left as a literal backslash
// followed by the next character. Grounded verbatim on
// original_source/src/compiler.cpp's parseEscapeSequences — only those four
// escapes exist in DC, not the usual C table.
func parseEscapeSequences(input string) string {
	var b strings.Builder
	for i := 0; i < len(input); i++ {
		if input[i] == '\\' && i+1 < len(input) {
			switch input[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
			case 'r':
				b.WriteByte('\r')
				i++
			case '0':
				b.WriteByte(0)
				i++
			case '\\':
				b.WriteByte('\\')
				i++
			default:
				b.WriteByte(input[i])
			}
			continue
		}
		b.WriteByte(input[i])
	}
	return b.String()
}

// globalStringCounter gives each emitted string constant a distinct module
// name; reset per Compilation.
var globalStringCounter int

// newGlobalStringPtr materializes text (escapes already expanded, NUL
// terminator appended for C-call compatibility) as a module-level constant
// array and returns an i8* to its first byte, mirroring
// llvm::IRBuilder::CreateGlobalStringPtr's effect using llir/llvm's
// explicit constant.NewGetElementPtr form (see pkg/builtin.go in the
// teacher for the GEP-on-global idiom this is lifted from).
func newGlobalStringPtr(mod *ir.Module, block *ir.Block, text string) value.Value {
	withNul := text + "\x00"
	data := constant.NewCharArrayFromString(withNul)

	globalStringCounter++
	name := fmt.Sprintf(".str.%d", globalStringCounter)
	g := mod.NewGlobalDef(name, data)
	g.Immutable = true

	arrType := types.NewArray(uint64(len(withNul)), types.I8)
	zero := constant.NewInt(types.I32, 0)
	return block.NewGetElementPtr(arrType, g, zero, zero)
}
