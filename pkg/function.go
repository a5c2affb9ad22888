package dc

import (
	"fmt"

	"github.com/llir/llvm/ir"
)

// IfFrame is the §3 If-Statement Frame: the three blocks an if/elif/else/fi
// chain shares, plus whether this link of the chain is an elif continuation.
type IfFrame struct {
	True   *ir.Block
	False  *ir.Block
	Merge  *ir.Block
	IsElif bool
}

// FuncFrame is the §3 Function Frame: everything the emitter needs to keep
// mutating one function body. Raw is the un-mangled source name, kept for
// the all-functions list's demangled-lookup scan (§4.4).
type FuncFrame struct {
	Raw     string
	Mangled string
	Fn      *ir.Func
	Entry   *ir.Block
	Block   *ir.Block
	Vars    *VarTable
	Ifs     []*IfFrame
	labelNo int
}

// NewFuncFrame starts a frame for a freshly created function, with the
// insertion point at its entry block.
func NewFuncFrame(raw string, fn *ir.Func, entry *ir.Block) *FuncFrame {
	return &FuncFrame{
		Raw:   raw,
		Fn:    fn,
		Entry: entry,
		Block: entry,
		Vars:  NewVarTable(),
	}
}

// PushIf opens a new if-frame for this function and returns it.
func (f *FuncFrame) PushIf(frame *IfFrame) {
	f.Ifs = append(f.Ifs, frame)
}

// TopIf returns the innermost active if-frame, or nil if none is open.
func (f *FuncFrame) TopIf() *IfFrame {
	if len(f.Ifs) == 0 {
		return nil
	}
	return f.Ifs[len(f.Ifs)-1]
}

// PopIfsTo removes every if-frame from the top of the stack that shares
// merge, stopping at the first one that doesn't (an enclosing, unrelated
// if-chain). Every link of one if/elif/.../fi chain carries the same merge
// (elif forwards it unchanged), so this flattens the whole chain in one
// call, per §4.4.
func (f *FuncFrame) PopIfsTo(merge *ir.Block) {
	for len(f.Ifs) > 0 {
		top := f.Ifs[len(f.Ifs)-1]
		if top.Merge != merge {
			return
		}
		f.Ifs = f.Ifs[:len(f.Ifs)-1]
	}
}

// NextLabel allocates the next auto-generated block name for this function:
// "<function-name>Label<N><suffix>", per §4.4's block-label rule.
func (f *FuncFrame) NextLabel(suffix string) string {
	n := f.labelNo
	f.labelNo++
	return fmt.Sprintf("%sLabel%d%s", f.Raw, n, suffix)
}

// hasTerminator reports whether block already ends in a terminator
// instruction. The if/elif/else/fi handlers must check this before
// inserting a branch (§5, §9): double-terminating a block is invalid IR.
func hasTerminator(block *ir.Block) bool {
	return block.Term != nil
}

// branchIfUnterminated emits an unconditional branch from block to target
// only if block does not already end in a terminator. This is the one
// "check for a terminator before inserting one" primitive §9 calls out as
// essential, used throughout the if/elif/else/fi handlers.
func branchIfUnterminated(block, target *ir.Block) {
	if !hasTerminator(block) {
		block.NewBr(target)
	}
}

// moveBlockToEnd relocates block to the end of fn's block list. fi uses
// this to keep a chain's merge block textually after every true/false
// block the chain created, per §4.4's "move merge to be after the current
// last block of the function."
func moveBlockToEnd(fn *ir.Func, block *ir.Block) {
	for i, b := range fn.Blocks {
		if b == block {
			fn.Blocks = append(fn.Blocks[:i], fn.Blocks[i+1:]...)
			break
		}
	}
	fn.Blocks = append(fn.Blocks, block)
}
