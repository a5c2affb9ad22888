package dc

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
)

func newTestFrame(name string) *FuncFrame {
	fn := ir.NewFunc(name, types.Void)
	entry := fn.NewBlock("entry")
	return NewFuncFrame(name, fn, entry)
}

func TestNewFuncFrameStartsAtEntry(t *testing.T) {
	f := newTestFrame("foo")
	assert.Same(t, f.Entry, f.Block)
	assert.Nil(t, f.TopIf())
}

func TestFuncFrameIfStack(t *testing.T) {
	f := newTestFrame("foo")
	merge := f.Fn.NewBlock("merge")

	frame := &IfFrame{True: f.Fn.NewBlock("t"), False: f.Fn.NewBlock("e"), Merge: merge}
	f.PushIf(frame)

	assert.Same(t, frame, f.TopIf())

	f.PopIfsTo(merge)
	assert.Nil(t, f.TopIf())
}

func TestFuncFramePopIfsToFlattensElifChain(t *testing.T) {
	f := newTestFrame("foo")
	merge := f.Fn.NewBlock("merge")

	base := &IfFrame{True: f.Fn.NewBlock("t0"), False: f.Fn.NewBlock("e0"), Merge: merge}
	elif1 := &IfFrame{True: f.Fn.NewBlock("t1"), False: f.Fn.NewBlock("e1"), Merge: merge, IsElif: true}
	elif2 := &IfFrame{True: f.Fn.NewBlock("t2"), False: f.Fn.NewBlock("e2"), Merge: merge, IsElif: true}

	f.PushIf(base)
	f.PushIf(elif1)
	f.PushIf(elif2)

	f.PopIfsTo(merge)

	assert.Nil(t, f.TopIf())
}

func TestFuncFramePopIfsToStopsAtMatchingMergeOnly(t *testing.T) {
	f := newTestFrame("foo")
	outerMerge := f.Fn.NewBlock("outerMerge")
	innerMerge := f.Fn.NewBlock("innerMerge")

	outer := &IfFrame{True: f.Fn.NewBlock("ot"), False: f.Fn.NewBlock("oe"), Merge: outerMerge}
	inner := &IfFrame{True: f.Fn.NewBlock("it"), False: f.Fn.NewBlock("ie"), Merge: innerMerge}

	f.PushIf(outer)
	f.PushIf(inner)

	f.PopIfsTo(innerMerge)

	assert.Same(t, outer, f.TopIf())
}

func TestNextLabelIncludesFunctionNameAndIncrements(t *testing.T) {
	f := newTestFrame("add")
	assert.Equal(t, "addLabel0True", f.NextLabel("True"))
	assert.Equal(t, "addLabel1False", f.NextLabel("False"))
	assert.Equal(t, "addLabel2Merge", f.NextLabel("Merge"))
}

func TestHasTerminator(t *testing.T) {
	f := newTestFrame("foo")
	assert.False(t, hasTerminator(f.Block))

	f.Block.NewRet(nil)
	assert.True(t, hasTerminator(f.Block))
}

func TestBranchIfUnterminatedSkipsTerminatedBlocks(t *testing.T) {
	f := newTestFrame("foo")
	target := f.Fn.NewBlock("target")

	f.Block.NewRet(nil)
	branchIfUnterminated(f.Block, target)
	assert.IsType(t, &ir.TermRet{}, f.Block.Term)
}

func TestBranchIfUnterminatedBranchesOpenBlocks(t *testing.T) {
	f := newTestFrame("foo")
	target := f.Fn.NewBlock("target")

	branchIfUnterminated(f.Block, target)
	assert.IsType(t, &ir.TermBr{}, f.Block.Term)
}

func TestMoveBlockToEndReordersBlockList(t *testing.T) {
	f := newTestFrame("foo")
	mid := f.Fn.NewBlock("mid")
	last := f.Fn.NewBlock("last")

	moveBlockToEnd(f.Fn, f.Entry)

	assert.Equal(t, []*ir.Block{mid, last, f.Entry}, f.Fn.Blocks)
}
