package dc

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, src string) *Compilation {
	t.Helper()
	toks := NewLexer(src, 0).Lex()
	comp := NewCompilation("test")
	err := comp.Emit(toks)
	require.NoError(t, err)
	return comp
}

func findFunc(comp *Compilation, name string) *ir.Func {
	for _, f := range comp.Mod.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

func TestEmitExternDeclaresVariadicFunction(t *testing.T) {
	comp := compileSource(t, `extern i32 printf str vararg ;`)

	fn := findFunc(comp, "printf")
	if assert.NotNil(t, fn) {
		assert.True(t, fn.Sig.Variadic)
		assert.Len(t, fn.Params, 1)
	}
}

func TestEmitContextDefinesAndMangles(t *testing.T) {
	comp := compileSource(t, `
context add i32 a i32 b -> i32 ;
return a ;
context ;
`)

	assert.Nil(t, findFunc(comp, "add"), "non-main contexts must be mangled")
	require.Len(t, comp.AllFuncs, 1)
	assert.NotEqual(t, "add", comp.AllFuncs[0].Mangled)
	assert.NotNil(t, findFunc(comp, comp.AllFuncs[0].Mangled))
}

func TestEmitContextMainIsNeverMangled(t *testing.T) {
	comp := compileSource(t, `
context main -> i32 ;
return 0 ;
context ;
`)

	assert.NotNil(t, findFunc(comp, "main"))
}

func TestEmitContextNomangleKeepsRawName(t *testing.T) {
	comp := compileSource(t, `
context #nomangle alloc ptr size -> ptr ;
return size ;
context ;
`)

	assert.NotNil(t, findFunc(comp, "alloc"))
}

func TestEmitContextWithoutTerminatorFatals(t *testing.T) {
	toks := NewLexer(`
context main -> i32 ;
declare i32 x ;
context ;
`, 0).Lex()

	comp := NewCompilation("test")
	err := comp.Emit(toks)
	require.Error(t, err)

	ce, ok := err.(*CompileError)
	assert.True(t, ok)
	assert.Contains(t, ce.Message, "missing a terminator")
}

func TestEmitDeclareAssignReturnProducesExpectedInstructions(t *testing.T) {
	comp := compileSource(t, `
context main -> i32 ;
declare i32 x ;
assign x = 1 + 2 ;
return x ;
context ;
`)

	fn := findFunc(comp, "main")
	require.NotNil(t, fn)
	require.Len(t, fn.Blocks, 1)

	entry := fn.Blocks[0]
	assert.IsType(t, &ir.TermRet{}, entry.Term)

	var sawAlloca, sawAdd, sawStore, sawLoad bool
	for _, inst := range entry.Insts {
		switch inst.(type) {
		case *ir.InstAlloca:
			sawAlloca = true
		case *ir.InstAdd:
			sawAdd = true
		case *ir.InstStore:
			sawStore = true
		case *ir.InstLoad:
			sawLoad = true
		}
	}
	assert.True(t, sawAlloca)
	assert.True(t, sawAdd)
	assert.True(t, sawStore)
	assert.True(t, sawLoad)
}

func TestEmitIfElseFiTerminatesEveryBlock(t *testing.T) {
	comp := compileSource(t, `
context main -> i32 ;
declare i32 x ;
assign x = 0 ;
if x == 0 ;
assign x = 1 ;
else ;
assign x = 2 ;
fi ;
return x ;
context ;
`)

	fn := findFunc(comp, "main")
	require.NotNil(t, fn)

	for _, b := range fn.Blocks {
		assert.NotNil(t, b.Term, "block %s has no terminator", b.Name())
	}
}

func TestEmitIfElifElseFiChainMergesOnce(t *testing.T) {
	comp := compileSource(t, `
context main -> i32 ;
declare i32 x ;
assign x = 0 ;
if x == 0 ;
assign x = 1 ;
elif x == 1 ;
assign x = 2 ;
else ;
assign x = 3 ;
fi ;
return x ;
context ;
`)

	fn := findFunc(comp, "main")
	require.NotNil(t, fn)

	for _, b := range fn.Blocks {
		assert.NotNil(t, b.Term, "block %s has no terminator", b.Name())
	}

	frame := comp.AllFuncs[len(comp.AllFuncs)-1]
	assert.Nil(t, frame.TopIf(), "fi must flatten the whole chain")
}

func TestEmitCallResolvesMangledCallee(t *testing.T) {
	comp := compileSource(t, `
context add i32 a i32 b -> i32 ;
return a ;
context ;
context main -> i32 ;
declare i32 result ;
add(1, 2) -> result ;
return result ;
context ;
`)

	main := findFunc(comp, "main")
	require.NotNil(t, main)

	var sawCall bool
	for _, b := range main.Blocks {
		for _, inst := range b.Insts {
			if _, ok := inst.(*ir.InstCall); ok {
				sawCall = true
			}
		}
	}
	assert.True(t, sawCall)
}

func TestEmitCallUndefinedReferenceFatals(t *testing.T) {
	toks := NewLexer(`
context main -> i32 ;
missing() ;
return 0 ;
context ;
`, 0).Lex()

	comp := NewCompilation("test")
	err := comp.Emit(toks)
	require.Error(t, err)
	ce := err.(*CompileError)
	assert.Contains(t, ce.Message, "undefined reference")
}

func TestEmitDerefLoadsThroughPointer(t *testing.T) {
	comp := compileSource(t, `
context #nomangle deref_test i32* p -> i32 ;
declare i32 out ;
deref p -> out ;
return out ;
context ;
`)

	fn := findFunc(comp, "deref_test")
	require.NotNil(t, fn)

	var loads int
	for _, inst := range fn.Blocks[0].Insts {
		if _, ok := inst.(*ir.InstLoad); ok {
			loads++
		}
	}
	assert.GreaterOrEqual(t, loads, 2)
}

func TestEmitArrayStoresThroughGetElementPtr(t *testing.T) {
	comp := compileSource(t, `
context #nomangle array_test i32* arr -> void ;
array arr 0 = 7 ;
return ;
context ;
`)

	fn := findFunc(comp, "array_test")
	require.NotNil(t, fn)

	var sawGEP bool
	for _, inst := range fn.Blocks[0].Insts {
		if _, ok := inst.(*ir.InstGetElementPtr); ok {
			sawGEP = true
		}
	}
	assert.True(t, sawGEP)
}

func TestEmitStatementOutsideFunctionFatals(t *testing.T) {
	toks := NewLexer(`declare i32 x ;`, 0).Lex()
	comp := NewCompilation("test")
	err := comp.Emit(toks)
	require.Error(t, err)
	ce := err.(*CompileError)
	assert.Contains(t, ce.Message, "outside of a function body")
}
