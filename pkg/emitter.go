package dc

import (
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Compilation is the single piece of global emission state §9 calls for: the
// module under construction, the token cursor, the stack of function frames
// currently being emitted, and the flat list of every function ever
// defined. It replaces the ambient-singleton style the teacher's own
// LLVMIRBuilder uses with one value threaded explicitly into every
// statement handler.
type Compilation struct {
	Mod        *ir.Module
	ModuleName string

	Stream *TokenStream
	Frames []*FuncFrame

	// AllFuncs holds one entry per emitted context definition, append-only,
	// used for the demangle-then-compare call resolution of §4.4.
	AllFuncs []*FuncFrame

	funcsByName map[string]*ir.Func
}

// NewCompilation starts a fresh module. moduleName feeds the mangling
// scheme's module-identifier field (§4.4).
func NewCompilation(moduleName string) *Compilation {
	return &Compilation{
		Mod:         ir.NewModule(),
		ModuleName:  moduleName,
		funcsByName: make(map[string]*ir.Func),
	}
}

// Emit runs the statement dispatcher over toks to completion, returning the
// first CompileError encountered (§7's fail-fast contract: there is no
// recovery, so the first error ends the run).
func (c *Compilation) Emit(toks []Token) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CompileError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()

	c.Stream = NewTokenStream(toks)
	for !c.Stream.Peek().IsEOF() {
		c.emitStatement()
	}
	return nil
}

func (c *Compilation) emitStatement() {
	t := c.Stream.Peek()
	switch t.Kind {
	case KindKeyword:
		switch t.Text {
		case "extern":
			c.emitExtern()
		case "context":
			c.emitContext()
		case "declare":
			c.emitDeclare()
		case "assign":
			c.emitAssign()
		case "deref":
			c.emitDeref()
		case "array":
			c.emitArray()
		case "if":
			c.emitIf()
		case "elif":
			c.emitElif()
		case "else":
			c.emitElse()
		case "fi":
			c.emitFi()
		case "return":
			c.emitReturn()
		default:
			fatalf(t.Line, "unexpected keyword: %s", t.Text)
		}
	case KindIdentifier:
		c.emitCall()
	default:
		fatalf(t.Line, "unexpected token: %s", t.Text)
	}
}

func (c *Compilation) top() *FuncFrame {
	if len(c.Frames) == 0 {
		return nil
	}
	return c.Frames[len(c.Frames)-1]
}

func (c *Compilation) requireFrame(line int) *FuncFrame {
	f := c.top()
	if f == nil {
		fatalf(line, "statement outside of a function body")
	}
	return f
}

func (c *Compilation) lookupVar(frame *FuncFrame, tok Token) *Variable {
	v := frame.Vars.Lookup(tok.Text)
	if v == nil {
		fatalf(tok.Line, "unknown variable: %s", tok.Text)
	}
	return v
}

func (c *Compilation) expect(kind Kind, what string) Token {
	t := c.Stream.Next()
	if t.Kind != kind {
		fatalf(t.Line, "expected %s", what)
	}
	return t
}

func (c *Compilation) expectOperator(text string, line int) Token {
	t := c.Stream.Next()
	if t.Kind != KindOperator || t.Text != text {
		fatalf(line, "expected operator %q", text)
	}
	return t
}

func (c *Compilation) expectCmp() Token {
	t := c.Stream.Next()
	if t.Kind != KindOperator || !stopOperators[t.Text] {
		fatalf(t.Line, "unknown operator")
	}
	return t
}

func cmpPredicate(text string, line int) enum.IPred {
	switch text {
	case "==":
		return enum.IPredEQ
	case "!=":
		return enum.IPredNE
	case ">":
		return enum.IPredSGT
	case "<":
		return enum.IPredSLT
	case ">=":
		return enum.IPredSGE
	case "<=":
		return enum.IPredSLE
	default:
		fatalf(line, "unknown operator: %s", text)
		return 0
	}
}

// emitExtern handles "extern <ret> <name> <arg-type>* [vararg] ;" (§4.4).
func (c *Compilation) emitExtern() {
	c.Stream.Next() // "extern"
	retTok := c.expect(KindType, "return type")
	ret := TypeFromString(retTok.Text, retTok.Line)
	nameTok := c.expect(KindIdentifier, "function name")

	var argTypes []types.Type
	vararg := false
	for c.Stream.Peek().Kind != KindSemicolon {
		t := c.Stream.Next()
		if t.Kind == KindIdentifier && t.Text == "vararg" {
			vararg = true
			continue
		}
		if t.Kind != KindType {
			fatalf(t.Line, "expected argument type")
		}
		argTypes = append(argTypes, TypeFromString(t.Text, t.Line))
	}
	c.Stream.Next() // ";"

	var params []*ir.Param
	for _, at := range argTypes {
		params = append(params, ir.NewParam("", at))
	}
	fn := c.Mod.NewFunc(nameTok.Text, ret, params...)
	fn.Sig.Variadic = vararg
	c.funcsByName[nameTok.Text] = fn
}

// emitContext handles both "context <name> ... -> <ret> ;" (open a function)
// and the bare "context ;" that pops it (§4.4, §3).
func (c *Compilation) emitContext() {
	kw := c.Stream.Next() // "context"

	if c.Stream.Peek().Kind == KindSemicolon {
		c.Stream.Next()
		c.popFunc(kw.Line)
		return
	}

	nomangle := false
	if c.Stream.Peek().Kind == KindIdentifier && c.Stream.Peek().Text == "#nomangle" {
		c.Stream.Next()
		nomangle = true
	}

	nameTok := c.expect(KindIdentifier, "function name")
	raw := nameTok.Text

	var paramNames []string
	var paramTypes []types.Type
	for c.Stream.Peek().Kind == KindType {
		typeTok := c.Stream.Next()
		t := TypeFromString(typeTok.Text, typeTok.Line)
		pNameTok := c.expect(KindIdentifier, "parameter name")
		paramNames = append(paramNames, pNameTok.Text)
		paramTypes = append(paramTypes, t)
	}

	c.expect(KindArrow, "\"->\"")
	retTok := c.expect(KindType, "return type")
	ret := TypeFromString(retTok.Text, retTok.Line)
	c.expect(KindSemicolon, "\";\"")

	finalName := raw
	if raw != "main" && !nomangle {
		finalName = mangle(raw, c.ModuleName, ret, paramTypes)
	}

	var irParams []*ir.Param
	for i, pt := range paramTypes {
		irParams = append(irParams, ir.NewParam(paramNames[i], pt))
	}
	fn := c.Mod.NewFunc(finalName, ret, irParams...)
	entry := fn.NewBlock("entry")

	frame := NewFuncFrame(raw, fn, entry)
	frame.Mangled = finalName

	for i, pt := range paramTypes {
		slot := entry.NewAlloca(pt)
		entry.NewStore(fn.Params[i], slot)
		frame.Vars.Declare(paramNames[i], &Variable{Name: paramNames[i], Type: pt, Alloc: slot})
	}

	c.Frames = append(c.Frames, frame)
	c.AllFuncs = append(c.AllFuncs, frame)
	c.funcsByName[finalName] = fn
}

func (c *Compilation) popFunc(line int) {
	frame := c.requireFrame(line)
	if !hasTerminator(frame.Block) {
		fatalf(line, "function %s is missing a terminator", frame.Raw)
	}
	c.Frames = c.Frames[:len(c.Frames)-1]
}

// emitDeclare handles "declare <type> <name> ;".
func (c *Compilation) emitDeclare() {
	kw := c.Stream.Next() // "declare"
	typeTok := c.expect(KindType, "type")
	t := TypeFromString(typeTok.Text, typeTok.Line)
	nameTok := c.expect(KindIdentifier, "variable name")
	c.expect(KindSemicolon, "\";\"")

	frame := c.requireFrame(kw.Line)
	slot := frame.Block.NewAlloca(t)
	frame.Vars.Declare(nameTok.Text, &Variable{Name: nameTok.Text, Type: t, Alloc: slot})
}

// emitReturn handles "return [<expression>] ;".
func (c *Compilation) emitReturn() {
	kw := c.Stream.Next() // "return"
	frame := c.requireFrame(kw.Line)

	if c.Stream.Peek().Kind == KindSemicolon {
		c.Stream.Next()
		frame.Block.NewRet(nil)
		return
	}

	retType := frame.Fn.Sig.RetType
	v := EvalExpr(c.Stream, frame.Block, frame.Vars, retType, "")
	c.expect(KindSemicolon, "\";\"")
	v = Coerce(frame.Block, v, retType, kw.Line)
	frame.Block.NewRet(v)
}

// emitAssign handles "assign [<strong-type>] [ptr <pointee-type>] <name> =
// <expression> ;" and its "assign <name> -> <other-name> ;" address-of form
// (§4.4).
func (c *Compilation) emitAssign() {
	kw := c.Stream.Next() // "assign"
	frame := c.requireFrame(kw.Line)

	var typeToks []Token
	for c.Stream.Peek().Kind == KindType {
		typeToks = append(typeToks, c.Stream.Next())
	}

	var strongType types.Type
	var ptrPointee types.Type
	hasPtrPrefix := false

	switch len(typeToks) {
	case 0:
	case 1:
		strongType = TypeFromString(typeToks[0].Text, typeToks[0].Line)
	case 2:
		if typeToks[0].Text != "ptr" || typeToks[0].PointerCount != 0 {
			fatalf(typeToks[0].Line, "unexpected type sequence in assign")
		}
		hasPtrPrefix = true
		ptrPointee = TypeFromString(typeToks[1].Text, typeToks[1].Line)
	case 3:
		strongType = TypeFromString(typeToks[0].Text, typeToks[0].Line)
		if typeToks[1].Text != "ptr" || typeToks[1].PointerCount != 0 {
			fatalf(typeToks[1].Line, "expected ptr prefix")
		}
		hasPtrPrefix = true
		ptrPointee = TypeFromString(typeToks[2].Text, typeToks[2].Line)
	default:
		fatalf(typeToks[0].Line, "unexpected type sequence in assign")
	}

	nameTok := c.expect(KindIdentifier, "variable name")
	dst := c.lookupVar(frame, nameTok)

	if c.Stream.Peek().Kind == KindArrow {
		c.Stream.Next()
		otherTok := c.expect(KindIdentifier, "variable name")
		c.expect(KindSemicolon, "\";\"")
		other := c.lookupVar(frame, otherTok)
		frame.Block.NewStore(other.Alloc, dst.Alloc)
		return
	}

	c.expectOperator("=", kw.Line)

	preferred := strongType
	if preferred == nil {
		preferred = dst.Type
	}

	if hasPtrPrefix {
		v := EvalExpr(c.Stream, frame.Block, frame.Vars, preferred, "")
		c.expect(KindSemicolon, "\";\"")
		v = Coerce(frame.Block, v, ptrPointee, kw.Line)
		target := frame.Block.NewLoad(dst.Type, dst.Alloc)
		frame.Block.NewStore(v, target)
		return
	}

	v := EvalExpr(c.Stream, frame.Block, frame.Vars, preferred, "")
	c.expect(KindSemicolon, "\";\"")
	v = Coerce(frame.Block, v, dst.Type, kw.Line)
	frame.Block.NewStore(v, dst.Alloc)
}

// emitDeref handles "deref <ptr-name> -> <dest-name> ;".
func (c *Compilation) emitDeref() {
	kw := c.Stream.Next() // "deref"
	ptrTok := c.expect(KindIdentifier, "pointer variable")
	c.expect(KindArrow, "\"->\"")
	destTok := c.expect(KindIdentifier, "destination variable")
	c.expect(KindSemicolon, "\";\"")

	frame := c.requireFrame(kw.Line)
	ptrVar := c.lookupVar(frame, ptrTok)
	destVar := c.lookupVar(frame, destTok)

	ptr := frame.Block.NewLoad(ptrVar.Type, ptrVar.Alloc)
	v := frame.Block.NewLoad(destVar.Type, ptr)
	frame.Block.NewStore(v, destVar.Alloc)
}

// emitArray handles "array <name> <index-expr> = <value-expr> ;" and
// "array <name> <index-expr> -> <dest-name> ;" (§4.4).
func (c *Compilation) emitArray() {
	kw := c.Stream.Next() // "array"
	nameTok := c.expect(KindIdentifier, "array variable")
	frame := c.requireFrame(kw.Line)
	v := c.lookupVar(frame, nameTok)

	pt, ok := v.Type.(*types.PointerType)
	if !ok {
		fatalf(nameTok.Line, "array target is not a pointer: %s", nameTok.Text)
	}
	elemType := pt.ElemType

	idx := EvalExpr(c.Stream, frame.Block, frame.Vars, types.I32, "=")
	base := frame.Block.NewLoad(v.Type, v.Alloc)
	gep := frame.Block.NewGetElementPtr(elemType, base, idx)

	if c.Stream.Peek().Kind == KindArrow {
		c.Stream.Next()
		destTok := c.expect(KindIdentifier, "destination variable")
		c.expect(KindSemicolon, "\";\"")
		dest := c.lookupVar(frame, destTok)
		loaded := frame.Block.NewLoad(elemType, gep)
		frame.Block.NewStore(loaded, dest.Alloc)
		return
	}

	c.expectOperator("=", kw.Line)
	val := EvalExpr(c.Stream, frame.Block, frame.Vars, elemType, "")
	c.expect(KindSemicolon, "\";\"")
	val = Coerce(frame.Block, val, elemType, kw.Line)
	frame.Block.NewStore(val, gep)
}

// emitIf handles "if <LHS> <cmp> <RHS> ;" (§4.4).
func (c *Compilation) emitIf() {
	kw := c.Stream.Next() // "if"
	frame := c.requireFrame(kw.Line)

	lhs := EvalExpr(c.Stream, frame.Block, frame.Vars, types.I32, "")
	cmpTok := c.expectCmp()
	rhs := EvalExpr(c.Stream, frame.Block, frame.Vars, types.I32, "")
	c.expect(KindSemicolon, "\";\"")

	rhs = Coerce(frame.Block, rhs, lhs.Type(), cmpTok.Line)
	pred := cmpPredicate(cmpTok.Text, cmpTok.Line)
	cond := frame.Block.NewICmp(pred, lhs, rhs)

	trueBlk := frame.Fn.NewBlock(frame.NextLabel("true"))
	falseBlk := frame.Fn.NewBlock(frame.NextLabel("false"))
	mergeBlk := frame.Fn.NewBlock(frame.NextLabel("merge"))

	frame.Block.NewCondBr(cond, trueBlk, falseBlk)
	frame.Block = trueBlk
	frame.PushIf(&IfFrame{True: trueBlk, False: falseBlk, Merge: mergeBlk})
}

// emitElif handles "elif <LHS> <cmp> <RHS> ;". Precondition: the insertion
// point is the previous frame's false block (§4.4) — the true branch's
// body statements left the insertion point sitting in the previous frame's
// true block, so elif moves it to the false block itself before evaluating
// its own condition there.
func (c *Compilation) emitElif() {
	kw := c.Stream.Next() // "elif"
	frame := c.requireFrame(kw.Line)
	top := frame.TopIf()
	if top == nil {
		fatalf(kw.Line, "elif with no open if")
	}
	frame.Block = top.False

	lhs := EvalExpr(c.Stream, frame.Block, frame.Vars, types.I32, "")
	cmpTok := c.expectCmp()
	rhs := EvalExpr(c.Stream, frame.Block, frame.Vars, types.I32, "")
	c.expect(KindSemicolon, "\";\"")

	rhs = Coerce(frame.Block, rhs, lhs.Type(), cmpTok.Line)
	pred := cmpPredicate(cmpTok.Text, cmpTok.Line)
	cond := frame.Block.NewICmp(pred, lhs, rhs)

	newTrue := frame.Fn.NewBlock(frame.NextLabel("true"))
	newFalse := frame.Fn.NewBlock(frame.NextLabel("false"))

	branchIfUnterminated(top.True, top.Merge)

	frame.Block.NewCondBr(cond, newTrue, newFalse)
	frame.Block = newTrue

	frame.PushIf(&IfFrame{True: newTrue, False: newFalse, Merge: top.Merge, IsElif: true})
}

// emitElse handles "else ;". §9 notes the literal terminator check here is
// on merge (always empty, so the branch always fires) rather than on the
// current insertion block, and leaves either reading as acceptable; this
// checks the current block instead, which also covers a true branch that
// already ended in its own return or nested terminator.
func (c *Compilation) emitElse() {
	kw := c.Stream.Next() // "else"
	c.expect(KindSemicolon, "\";\"")

	frame := c.requireFrame(kw.Line)
	top := frame.TopIf()
	if top == nil {
		fatalf(kw.Line, "else with no open if")
	}

	branchIfUnterminated(frame.Block, top.Merge)
	frame.Block = top.False
}

// emitFi handles "fi ;" (§4.4): closes out the if/elif/.../fi chain sharing
// top's merge block, flattening every frame whose merge matches it.
func (c *Compilation) emitFi() {
	kw := c.Stream.Next() // "fi"
	c.expect(KindSemicolon, "\";\"")

	frame := c.requireFrame(kw.Line)
	top := frame.TopIf()
	if top == nil {
		fatalf(kw.Line, "fi with no open if")
	}
	merge := top.Merge

	branchIfUnterminated(frame.Block, merge)
	frame.Block = top.False
	branchIfUnterminated(frame.Block, merge)

	moveBlockToEnd(frame.Fn, merge)
	frame.PopIfsTo(merge)
	frame.Block = merge

	if enclosing := frame.TopIf(); enclosing != nil {
		branchIfUnterminated(merge, enclosing.Merge)
	}
}

// emitCall handles a bare identifier at statement position: a function
// call, with an optional "-> <dest>" result capture (§4.4).
func (c *Compilation) emitCall() {
	nameTok := c.Stream.Next() // identifier
	frame := c.requireFrame(nameTok.Line)
	c.expect(KindLParen, "\"(\"")

	var args []value.Value
	for c.Stream.Peek().Kind != KindRParen {
		t := c.Stream.Next()
		switch t.Kind {
		case KindString:
			inner := t.Text[1 : len(t.Text)-1]
			expanded := parseEscapeSequences(inner)
			args = append(args, newGlobalStringPtr(c.Mod, frame.Block, expanded))
		case KindLiteral:
			if t.Text[0] == '\'' {
				args = append(args, constant.NewInt(types.I8, charByteValue(t.Text)))
			} else {
				n, perr := strconv.ParseInt(t.Text, 10, 64)
				if perr != nil {
					fatalf(t.Line, "invalid numeric literal: %s", t.Text)
				}
				args = append(args, constant.NewInt(types.I32, n))
			}
		case KindIdentifier:
			v := c.lookupVar(frame, t)
			args = append(args, frame.Block.NewLoad(v.Type, v.Alloc))
		default:
			fatalf(t.Line, "unexpected token in call arguments: %s", t.Text)
		}
		if c.Stream.Peek().Kind == KindComma {
			c.Stream.Next()
		}
	}
	c.expect(KindRParen, "\")\"")

	fn := c.resolveCallee(nameTok)
	result := frame.Block.NewCall(fn, args...)

	if c.Stream.Peek().Kind == KindArrow {
		c.Stream.Next()
		destTok := c.expect(KindIdentifier, "destination variable")
		dest := c.lookupVar(frame, destTok)
		frame.Block.NewStore(result, dest.Alloc)
	}
	c.expect(KindSemicolon, "\";\"")
}

// resolveCallee implements §4.4's call-resolution rule: main resolves to
// main; otherwise scan AllFuncs, demangle each, and take the first whose
// demangled form equals the digit/underscore-stripped raw name; failing
// that, try the raw name directly (covers extern declarations).
func (c *Compilation) resolveCallee(nameTok Token) *ir.Func {
	raw := nameTok.Text
	calleeName := raw

	if raw != "main" {
		for _, f := range c.AllFuncs {
			if demangledNameMatches(f.Mangled, raw) {
				calleeName = f.Mangled
				break
			}
		}
	}

	fn, ok := c.funcsByName[calleeName]
	if !ok {
		fatalf(nameTok.Line, "undefined reference to function: %s", raw)
	}
	return fn
}
