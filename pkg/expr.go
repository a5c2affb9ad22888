package dc

import (
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// captureExprWindow reads from stream until one of §4.3's stop conditions,
// without consuming the stop token, and returns the captured tokens.
// extraStop, when non-empty, is an additional operator spelling that stops
// the window (used by array to stop an index expression at "=").
func captureExprWindow(stream *TokenStream, extraStop string) []Token {
	var toks []Token
	for {
		t := stream.Peek()
		if t.IsEOF() || t.Kind == KindSemicolon || t.Kind == KindArrow {
			return toks
		}
		if t.Kind == KindOperator && (stopOperators[t.Text] || (extraStop != "" && t.Text == extraStop)) {
			return toks
		}
		toks = append(toks, stream.Next())
	}
}

// charByteValue returns the byte value a character literal's quoted text
// denotes ('a' -> 97). Used by the single-token path of §4.3, which wants
// the literal's real byte value.
func charByteValue(text string) int64 {
	if len(text) < 3 {
		return 0
	}
	inner := text[1 : len(text)-1]
	unescaped := parseEscapeSequences(inner)
	if unescaped == "" {
		return 0
	}
	return int64(unescaped[0])
}

// charDigitValue is the multi-token path's char-literal handling: it
// contributes `c - '0'` instead of the byte value. This is a quirk
// preserved verbatim from the source system rather than "fixed" — see
// SPEC_FULL.md Expansion D.2 and §9's Open Questions.
func charDigitValue(text string) int64 {
	if len(text) < 3 {
		return 0
	}
	return int64(text[1]) - int64('0')
}

// literalIntType returns preferred if it is an integer type, else falls
// back to i32 (§4.3's documented default). Non-integer preferred types show
// up when, e.g., a pointer variable is assigned a bare literal with no
// explicit strong type.
func literalIntType(preferred types.Type) *types.IntType {
	if it, ok := preferred.(*types.IntType); ok {
		return it
	}
	return types.I32
}

// EvalExpr evaluates the token window up to the next stop condition and
// returns the resulting IR value, emitting instructions into block as it
// goes. preferred sizes any bare integer or char literal; the evaluator
// never coerces operands to each other — that is the caller's job via
// Coerce.
func EvalExpr(stream *TokenStream, block *ir.Block, vars *VarTable, preferred types.Type, extraStop string) value.Value {
	toks := captureExprWindow(stream, extraStop)
	if len(toks) == 0 {
		fatalf(stream.Peek().Line, "expected expression")
	}

	if len(toks) == 1 {
		return evalSingleToken(toks[0], block, vars, preferred)
	}
	return evalShuntingYard(toks, block, vars, preferred)
}

func evalSingleToken(t Token, block *ir.Block, vars *VarTable, preferred types.Type) value.Value {
	switch t.Kind {
	case KindLiteral:
		if t.Text[0] == '\'' {
			return constant.NewInt(types.I8, charByteValue(t.Text))
		}
		n, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			fatalf(t.Line, "invalid numeric literal: %s", t.Text)
		}
		return constant.NewInt(literalIntType(preferred), n)
	case KindIdentifier:
		v := vars.Lookup(t.Text)
		if v == nil {
			fatalf(t.Line, "unknown variable: %s", t.Text)
		}
		return block.NewLoad(v.Type, v.Alloc)
	default:
		fatalf(t.Line, "unexpected token in expression: %s", t.Text)
		return nil
	}
}

func precedence(op string) int {
	switch op {
	case "*", "/":
		return 2
	case "+", "-":
		return 1
	default:
		return 0
	}
}

// evalShuntingYard implements §4.3's multi-token path: a two-stack
// operator-precedence evaluation over + - * /, with parenthesis grouping.
func evalShuntingYard(toks []Token, block *ir.Block, vars *VarTable, preferred types.Type) value.Value {
	var values []value.Value
	var ops []string

	applyTop := func() {
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		rhs := values[len(values)-1]
		lhs := values[len(values)-2]
		values = values[:len(values)-2]
		values = append(values, applyOp(block, op, lhs, rhs))
	}

	pushOperand := func(t Token) {
		switch t.Kind {
		case KindLiteral:
			if t.Text[0] == '\'' {
				values = append(values, constant.NewInt(types.I8, charDigitValue(t.Text)))
			} else {
				n, err := strconv.ParseInt(t.Text, 10, 64)
				if err != nil {
					fatalf(t.Line, "invalid numeric literal: %s", t.Text)
				}
				values = append(values, constant.NewInt(literalIntType(preferred), n))
			}
		case KindIdentifier:
			v := vars.Lookup(t.Text)
			if v == nil {
				fatalf(t.Line, "unknown variable: %s", t.Text)
			}
			values = append(values, block.NewLoad(v.Type, v.Alloc))
		default:
			fatalf(t.Line, "unexpected token in expression: %s", t.Text)
		}
	}

	for _, t := range toks {
		switch {
		case t.Kind == KindLParen:
			ops = append(ops, "(")
		case t.Kind == KindRParen:
			for len(ops) > 0 && ops[len(ops)-1] != "(" {
				applyTop()
			}
			if len(ops) == 0 {
				fatalf(t.Line, "unbalanced parentheses")
			}
			ops = ops[:len(ops)-1] // drop "("
		case t.Kind == KindOperator && precedence(t.Text) > 0:
			for len(ops) > 0 && ops[len(ops)-1] != "(" && precedence(ops[len(ops)-1]) >= precedence(t.Text) {
				applyTop()
			}
			ops = append(ops, t.Text)
		default:
			pushOperand(t)
		}
	}

	for len(ops) > 0 {
		applyTop()
	}

	if len(values) != 1 {
		fatalf(toks[0].Line, "malformed expression")
	}
	return values[0]
}

func applyOp(block *ir.Block, op string, lhs, rhs value.Value) value.Value {
	switch op {
	case "+":
		return block.NewAdd(lhs, rhs)
	case "-":
		return block.NewSub(lhs, rhs)
	case "*":
		return block.NewMul(lhs, rhs)
	case "/":
		return block.NewSDiv(lhs, rhs)
	default:
		fatalf(0, "unknown operator: %s", op)
		return nil
	}
}
