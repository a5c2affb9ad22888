package dc

import (
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Variable is a named, typed storage slot: the declared type and the
// address of the stack slot a context body reads and writes by name (§3).
// Every variable, including spilled parameters, is addressable this way.
type Variable struct {
	Name  string
	Type  types.Type
	Alloc value.Value
}

// VarTable resolves identifiers to storage within a single context body.
// §9's Design Notes call out the teacher's linear ValueLookup scan as
// something a from-scratch implementation should just not repeat; a context
// body's variable count isn't bounded the way maqui's builtin-table lookups
// are, so this is a map from the start (SPEC_FULL.md Expansion D.4).
type VarTable struct {
	vars map[string]*Variable
}

// NewVarTable returns an empty table, ready for use in a fresh context body.
func NewVarTable() *VarTable {
	return &VarTable{vars: make(map[string]*Variable)}
}

// Declare adds v under name, replacing whatever was previously bound there.
// declare and the implicit parameter bindings of a context header both
// reach this; neither re-declaration is diagnosed; the later binding wins.
func (t *VarTable) Declare(name string, v *Variable) {
	t.vars[name] = v
}

// Lookup returns the variable bound to name, or nil if none is bound.
func (t *VarTable) Lookup(name string) *Variable {
	return t.vars[name]
}
