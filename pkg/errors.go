package dc

import "fmt"

// CompileError is the single fatal error category of §7. Every contract
// violation the core can detect — unknown type, unknown variable, unknown
// operator, unexpected end-of-stream, undefined reference, unsupported
// cast, a non-identifier where one is required — is reported through one
// of these, tagged with the line of the token that triggered it.
//
// There is no recovery path: the emitter has no AST to resynchronize
// against, so a CompileError is raised as a panic and caught exactly once,
// at the top of Compilation.Run, per §9's "fail-fast contract."
type CompileError struct {
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	return e.Message
}

// fatalf raises a CompileError carrying the current line. Grounded on
// original_source/src/compiler.cpp's compilationError: bold "dcc:", bold
// red "compilation error:", the message, then exit(1) — here, panic(err)
// in place of exit, recovered by the caller to set the exit code.
func fatalf(line int, format string, args ...any) {
	panic(&CompileError{Message: fmt.Sprintf(format, args...), Line: line})
}

// Report renders a CompileError in the terminal shape the original dcc
// binary used: a bold program tag, a bold-red "compilation error:" label,
// the message, and the triggering line number.
func Report(err *CompileError) string {
	return fmt.Sprintf("\x1b[1mdcc:\x1b[0m \x1b[1;31mcompilation error:\x1b[0m %s (line %d)", err.Message, err.Line)
}
