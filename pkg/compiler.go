package dc

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Driver is the outer orchestration the core's Non-goals exclude from the
// front end proper (§1): reading files, concatenating the prelude, and
// handing the result to a Compilation, then driving the external-tool
// pipeline over whatever it emits. Grounded on the teacher's Compiler
// (pkg/compiler.go), generalized from its single clang invocation to the
// llc/as/cc pipeline of §6.
type Driver struct {
	Settings Settings
}

// NewDriver constructs a driver for the given settings.
func NewDriver(settings Settings) *Driver {
	return &Driver{Settings: settings}
}

// Compile reads every path in paths, concatenates them with the embedded
// prelude (unless suppressed), compiles the result, and — unless the
// requested level is LevelIR-and-done — runs the external-tool pipeline.
// A *CompileError return means a fatal compile error was reported (§7); a
// plain error means a file, write, or external-tool failure.
func (d *Driver) Compile(paths []string) error {
	if len(paths) == 0 {
		return errors.New("no input files")
	}

	var buf strings.Builder
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return errors.Wrapf(err, "reading %s", p)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	src := buf.String()

	startingLine := 0
	if !d.Settings.NoStdlib {
		src, startingLine = WithPrelude(src)
	}

	toks := NewLexer(src, startingLine).Lex()

	moduleName := moduleNameFor(paths[0])
	comp := NewCompilation(moduleName)
	if err := comp.Emit(toks); err != nil {
		return err
	}

	base := d.Settings.OutputBase
	llPath := base + ".ll"
	if err := os.WriteFile(llPath, []byte(comp.Mod.String()), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", llPath)
	}

	return RunPipeline(base, d.Settings)
}

// moduleNameFor derives the module identifier the mangling scheme embeds
// (§4.4) from the first input file's base name, stripped of its extension.
func moduleNameFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
