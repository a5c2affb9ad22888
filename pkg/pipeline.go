package dc

import (
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// CompilationLevel selects how far the pipeline carries an input: only to
// textual IR, only to assembly, only to an object file, or all the way to
// a linked executable (§6).
type CompilationLevel int

const (
	LevelExecutable CompilationLevel = iota
	LevelIR
	LevelAsm
	LevelObj
)

// Settings collects the external-tool flags §6 describes: whether to
// suppress the prelude, which libraries to link, the output base name, and
// how far to carry the pipeline.
type Settings struct {
	Level      CompilationLevel
	NoStdlib   bool
	Libs       []string
	OutputBase string
	PIC        bool
}

// runStep runs name with args, piping srcReader is unnecessary here since
// every step of this pipeline reads/writes named files; it wraps a
// non-zero exit in an error naming the failing step, per §6's "aborts the
// compiler with an error message naming the failing step." Grounded on the
// teacher's Compiler.build, which runs its one external tool under an
// errgroup with an io.Pipe; this pipeline has three sequential steps
// instead of one, so each runs its own group member guarding a single
// exec.Cmd rather than a writer goroutine.
func runStep(step string, args ...string) error {
	var g errgroup.Group
	g.Go(func() error {
		cmd := exec.Command(step, args...)
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return errors.Wrapf(err, "%s failed", step)
		}
		return nil
	})
	return g.Wait()
}

// RunPipeline invokes llc, as, and cc in turn, stopping as soon as
// settings.Level is reached, and removes the intermediate artifacts the
// earlier steps produced once the whole pipeline has finished successfully
// (§5: cleanup is scoped to the success path; a fatal error skips it).
func RunPipeline(base string, settings Settings) error {
	llFile := base + ".ll"
	sFile := base + ".s"
	oFile := base + ".o"

	if settings.Level == LevelIR {
		return nil
	}

	llcArgs := []string{llFile, "-o", sFile}
	if settings.PIC {
		llcArgs = append(llcArgs, "-relocation-model=pic")
	}
	if err := runStep("llc", llcArgs...); err != nil {
		return err
	}
	if settings.Level == LevelAsm {
		return os.Remove(llFile)
	}

	if err := runStep("as", sFile, "-o", oFile); err != nil {
		return err
	}
	if settings.Level == LevelObj {
		return removeAll(llFile, sFile)
	}

	ccArgs := []string{oFile, "-o", settings.OutputBase}
	for _, lib := range settings.Libs {
		ccArgs = append(ccArgs, "-l"+lib)
	}
	if err := runStep("cc", ccArgs...); err != nil {
		return err
	}
	return removeAll(llFile, sFile, oFile)
}

func removeAll(paths ...string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return errors.Wrapf(err, "removing %s", p)
		}
	}
	return nil
}
