package dc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleNameForStripsDirAndExtension(t *testing.T) {
	assert.Equal(t, "main", moduleNameFor("/tmp/build/main.dc"))
	assert.Equal(t, "main", moduleNameFor("main.dc"))
}

func TestDriverCompileStopsAtIRLevelAndWritesLL(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.dc")
	require.NoError(t, os.WriteFile(src, []byte(`
context main -> i32 ;
return 0 ;
context ;
`), 0o644))

	base := filepath.Join(dir, "prog")
	driver := NewDriver(Settings{Level: LevelIR, NoStdlib: true, OutputBase: base})
	err := driver.Compile([]string{src})
	require.NoError(t, err)

	assert.FileExists(t, base+".ll")
}

func TestDriverCompileWithPreludeDefinesHelpers(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.dc")
	require.NoError(t, os.WriteFile(src, []byte(`
context main -> i32 ;
return 0 ;
context ;
`), 0o644))

	base := filepath.Join(dir, "prog")
	driver := NewDriver(Settings{Level: LevelIR, OutputBase: base})
	err := driver.Compile([]string{src})
	require.NoError(t, err)

	data, err := os.ReadFile(base + ".ll")
	require.NoError(t, err)
	assert.Contains(t, string(data), "malloc")
}

func TestDriverCompileReportsCompileErrorLine(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.dc")
	require.NoError(t, os.WriteFile(src, []byte(`
context main -> i32 ;
declare nope x ;
return 0 ;
context ;
`), 0o644))

	base := filepath.Join(dir, "prog")
	driver := NewDriver(Settings{Level: LevelIR, NoStdlib: true, OutputBase: base})
	err := driver.Compile([]string{src})
	require.Error(t, err)

	ce, ok := err.(*CompileError)
	if assert.True(t, ok) {
		assert.Equal(t, 3, ce.Line)
	}
}

func TestDriverCompileNoInputFiles(t *testing.T) {
	driver := NewDriver(Settings{Level: LevelIR})
	err := driver.Compile(nil)
	assert.Error(t, err)
}
