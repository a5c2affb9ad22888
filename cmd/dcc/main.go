package main

import (
	"fmt"
	"os"

	dc "github.com/dc-lang/dc/pkg"
	"github.com/spf13/cobra"
)

// version is the compiler's reported version (§6's `-v`).
const version = "0.1.0"

var (
	flagVersion  bool
	flagIR       bool
	flagAsm      bool
	flagObj      bool
	flagNoStdlib bool
	flagLibs     []string
	flagOutput   string
	flagPIC      bool
)

var rootCmd = &cobra.Command{
	Use:                   "dcc <file>... [options]",
	Short:                 "dcc compiles DC source into a native binary",
	DisableFlagsInUseLine: true,
	Args:                  cobra.ArbitraryArgs,
	SilenceUsage:          true,
	SilenceErrors:         true,
	RunE:                  runCompile,
}

func init() {
	rootCmd.Flags().BoolVarP(&flagVersion, "version", "v", false, "print version and exit")
	rootCmd.Flags().BoolVarP(&flagIR, "ir", "i", false, "stop after emitting .ll")
	rootCmd.Flags().BoolVarP(&flagAsm, "asm", "S", false, "stop after emitting .s")
	rootCmd.Flags().BoolVarP(&flagObj, "obj", "c", false, "stop after emitting .o")
	rootCmd.Flags().BoolVar(&flagNoStdlib, "nostdlib", false, "suppress the embedded prelude")
	rootCmd.Flags().StringArrayVarP(&flagLibs, "lib", "l", nil, "append -l<name> to the final link command")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "a.out", "output base name")
	rootCmd.Flags().BoolVar(&flagPIC, "pic", false, "pass -relocation-model=pic to llc")
}

func runCompile(cmd *cobra.Command, args []string) error {
	if flagVersion {
		fmt.Printf("dcc version %s\n", version)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("no input files")
	}

	level := dc.LevelExecutable
	switch {
	case flagIR:
		level = dc.LevelIR
	case flagAsm:
		level = dc.LevelAsm
	case flagObj:
		level = dc.LevelObj
	}

	settings := dc.Settings{
		Level:      level,
		NoStdlib:   flagNoStdlib,
		Libs:       flagLibs,
		OutputBase: flagOutput,
		PIC:        flagPIC,
	}

	driver := dc.NewDriver(settings)
	if err := driver.Compile(args); err != nil {
		if ce, ok := err.(*dc.CompileError); ok {
			fmt.Fprintln(os.Stderr, dc.Report(ce))
			os.Exit(1)
		}
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\x1b[1mdcc:\x1b[0m \x1b[1;31merror:\x1b[0m %s\n", err)
		os.Exit(1)
	}
}
