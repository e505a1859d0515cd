package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pyrite/internal/irbuild"
	"github.com/roach88/pyrite/internal/irdump"
	"github.com/roach88/pyrite/internal/pysrc"
)

// DumpIROptions holds flags for the dump-ir command.
type DumpIROptions struct {
	*RootOptions
	IRFormat string // text | tree | json
	Function string // dump a single function
	Module   string // module name override
}

// NewDumpIRCommand creates the dump-ir command.
func NewDumpIRCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpIROptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump-ir <source.py>",
		Short: "Show the lowered intermediate representation",
		Long: `Build the intermediate representation for a source file and print it
without emitting C. Three renderings are available: text (pseudo-source),
tree (ASCII structure diagram) and json (machine-readable).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDumpIR(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.IRFormat, "ir-format", "text", "IR rendering (text|tree|json)")
	cmd.Flags().StringVar(&opts.Function, "function", "", "dump a single function")
	cmd.Flags().StringVarP(&opts.Module, "module", "m", "", "module name (default: source file stem)")

	return cmd
}

func runDumpIR(opts *DumpIROptions, sourcePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	format, err := irdump.ParseFormat(opts.IRFormat)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDump, err.Error())
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("source file not found: %s", sourcePath))
	}

	moduleName := opts.Module
	if moduleName == "" {
		base := filepath.Base(sourcePath)
		moduleName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	mod, err := pysrc.Parse(string(data))
	if err != nil {
		_ = formatter.Error(ErrCodeParse, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}
	out, err := irbuild.New(moduleName, nil).Build(mod)
	if err != nil {
		_ = formatter.Error(ErrCodeBuild, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	var dump string
	if opts.Function != "" {
		dump, err = irdump.Function(out, opts.Function, format)
	} else {
		dump, err = irdump.Module(out, format)
	}
	if err != nil {
		return outputCommandError(formatter, ErrCodeDump, err.Error())
	}

	// The dump is the payload, so it goes out raw in both formats:
	// json renders are already JSON, text/tree are preformatted.
	fmt.Fprint(formatter.Writer, dump)
	return nil
}
