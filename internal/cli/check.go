package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pyrite/internal/irbuild"
	"github.com/roach88/pyrite/internal/oracle"
	"github.com/roach88/pyrite/internal/pysrc"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Oracle string
	Module string
}

// checkView is the JSON payload for a check run.
type checkView struct {
	Module    string `json:"module"`
	Functions int    `json:"functions"`
	Classes   int    `json:"classes"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <source.py>",
		Short: "Validate a source file without emitting C",
		Long: `Parse and lower a source file, reporting the first rejection with its
position. With --oracle, the external type report's diagnostics are
checked first and its resolved types are applied during lowering.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Oracle, "oracle", "", "type-oracle report (YAML)")
	cmd.Flags().StringVarP(&opts.Module, "module", "m", "", "module name (default: source file stem)")

	return cmd
}

func runCheck(opts *CheckOptions, sourcePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
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

	var report *oracle.Report
	if opts.Oracle != "" {
		report, err = oracle.Load(opts.Oracle)
		if err != nil {
			return outputCommandError(formatter, ErrCodeNotFound, err.Error())
		}
		if report.Module != moduleName {
			return outputCheckFailure(formatter, ErrCodeTypeCheck, fmt.Sprintf(
				"oracle report is for module %q, not %q", report.Module, moduleName))
		}
		if err := report.Err(); err != nil {
			return outputCheckDiagnostics(formatter, report.Errors)
		}
		formatter.VerboseLog("Type oracle clean: %d resolved types", len(report.Types))
	}

	mod, err := pysrc.Parse(string(data))
	if err != nil {
		return outputCheckFailure(formatter, ErrCodeParse, err.Error())
	}
	out, err := irbuild.New(moduleName, report).Build(mod)
	if err != nil {
		code := ErrCodeBuild
		var buildErr *irbuild.BuildError
		if !errors.As(err, &buildErr) {
			code = ErrCodeGeneric
		}
		return outputCheckFailure(formatter, code, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(checkView{
			Module:    out.Name,
			Functions: len(out.FunctionOrder),
			Classes:   len(out.ClassOrder),
		})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s: %d function(s), %d class(es)\n",
		out.Name, len(out.FunctionOrder), len(out.ClassOrder))
	return nil
}

func outputCheckFailure(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, message))
}

func outputCheckDiagnostics(formatter *OutputFormatter, diags []oracle.Diagnostic) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(diags))
		for i, d := range diags {
			cliErrors[i] = CLIError{Code: ErrCodeTypeCheck, Message: d.String()}
		}
		_ = formatter.Error(ErrCodeTypeCheck, cliErrors[0].Message, cliErrors)
		return NewExitError(ExitFailure, fmt.Sprintf("type check failed with %d error(s)", len(diags)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Type check failed")
	fmt.Fprintln(formatter.Writer)
	for _, d := range diags {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", ErrCodeTypeCheck, d.String())
	}
	return NewExitError(ExitFailure, fmt.Sprintf("type check failed with %d error(s)", len(diags)))
}
