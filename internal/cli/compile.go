package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pyrite/internal/cache"
	"github.com/roach88/pyrite/internal/oracle"
	"github.com/roach88/pyrite/internal/pipeline"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Module  string // module name override
	Output  string // output directory
	Oracle  string // type-oracle report path
	Cache   string // compilation cache path; empty disables caching
	Project string // pyrite.cue descriptor path
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [source.py]",
		Short: "Compile annotated Python to a MicroPython usermod",
		Long: `Compile a statically-annotated Python source file into a MicroPython
user-C-module output unit: the generated C file plus micropython.mk and
micropython.cmake build fragments, laid out under usermod_<name>/.

The source path comes from the argument or from a pyrite.cue project
descriptor (--project). Flags override descriptor values.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}
			return runCompile(opts, source, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Module, "module", "m", "", "module name (default: source file stem)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output directory (default: source directory)")
	cmd.Flags().StringVar(&opts.Oracle, "oracle", "", "type-oracle report (YAML)")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "compilation cache database")
	cmd.Flags().StringVarP(&opts.Project, "project", "p", "", "pyrite.cue project descriptor")

	return cmd
}

func runCompile(opts *CompileOptions, sourcePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	if opts.Project != "" {
		proj, err := LoadProject(opts.Project)
		if err != nil {
			return outputLoadError(formatter, err)
		}
		formatter.VerboseLog("Loaded project descriptor %s", opts.Project)
		if sourcePath == "" {
			sourcePath = proj.Source
		}
		if opts.Module == "" {
			opts.Module = proj.Module
		}
		if opts.Output == "" {
			opts.Output = proj.Output
		}
		if opts.Oracle == "" {
			opts.Oracle = proj.Oracle
		}
		if opts.Cache == "" {
			opts.Cache = proj.Cache
		}
	}
	if sourcePath == "" {
		return outputCommandError(formatter, ErrCodeNotFound, "no source file: pass an argument or --project")
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("source file not found: %s", sourcePath))
	}
	source := string(data)

	moduleName := opts.Module
	if moduleName == "" {
		base := filepath.Base(sourcePath)
		moduleName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	outDir := opts.Output
	if outDir == "" {
		outDir = filepath.Dir(sourcePath)
	}

	var report *oracle.Report
	if opts.Oracle != "" {
		report, err = oracle.Load(opts.Oracle)
		if err != nil {
			return outputCommandError(formatter, ErrCodeNotFound, err.Error())
		}
		formatter.VerboseLog("Loaded type oracle %s (%d types)", opts.Oracle, len(report.Types))
	}

	result, fromCache, err := compileWithCache(opts, formatter, source, moduleName, report)
	if err != nil {
		return err
	}
	if !result.Success {
		return outputCompileErrors(formatter, result.Errors)
	}

	unit, err := result.WriteUnit(outDir)
	if err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, err.Error())
	}

	return outputCompileSuccess(formatter, result, unit, fromCache)
}

// compileWithCache consults the cache when one is configured, compiles
// on a miss, and stores the fresh result. Cache hits keep their
// original build ID so repeated builds stay traceable to one artifact.
func compileWithCache(opts *CompileOptions, formatter *OutputFormatter,
	source, moduleName string, report *oracle.Report) (pipeline.Result, bool, error) {

	pipeOpts := pipeline.Options{ModuleName: moduleName, Oracle: report}

	if opts.Cache == "" {
		return pipeline.CompileSource(source, pipeOpts), false, nil
	}

	c, err := cache.Open(opts.Cache)
	if err != nil {
		return pipeline.Result{}, false, outputCommandError(formatter, ErrCodeCacheFailed, err.Error())
	}
	defer c.Close()

	ctx := context.Background()
	key := cache.Key(source, pipeline.Version)
	if entry, ok, err := c.Get(ctx, key); err != nil {
		return pipeline.Result{}, false, outputCommandError(formatter, ErrCodeCacheFailed, err.Error())
	} else if ok {
		formatter.VerboseLog("Cache hit for %s (build %s)", moduleName, entry.BuildID)
		return pipeline.Result{
			ModuleName: entry.ModuleName,
			CCode:      entry.CCode,
			MkCode:     entry.MkCode,
			CMakeCode:  entry.CMakeCode,
			BuildID:    entry.BuildID,
			Success:    true,
		}, true, nil
	}

	result := pipeline.CompileSource(source, pipeOpts)
	if result.Success {
		put := cache.Entry{
			Key:        key,
			ModuleName: result.ModuleName,
			CCode:      result.CCode,
			MkCode:     result.MkCode,
			CMakeCode:  result.CMakeCode,
			BuildID:    result.BuildID,
		}
		if err := c.Put(ctx, put); err != nil {
			return pipeline.Result{}, false, outputCommandError(formatter, ErrCodeCacheFailed, err.Error())
		}
		formatter.VerboseLog("Cached %s as %s", moduleName, result.BuildID)
	}
	return result, false, nil
}

// compileResultView is the JSON payload for a successful compile.
type compileResultView struct {
	Module    string `json:"module"`
	BuildID   string `json:"build_id"`
	UnitDir   string `json:"unit_dir"`
	FromCache bool   `json:"from_cache"`
}

func outputCompileSuccess(formatter *OutputFormatter, result pipeline.Result, unit string, fromCache bool) error {
	if formatter.Format == "json" {
		return formatter.Success(compileResultView{
			Module:    result.ModuleName,
			BuildID:   result.BuildID,
			UnitDir:   unit,
			FromCache: fromCache,
		})
	}

	suffix := ""
	if fromCache {
		suffix = " (cached)"
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled %s, build %s%s\n", result.ModuleName, result.BuildID, suffix)
	fmt.Fprintf(formatter.Writer, "  %s\n", filepath.Join(unit, result.ModuleName+".c"))
	fmt.Fprintf(formatter.Writer, "  %s\n", filepath.Join(unit, "micropython.mk"))
	fmt.Fprintf(formatter.Writer, "  %s\n", filepath.Join(unit, "micropython.cmake"))
	return nil
}

// outputCompileErrors reports compilation rejections (exit code 1).
func outputCompileErrors(formatter *OutputFormatter, errs []string) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, msg := range errs {
			cliErrors[i] = CLIError{Code: classifyCompileError(msg), Message: msg}
		}
		_ = formatter.Error(cliErrors[0].Code, cliErrors[0].Message, cliErrors)
		return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, msg := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", classifyCompileError(msg), msg)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// classifyCompileError maps a pipeline error message onto an error
// code. The pipeline flattens stage errors to strings, so type-check
// failures are recognized by their oracle-phase wording.
func classifyCompileError(msg string) string {
	if strings.Contains(msg, "type check failed") || strings.Contains(msg, "oracle report") {
		return ErrCodeTypeCheck
	}
	return ErrCodeBuild
}

// outputCommandError reports a command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputLoadError reports a project-descriptor load failure.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return outputCommandError(formatter, le.Code, le.Message)
	}
	return outputCommandError(formatter, ErrCodeGeneric, err.Error())
}
