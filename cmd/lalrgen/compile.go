package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	verr "github.com/nihei9/lalrgen/error"
	"github.com/nihei9/lalrgen/grammar"
	spec "github.com/nihei9/lalrgen/spec/grammar"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var compileFlags = struct {
	output   *string
	expect   *int
	noWarn   *bool
	compress *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile",
		Short:   "Compile a grammar into LALR(1) parsing tables",
		Example: `  lalrgen compile grammar.toml -o grammar.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	compileFlags.expect = cmd.Flags().Int("expect", -1, "abort when the grammar has more conflicts than this number (negative means no limit)")
	compileFlags.noWarn = cmd.Flags().Bool("nowarn", false, "suppress warnings about unreduced productions and unused symbols")
	compileFlags.compress = cmd.Flags().Bool("compress", false, "emit the action and goto tables in compressed form")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) (retErr error) {
	var tmpDirPath string
	defer func() {
		if tmpDirPath == "" {
			return
		}
		os.RemoveAll(tmpDirPath)
	}()

	var grmPath string
	if len(args) > 0 {
		grmPath = args[0]
	}
	defer func() {
		if retErr == nil {
			return
		}
		if len(args) > 0 {
			verr.SetSource(retErr, grmPath, grmPath)
		} else {
			verr.SetSource(retErr, "stdin", grmPath)
		}
	}()

	if grmPath == "" {
		var err error
		tmpDirPath, err = os.MkdirTemp("", "lalrgen-compile-*")
		if err != nil {
			return err
		}

		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}

		grmPath = filepath.Join(tmpDirPath, "stdin.toml")
		err = os.WriteFile(grmPath, src, 0600)
		if err != nil {
			return err
		}
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	gram, err := readGrammar(grmPath)
	if err != nil {
		return err
	}

	opts := []grammar.CompileOption{
		grammar.EnableReporting(),
		grammar.WithLogger(logger),
	}
	if *compileFlags.noWarn {
		opts = append(opts, grammar.DisableWarnings())
	}
	if *compileFlags.compress {
		opts = append(opts, grammar.CompressTables())
	}
	cgram, report, err := grammar.Compile(gram, opts...)
	if err != nil {
		return err
	}

	conflicts := cgram.ParsingTable.ConflictCount
	if *compileFlags.expect >= 0 && conflicts > *compileFlags.expect {
		return fmt.Errorf("%v conflicts were detected; expected at most %v", conflicts, *compileFlags.expect)
	}

	err = writeCompiledGrammarAndReport(cgram, report, *compileFlags.output)
	if err != nil {
		return fmt.Errorf("Cannot write an output files: %w", err)
	}

	logger.Debug("wrote the compiled grammar", zap.String("name", cgram.Name), zap.Int("states", cgram.ParsingTable.StateCount))
	printCompileSummary(os.Stderr, cgram, report)

	return nil
}

func printCompileSummary(w io.Writer, cgram *spec.CompiledGrammar, report *spec.Report) {
	color.New(color.FgGreen).Fprintf(w, "%v: %v states\n", cgram.Name, cgram.ParsingTable.StateCount)
	if n := cgram.ParsingTable.ConflictCount; n > 0 {
		color.New(color.FgYellow).Fprintf(w, "%v conflicts\n", n)
	}
	if n := len(report.UnreducedProductions); n > 0 {
		color.New(color.FgYellow).Fprintf(w, "%v productions never reduced\n", n)
	}
	if n := len(report.UnusedTerminals) + len(report.UnusedNonTerminals); n > 0 {
		color.New(color.FgYellow).Fprintf(w, "%v symbols declared but never used\n", n)
	}
}

func readGrammar(path string) (*grammar.Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the grammar file %s: %w", path, err)
	}
	defer f.Close()

	gs, err := spec.Parse(f)
	if err != nil {
		return nil, err
	}

	b := grammar.GrammarBuilder{
		Spec: gs,
	}
	return b.Build()
}

// writeCompiledGrammarAndReport writes a compiled grammar and a report to files located at a specified path.
//
//  1. When the path is a directory path, this function writes the compiled grammar and the report to
//     <path>/<grammar-name>.json and <path>/<grammar-name>-report.json files, respectively.
//  2. When the path is a file path or a non-existent path, the compiled grammar goes to the path, and
//     the report goes to <grammar-name>-report.json in the same directory.
//  3. When the path is an empty string, this function writes the compiled grammar to the stdout and writes
//     the report to <current-directory>/<grammar-name>-report.json.
func writeCompiledGrammarAndReport(cgram *spec.CompiledGrammar, report *spec.Report, path string) error {
	cgramPath, reportPath, err := makeOutputFilePaths(cgram.Name, path)
	if err != nil {
		return err
	}

	{
		var cgramW io.Writer
		if cgramPath != "" {
			cgramFile, err := os.OpenFile(cgramPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
			if err != nil {
				return err
			}
			defer cgramFile.Close()
			cgramW = cgramFile
		} else {
			cgramW = os.Stdout
		}

		b, err := json.Marshal(cgram)
		if err != nil {
			return err
		}
		fmt.Fprintf(cgramW, "%v\n", string(b))
	}

	{
		reportFile, err := os.OpenFile(reportPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer reportFile.Close()

		b, err := json.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Fprintf(reportFile, "%v\n", string(b))
	}

	return nil
}

func makeOutputFilePaths(gramName string, path string) (string, string, error) {
	reportFileName := gramName + "-report.json"

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", err
		}
		return "", filepath.Join(wd, reportFileName), nil
	}

	fi, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return "", "", err
	}
	if os.IsNotExist(err) || !fi.IsDir() {
		dir, _ := filepath.Split(path)
		return path, filepath.Join(dir, reportFileName), nil
	}

	return filepath.Join(path, gramName+".json"), filepath.Join(path, reportFileName), nil
}
