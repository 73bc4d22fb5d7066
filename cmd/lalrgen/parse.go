package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/nihei9/lalrgen/driver"
	spec "github.com/nihei9/lalrgen/spec/grammar"
	"github.com/spf13/cobra"
)

var parseFlags = struct {
	source    *string
	onlyParse *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse <compiled grammar file path>",
		Short:   "Parse a text stream with compiled tables",
		Example: `  cat src | lalrgen parse grammar.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	parseFlags.onlyParse = cmd.Flags().Bool("only-parse", false, "when this option is enabled, the parser performs only parse and doesn't print a tree")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	cgram, err := readCompiledGrammar(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a compiled grammar: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	src := os.Stdin
	if *parseFlags.source != "" {
		f, err := os.Open(*parseFlags.source)
		if err != nil {
			return fmt.Errorf("Cannot open the source file %s: %w", *parseFlags.source, err)
		}
		defer f.Close()
		src = f
	}

	toks, err := driver.NewTokenStream(cgram, src)
	if err != nil {
		return err
	}

	gram := driver.NewGrammar(cgram)
	opts := []driver.ParserOption{
		driver.WithLogger(logger),
	}
	var treeAct *driver.SyntaxTreeActionSet
	if !*parseFlags.onlyParse {
		treeAct = driver.NewSyntaxTreeActionSet(gram)
		opts = append(opts, driver.SemanticAction(treeAct))
	}

	p, err := driver.NewParser(toks, gram, opts...)
	if err != nil {
		return err
	}

	err = p.Parse()
	if err != nil {
		return err
	}

	synErrs := p.SyntaxErrors()
	for _, synErr := range synErrs {
		color.New(color.FgRed).Fprintln(os.Stderr, synErr.Error())
	}
	if len(synErrs) > 0 {
		return fmt.Errorf("%v syntax errors", len(synErrs))
	}

	if treeAct != nil {
		driver.PrintTree(os.Stdout, treeAct.CST())
	}

	return nil
}

func readCompiledGrammar(path string) (*spec.CompiledGrammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cgram := &spec.CompiledGrammar{}
	err = json.Unmarshal(data, cgram)
	if err != nil {
		return nil, err
	}
	return cgram, nil
}
