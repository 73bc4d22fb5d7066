package main

import (
	"fmt"
	"os"

	verr "github.com/nihei9/lalrgen/error"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "lalrgen",
	Short: "Generate LALR(1) parsing tables from a grammar",
	Long: `lalrgen provides three features:
- Generates portable LALR(1) parsing tables and a report from a grammar.
- Prints a report in readable format.
- Parses a text stream with generated tables.
  This feature is primarily aimed at debugging the grammar.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var rootFlags = struct {
	verbose *bool
}{}

func init() {
	rootFlags.verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print the progress of each stage")
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		specErrs := verr.SpecErrors(err)
		if len(specErrs) == 0 {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return err
		}
		for _, specErr := range specErrs {
			fmt.Fprintf(os.Stderr, "%v\n", specErr)
		}
		return err
	}
	return nil
}

// newLogger returns a development logger in verbose mode, and otherwise a console logger
// that only prints warnings and errors.
func newLogger() (*zap.Logger, error) {
	if *rootFlags.verbose {
		return zap.NewDevelopment()
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.EncoderConfig.TimeKey = ""
	return cfg.Build()
}
