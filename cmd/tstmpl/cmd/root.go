// Package cmd implements the tstmpl command line.
package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/robfig/tstmpl"
	"github.com/robfig/tstmpl/compiler"
	"github.com/robfig/tstmpl/config"
)

var (
	cfgFile string
	verbose bool

	// cfg is loaded before any subcommand runs.
	cfg *config.Config

	// logger prints progress with --verbose.
	logger = log.New(io.Discard, "[tstmpl] ", 0)
)

var rootCmd = &cobra.Command{
	Use:   "tstmpl",
	Short: "Typed text templates",
	Long: `tstmpl parses templates made of a TypeScript frontmatter and a
template-literal body:

  ---
  import type { User } from './user';
  interface Props {
    user: User;
  }
  ---
  Hello, ${user.name}!

It renders them, checks them, and generates a .d.ts declaration and an ES
module for each one.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $TSTMPL_CONFIG or ./tstmpl.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	if verbose {
		logger.SetOutput(cmd.ErrOrStderr())
	}
	tstmpl.Logger.SetOutput(cmd.ErrOrStderr())
	compiler.DefaultLocale = cfg.LocaleTag()
	return nil
}

func printError(w io.Writer, msg string, err error) {
	fmt.Fprintf(w, "error: %s: %v\n", msg, err)
}
