package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robfig/tstmpl/compiler"
	"github.com/robfig/tstmpl/errortypes"
	"github.com/robfig/tstmpl/parse"
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Parse and compile templates, reporting any errors",
	Long: `Check parses and compiles each template, printing one line per failure:

  file:line:col: message

Paths may be files, directories, or "dir/..." to include subdirectories.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	files, err := templateFiles(args, cfg.Templates.Extension)
	if err != nil {
		return err
	}

	var failed int
	for _, path := range files {
		if err := checkFile(path); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), err)
			failed++
			continue
		}
		logger.Printf("ok %s", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d templates failed", failed, len(files))
	}
	return nil
}

// checkFile parses and compiles one template file.  Errors within the body
// are reported at their position in the file.
func checkFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	parsed, err := parse.File(path, string(src))
	if err != nil {
		return err
	}
	if _, err = compiler.Compile(parsed); err != nil {
		return sourceError(path, string(src), err)
	}
	return nil
}

// sourceError rewrites an error positioned within the body of a template to
// the "file:line:col: message" form, positioned within the whole source.
func sourceError(path, src string, err error) error {
	var pos = errortypes.ToErrFilePos(err)
	if pos == nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	var prefix = fmt.Sprintf("template %s:%d:%d: ", pos.File(), pos.Line(), pos.Col())
	var msg = strings.TrimPrefix(err.Error(), prefix)
	var line, col = parse.SourcePos(src, pos.Line(), pos.Col())
	return errortypes.NewErrFilePosf(path, line, col, "%s:%d:%d: %s", path, line, col, msg)
}
