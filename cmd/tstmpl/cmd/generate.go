package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/config"
	"github.com/robfig/tstmpl/parse"
	"github.com/robfig/tstmpl/tmpldts"
	"github.com/robfig/tstmpl/tmpljs"
)

var (
	outDir string
	watch  bool
	noDTS  bool
	noJS   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [paths...]",
	Short: "Generate .d.ts declarations and ES modules for templates",
	Long: `Generate writes <name>.d.ts and <name>.js for each template, next to the
template or into --out.

Paths may be files, directories, or "dir/..." to include subdirectories.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: next to each template)")
	generateCmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and regenerate changed templates")
	generateCmd.Flags().BoolVar(&noDTS, "no-dts", false, "do not write .d.ts files")
	generateCmd.Flags().BoolVar(&noJS, "no-js", false, "do not write .js files")
	rootCmd.AddCommand(generateCmd)
}

// generator writes the outputs of template files.
type generator struct {
	outDir string
	dts    bool
	js     bool
}

func newGenerator() generator {
	var gen = generator{
		outDir: cfg.Generate.OutDir,
		dts:    cfg.HasOutput(config.OutputDTS) && !noDTS,
		js:     cfg.HasOutput(config.OutputJS) && !noJS,
	}
	if outDir != "" {
		gen.outDir = outDir
	}
	return gen
}

func runGenerate(cmd *cobra.Command, args []string) error {
	files, err := templateFiles(args, cfg.Templates.Extension)
	if err != nil {
		return err
	}

	var gen = newGenerator()
	var failed int
	for _, path := range files {
		if err := gen.file(path); err != nil {
			printError(cmd.ErrOrStderr(), "generate", err)
			failed++
		}
	}
	if watch {
		return gen.watch(files)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d templates failed", failed, len(files))
	}
	return nil
}

// file writes the outputs for one template file.
func (gen generator) file(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	parsed, err := parse.File(path, string(src))
	if err != nil {
		return err
	}
	parsed.Name = templateName(path)

	var dir = gen.outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if gen.dts {
		if err = writeOutput(filepath.Join(dir, parsed.Name+".d.ts"), parsed, tmpldts.Write); err != nil {
			return err
		}
	}
	if gen.js {
		if err = writeOutput(filepath.Join(dir, parsed.Name+".js"), parsed, tmpljs.Write); err != nil {
			return sourceError(path, string(src), err)
		}
	}
	return nil
}

// writeOutput generates into memory first, so that a failure leaves any
// previous output in place.
func writeOutput(filename string, parsed *ast.ParsedTemplate, write func(io.Writer, *ast.ParsedTemplate) error) error {
	var buf bytes.Buffer
	if err := write(&buf, parsed); err != nil {
		return err
	}
	if existing, err := os.ReadFile(filename); err == nil && bytes.Equal(existing, buf.Bytes()) {
		logger.Printf("unchanged %s", filename)
		return nil
	}
	logger.Printf("writing %s", filename)
	return os.WriteFile(filename, buf.Bytes(), 0644)
}

// watch regenerates templates as they change, until interrupted.  Events on
// a file are collected for the configured debounce interval before it is
// regenerated, since editors often write a file in several steps.
func (gen generator) watch(files []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	for _, path := range files {
		if err = watcher.Add(path); err != nil {
			return err
		}
	}

	var (
		interrupt = make(chan os.Signal, 1)
		pending   = make(map[string]bool)
		timer     = time.NewTimer(0)
	)
	<-timer.C
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	logger.Printf("watching %d templates", len(files))
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// If it's a rename, then fsnotify has removed the watch.
			// Add it back, after a delay.
			if ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				time.Sleep(10 * time.Millisecond)
				if err := watcher.Add(ev.Name); err != nil {
					logger.Println(err)
					continue
				}
			}
			pending[ev.Name] = true
			timer.Reset(cfg.Watch.Debounce.Duration)

		case <-timer.C:
			for path := range pending {
				if err := gen.file(path); err != nil {
					printError(os.Stderr, "generate", err)
				}
				delete(pending, path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Println(err)

		case <-interrupt:
			return nil
		}
	}
}
