package tstmpl

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/robfig/tstmpl/compiler"
	"github.com/robfig/tstmpl/data"
	"github.com/robfig/tstmpl/parse"
	"github.com/robfig/tstmpl/template"
)

// Logger is used to print notifications and compile errors when using the
// "WatchFiles" feature.
var Logger = log.New(os.Stderr, "[tstmpl] ", 0)

// DefaultExtension is the file extension of templates found by
// AddTemplateDir.
const DefaultExtension = ".tmpl"

type tmplFile struct{ name, filename, content string }

// source names the file in parse errors.
func (f tmplFile) source() string {
	if f.filename != "" {
		return f.filename
	}
	return f.name
}

// Bundle is a collection of template sources and globals.  It acts as input
// for the compiler.
type Bundle struct {
	files                 []tmplFile
	globals               data.Map
	engine                compiler.Engine
	ext                   string
	err                   error
	watcher               *fsnotify.Watcher
	recompilationCallback func(*template.Registry)
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{globals: make(data.Map), ext: DefaultExtension}
}

// WatchFiles tells the bundle to watch any template files added to it,
// re-compile as necessary, and propagate the updates to the registry.  It
// should be called once, before adding any files.
func (b *Bundle) WatchFiles(watch bool) *Bundle {
	if watch && b.err == nil && b.watcher == nil {
		b.watcher, b.err = fsnotify.NewWatcher()
	}
	return b
}

// SetExtension sets the file extension of the templates found by
// AddTemplateDir.
func (b *Bundle) SetExtension(ext string) *Bundle {
	b.ext = ext
	return b
}

// WithEngine sets the engine used to evaluate interpolations.
func (b *Bundle) WithEngine(engine compiler.Engine) *Bundle {
	b.engine = engine
	return b
}

// AddTemplateDir adds all template files found within the given directory
// (including sub-directories) to the bundle.  Each template is named by its
// path relative to root, without the extension, e.g. "emails/welcome".
func (b *Bundle) AddTemplateDir(root string) *Bundle {
	var err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, b.ext) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		b.addFile(filepath.ToSlash(strings.TrimSuffix(rel, b.ext)), path)
		return nil
	})
	if err != nil {
		b.err = err
	}
	return b
}

// AddTemplateFile adds the given template file to this bundle, named by its
// base name without extension.  If WatchFiles is on, it will be subsequently
// watched for updates.
func (b *Bundle) AddTemplateFile(filename string) *Bundle {
	var base = filepath.Base(filename)
	return b.addFile(strings.TrimSuffix(base, filepath.Ext(base)), filename)
}

func (b *Bundle) addFile(name, filename string) *Bundle {
	content, err := os.ReadFile(filename)
	if err != nil {
		b.err = err
	}
	if b.err == nil && b.watcher != nil {
		b.err = b.watcher.Add(filename)
	}
	b.files = append(b.files, tmplFile{name, filename, string(content)})
	return b
}

// AddTemplateString adds the given template source to the bundle under the
// given name.
func (b *Bundle) AddTemplateString(name, source string) *Bundle {
	b.files = append(b.files, tmplFile{name, "", source})
	return b
}

// AddGlobalsFile opens and parses the given file of globals (see
// ParseGlobals), and adds them to the bundle.
func (b *Bundle) AddGlobalsFile(filename string) *Bundle {
	var f, err = os.Open(filename)
	if err != nil {
		b.err = err
		return b
	}
	globals, err := ParseGlobals(f)
	f.Close()
	if err != nil {
		b.err = fmt.Errorf("%s: %w", filename, err)
		return b
	}
	return b.AddGlobalsMap(globals)
}

// AddGlobalsMap adds the given globals.  They are visible to every template
// expression, shadowed by template properties of the same name.
func (b *Bundle) AddGlobalsMap(globals data.Map) *Bundle {
	for k, v := range globals {
		if existing, ok := b.globals[k]; ok {
			b.err = fmt.Errorf("global %q already defined as %q", k, existing)
			return b
		}
		b.globals[k] = v
	}
	return b
}

// SetRecompilationCallback assigns the bundle a function to call after
// recompilation.  This is called before updating the in-use registry.
func (b *Bundle) SetRecompilationCallback(c func(*template.Registry)) *Bundle {
	b.recompilationCallback = c
	return b
}

// Compile parses and compiles all of the templates in this bundle, and
// returns the completed template registry.
func (b *Bundle) Compile() (*template.Registry, error) {
	if b.err != nil {
		return nil, b.err
	}

	var opts = []compiler.Option{compiler.WithGlobals(b.globalsMap())}
	if b.engine != nil {
		opts = append(opts, compiler.WithEngine(b.engine))
	}

	var registry = template.Registry{}
	for _, file := range b.files {
		var parsed, err = parse.File(file.source(), file.content)
		if err != nil {
			return nil, err
		}
		parsed.Name = file.name
		compiled, err := compiler.Compile(parsed, opts...)
		if err != nil {
			return nil, b.fileError(file, err)
		}
		if err = registry.Add(file.filename, parsed, compiled); err != nil {
			return nil, err
		}
	}

	if b.watcher != nil {
		go b.recompiler(&registry)
	}
	return &registry, nil
}

// Close stops watching files.
func (b *Bundle) Close() error {
	if b.watcher == nil {
		return nil
	}
	return b.watcher.Close()
}

func (b *Bundle) globalsMap() map[string]interface{} {
	var globals = make(map[string]interface{}, len(b.globals))
	for k, v := range b.globals {
		globals[k] = v
	}
	return globals
}

// fileError prefixes errors from templates added by file name with the file.
func (b *Bundle) fileError(file tmplFile, err error) error {
	if file.filename == "" {
		return err
	}
	return fmt.Errorf("%s: %w", file.filename, err)
}

func (b *Bundle) recompiler(reg *template.Registry) {
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			// If it's a rename, then fsnotify has removed the watch.
			// Add it back, after a delay.
			if ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				time.Sleep(10 * time.Millisecond)
				if err := b.watcher.Add(ev.Name); err != nil {
					Logger.Println(err)
				}
			}

			// Recompile all the templates.
			var bundle = NewBundle().
				SetExtension(b.ext).
				WithEngine(b.engine).
				AddGlobalsMap(b.globals)
			for _, file := range b.files {
				if file.filename == "" {
					bundle.AddTemplateString(file.name, file.content)
				} else {
					bundle.addFile(file.name, file.filename)
				}
			}
			var registry, err = bundle.Compile()
			if err != nil {
				Logger.Println(err)
				continue
			}

			if b.recompilationCallback != nil {
				b.recompilationCallback(registry)
			}

			// Update the existing template registry.  This is not
			// goroutine-safe; watching is a development aid.
			*reg = *registry
			Logger.Printf("update successful (%v)", ev)

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			Logger.Println(err)
		}
	}
}
