package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// recursiveSuffix marks a directory argument whose subdirectories are
// searched too, as in "templates/...".
const recursiveSuffix = "/..."

// templateFiles expands the command line arguments into the list of
// template files they name.  A file is taken as given, whatever its
// extension; a directory contributes the files directly inside it that have
// the extension ext.  With no arguments, the current directory is searched
// recursively.
func templateFiles(args []string, ext string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"." + recursiveSuffix}
	}

	var (
		files []string
		seen  = make(map[string]bool)
	)
	var add = func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		var recursive = strings.HasSuffix(filepath.ToSlash(arg), recursiveSuffix)
		if recursive {
			arg = arg[:len(arg)-len(recursiveSuffix)]
			if arg == "" {
				arg = "."
			}
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if recursive {
				return nil, fmt.Errorf("%s: not a directory", arg)
			}
			add(arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(path, ext) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, path := range found {
			add(path)
		}
	}
	return files, nil
}

// templateName returns the name of the template in the given file: its base
// name without the extension.
func templateName(path string) string {
	var base = filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
