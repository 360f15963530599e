package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/robfig/tstmpl"
	"github.com/robfig/tstmpl/compiler"
	"github.com/robfig/tstmpl/config"
	"github.com/robfig/tstmpl/ottoeval"
)

var (
	dataFile   string
	engineName string
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a template to standard output",
	Long: `Render renders the body of a template with the properties read from
--data, a JSON, YAML or TOML file.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&dataFile, "data", "d", "", "properties file (.json, .yaml, .yml or .toml)")
	renderCmd.Flags().StringVarP(&engineName, "engine", "e", "", `expression engine, "builtin" or "otto" (default from config)`)
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	var path = args[0]

	props, err := readProps(dataFile)
	if err != nil {
		return err
	}
	engine, err := newEngine(engineName)
	if err != nil {
		return err
	}

	var bundle = tstmpl.NewBundle().
		WithEngine(engine).
		AddTemplateFile(path)
	if cfg.Templates.Globals != "" {
		bundle.AddGlobalsFile(cfg.Templates.Globals)
	}
	registry, err := bundle.Compile()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = registry.Render(&buf, templateName(path), props); err != nil {
		return err
	}
	logger.Printf("rendered %s (%d bytes)", path, buf.Len())
	_, err = buf.WriteTo(cmd.OutOrStdout())
	return err
}

// newEngine returns the named expression engine, or the configured one if
// name is empty.
func newEngine(name string) (compiler.Engine, error) {
	if name == "" {
		name = cfg.Render.Engine
	}
	switch name {
	case config.EngineBuiltin:
		return compiler.Builtin{}, nil
	case config.EngineOtto:
		return ottoeval.Engine{Timeout: cfg.Render.Timeout.Duration}, nil
	}
	return nil, fmt.Errorf("unknown engine %q (want %q or %q)", name, config.EngineBuiltin, config.EngineOtto)
}

// readProps decodes the properties file, choosing the format by extension.
// No file means no properties.
func readProps(filename string) (map[string]interface{}, error) {
	if filename == "" {
		return nil, nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var props map[string]interface{}
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		err = json.Unmarshal(content, &props)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &props)
	case ".toml":
		_, err = toml.Decode(string(content), &props)
	default:
		return nil, fmt.Errorf("%s: unknown data format %q (want .json, .yaml, .yml or .toml)", filename, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return props, nil
}
