package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"seconds", "30s", 30 * time.Second, false},
		{"milliseconds", "100ms", 100 * time.Millisecond, false},
		{"complex", "1m30s", 90 * time.Second, false},
		{"invalid", "invalid", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))

			if (err != nil) != tt.wantErr {
				t.Errorf("UnmarshalText() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && d.Duration != tt.expected {
				t.Errorf("UnmarshalText() = %v, want %v", d.Duration, tt.expected)
			}
		})
	}
}

func TestDuration_MarshalText(t *testing.T) {
	d := Duration{5 * time.Second}
	result, err := d.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(result) != "5s" {
		t.Errorf("MarshalText() = %v, want 5s", string(result))
	}
}

func TestDefault(t *testing.T) {
	var expected = &Config{
		Templates: TemplatesConfig{Extension: ".tmpl", Locale: "en-US"},
		Generate:  GenerateConfig{Outputs: []string{"dts", "js"}},
		Render:    RenderConfig{Engine: "builtin", Timeout: Duration{5 * time.Second}},
		Watch:     WatchConfig{Debounce: Duration{100 * time.Millisecond}},
	}
	if diff := cmp.Diff(expected, Default()); diff != "" {
		t.Errorf("Default() (-want +got):\n%s", diff)
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "tstmpl.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TSTMPL_TEST_OUT", "/tmp/out")
	path := writeConfig(t, `
[templates]
extension = ".tt"
locale = "de-DE"

[generate]
out_dir = "${TSTMPL_TEST_OUT}/gen"
outputs = ["dts"]

[render]
engine = "otto"
timeout = "250ms"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	var expected = &Config{
		Templates: TemplatesConfig{Extension: ".tt", Locale: "de-DE"},
		Generate:  GenerateConfig{OutDir: "/tmp/out/gen", Outputs: []string{"dts"}},
		Render:    RenderConfig{Engine: "otto", Timeout: Duration{250 * time.Millisecond}},
		Watch:     WatchConfig{Debounce: Duration{100 * time.Millisecond}},
	}
	if diff := cmp.Diff(expected, cfg); diff != "" {
		t.Errorf("Load() (-want +got):\n%s", diff)
	}
	if !cfg.HasOutput(OutputDTS) || cfg.HasOutput(OutputJS) {
		t.Errorf("HasOutput: unexpected outputs %v", cfg.Generate.Outputs)
	}
	if cfg.LocaleTag() != language.MustParse("de-DE") {
		t.Errorf("LocaleTag() = %v", cfg.LocaleTag())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"syntax", "[templates", "failed to parse config"},
		{"duration", "[render]\ntimeout = \"soon\"", "failed to parse config"},
		{"unknown key", "[render]\nengines = \"otto\"", "unknown config key \"render.engines\""},
		{"engine", "[render]\nengine = \"v8\"", "render.engine"},
		{"output", "[generate]\noutputs = [\"html\"]", "generate.outputs"},
		{"locale", "[templates]\nlocale = \"not a locale!\"", "templates.locale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.errText)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load() of missing file: expected error")
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "[templates]\nextension = \".page\"\n")
	t.Setenv("TSTMPL_CONFIG", path)
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Templates.Extension != ".page" {
		t.Errorf("Extension = %q, want .page", cfg.Templates.Extension)
	}

	t.Setenv("TSTMPL_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)
	cfg, err = LoadFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("LoadFromEnv() without file (-want +got):\n%s", diff)
	}
}
