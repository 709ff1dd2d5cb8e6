package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"SpecFile", cfg.SpecFile, "dependencies.txt"},
		{"ObjectSuffix", cfg.ObjectSuffix, ".o"},
		{"Source", cfg.Source, SourceNM},
		{"NMPath", cfg.NMPath, "nm"},
		{"Jobs", cfg.Jobs, 0},
		{"AllowListFile", cfg.AllowListFile, ""},
		{"HazardNamespace", cfg.HazardNamespace, ""},
		{"EventsFile", cfg.EventsFile, ""},
		{"ReportFile", cfg.ReportFile, ""},
		{"Color", cfg.Color, "auto"},
		{"Verbose", cfg.Verbose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
	if len(cfg.IgnoreSymbols) != 0 {
		t.Errorf("IgnoreSymbols = %v, want empty", cfg.IgnoreSymbols)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "nm_path",
			envKey: "DEPCHECK_NM_PATH",
			envVal: "/usr/bin/llvm-nm",
			field:  func(c Config) any { return c.NMPath },
			want:   "/usr/bin/llvm-nm",
		},
		{
			name:   "source",
			envKey: "DEPCHECK_SOURCE",
			envVal: "elf",
			field:  func(c Config) any { return c.Source },
			want:   SourceELF,
		},
		{
			name:   "jobs",
			envKey: "DEPCHECK_JOBS",
			envVal: "7",
			field:  func(c Config) any { return c.Jobs },
			want:   7,
		},
		{
			name:   "hazard_namespace",
			envKey: "DEPCHECK_HAZARD_NAMESPACE",
			envVal: "icu",
			field:  func(c Config) any { return c.HazardNamespace },
			want:   "icu",
		},
		{
			name:   "verbose",
			envKey: "DEPCHECK_VERBOSE",
			envVal: "true",
			field:  func(c Config) any { return c.Verbose },
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			// Set env prefix so DEPCHECK_* env vars map to config keys.
			viper.SetEnvPrefix("DEPCHECK")
			viper.AutomaticEnv()

			t.Setenv(tt.envKey, tt.envVal)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			got := tt.field(cfg)
			if got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	resetViper()

	path := filepath.Join(t.TempDir(), ".depcheck.yaml")
	content := `spec_file: deps/dependencies.txt
hazard_namespace: icu
ignore_symbols:
  - __tls_get_addr
  - _GLOBAL_OFFSET_TABLE_
color: never
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.SpecFile != "deps/dependencies.txt" || cfg.HazardNamespace != "icu" || cfg.Color != "never" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"__tls_get_addr", "_GLOBAL_OFFSET_TABLE_"}, cfg.IgnoreSymbols); diff != "" {
		t.Errorf("IgnoreSymbols mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key     string
		val     any
		wantErr string
	}{
		{"source", "objdump", "invalid source"},
		{"color", "sometimes", "invalid color"},
		{"jobs", -1, "jobs must not be negative"},
		{"object_suffix", "", "object_suffix must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			resetViper()
			viper.Set(tt.key, tt.val)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
