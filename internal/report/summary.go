package report

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/papapumpkin/depcheck/internal/diag"
)

// Summary is the machine-readable record of one audit.
type Summary struct {
	RunID       string            `yaml:"run_id,omitempty"`
	Root        string            `yaml:"root"`
	Spec        string            `yaml:"spec"`
	Items       int               `yaml:"items"`
	Declared    int               `yaml:"declared_files"`
	Loaded      int               `yaml:"loaded_files"`
	Infos       int               `yaml:"infos"`
	Warnings    int               `yaml:"warnings"`
	Errors      int               `yaml:"errors"`
	Verdict     Verdict           `yaml:"verdict"`
	ExitCode    int               `yaml:"exit_code"`
	Checks      []CheckResult     `yaml:"checks,omitempty"`
	Diagnostics []diag.Diagnostic `yaml:"diagnostics,omitempty"`
}

// WriteYAML encodes s as a YAML document.
func WriteYAML(w io.Writer, s Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}

// WriteYAMLFile writes s to path, replacing any existing file.
func WriteYAMLFile(path string, s Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := WriteYAML(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
