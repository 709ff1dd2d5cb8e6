package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "depcheck [root]",
	Short: "Audit declared library dependencies against built object files",
	Long: "depcheck reads the dependency specification of a build, dumps the symbol tables of\n" +
		"every object file under <root>/<library>/, and reports imports that no declared\n" +
		"dependency provides, files missing on either side, and vtable/destructor hazards.\n\n" +
		"Exit codes: 0 dependencies match, 1 errors, 2 warnings only.",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCheck,
}

// ExitError ends the process with Code. A nil Err means the failure was
// already reported.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the wrapped message, or the exit code when there is none.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// Execute runs the command tree and exits with the audit's exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

// exitCode reports err on w unless it was already reported, and returns the
// process exit code for it.
func exitCode(err error, w io.Writer) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		if ee.Err != nil {
			fmt.Fprintln(w, "Error: "+ee.Err.Error())
		}
		return ee.Code
	}
	fmt.Fprintln(w, "Error: "+err.Error())
	return 1
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .depcheck.yaml)")
	pf.BoolP("verbose", "v", false, "echo every nm invocation")
	pf.String("spec", "", "dependency specification file (default dependencies.txt in root, then the working directory)")
	pf.String("suffix", "", "object file suffix (default .o)")
	pf.String("source", "", "symbol source: nm or elf (default nm)")
	pf.String("nm", "", "path to the nm binary (default nm)")
	pf.String("allowlist", "", "TOML file of allowed (file, symbol) imports")
	pf.Int("jobs", 0, "concurrent symbol reads (default one per CPU)")
	pf.String("hazard-namespace", "", "only report vtable hazards in namespaces with this prefix")
	pf.StringSlice("ignore-symbol", nil, "additional symbol names to ignore (repeatable)")
	pf.String("events", "", "append JSONL telemetry events to this file")
	pf.String("report", "", "write a YAML run summary to this file")
	pf.String("color", "", "colorize output: auto, always or never (default auto)")

	for key, flag := range map[string]string{
		"verbose":          "verbose",
		"spec_file":        "spec",
		"object_suffix":    "suffix",
		"source":           "source",
		"nm_path":          "nm",
		"allowlist_file":   "allowlist",
		"jobs":             "jobs",
		"hazard_namespace": "hazard-namespace",
		"ignore_symbols":   "ignore-symbol",
		"events_file":      "events",
		"report_file":      "report",
		"color":            "color",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.Flags().Bool("watch", false, "re-run the audit whenever the specification or an object file changes")
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".depcheck")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("DEPCHECK")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// rootArg returns the build root named on the command line, or ".".
func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
