package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/depcheck/internal/audit"
	"github.com/papapumpkin/depcheck/internal/config"
	"github.com/papapumpkin/depcheck/internal/report"
	"github.com/papapumpkin/depcheck/internal/resolve"
	"github.com/papapumpkin/depcheck/internal/symtab"
	"github.com/papapumpkin/depcheck/internal/telemetry"
)

var checkCmd = &cobra.Command{
	Use:   "check [root]",
	Short: "Audit the build under root against its dependency specification",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Bool("watch", false, "re-run the audit whenever the specification or an object file changes")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return &ExitError{Code: report.ExitErrors, Err: err}
	}
	mode, err := report.ParseColorMode(cfg.Color)
	if err != nil {
		return &ExitError{Code: report.ExitErrors, Err: err}
	}
	printer := report.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
	root := rootArg(args)

	opts, err := auditOptions(cfg, root, cmd.ErrOrStderr())
	if err != nil {
		printer.Fatal(err)
		return &ExitError{Code: report.ExitErrors}
	}

	var em *telemetry.Emitter
	if cfg.EventsFile != "" {
		if em, err = telemetry.NewEmitter(cfg.EventsFile); err != nil {
			printer.Fatal(err)
			return &ExitError{Code: report.ExitErrors}
		}
		defer em.Close()
	}
	opts.Events = em

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		printer.Infof("watching %s for changes (interrupt to stop)", root)
		err := audit.Watch(ctx, opts, func(res *audit.Result, err error) {
			_ = finish(printer, cfg, root, em.RunID(), res, err)
		})
		if err != nil {
			printer.Fatal(err)
			return &ExitError{Code: report.ExitErrors}
		}
		return nil
	}

	res, err := audit.Run(ctx, opts)
	return finish(printer, cfg, root, em.RunID(), res, err)
}

// finish prints one audit outcome, writes the YAML summary if configured,
// and maps the verdict to an *ExitError.
func finish(printer *report.Printer, cfg config.Config, root, runID string, res *audit.Result, err error) error {
	if err != nil {
		printer.Fatal(err)
		return &ExitError{Code: report.ExitErrors}
	}
	for _, d := range res.Diagnostics {
		printer.Diagnostic(d)
	}
	printer.Verdict(res.Verdict)

	if cfg.ReportFile != "" {
		if err := report.WriteYAMLFile(cfg.ReportFile, res.Summary(root, runID)); err != nil {
			printer.Fatal(err)
			return &ExitError{Code: report.ExitErrors}
		}
	}
	if code := res.ExitCode(); code != report.ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}

// auditOptions translates configuration into audit options.
func auditOptions(cfg config.Config, root string, log io.Writer) (audit.Options, error) {
	allow, err := resolve.LoadAllowList(cfg.AllowListFile)
	if err != nil {
		return audit.Options{}, err
	}
	return audit.Options{
		Root:         root,
		SpecFile:     cfg.SpecFile,
		ObjectSuffix: cfg.ObjectSuffix,
		Source:       newSource(cfg, log),
		Classifier: symtab.Classifier{
			IgnoreNames:     cfg.IgnoreSymbols,
			HazardNamespace: cfg.HazardNamespace,
		},
		Jobs:      cfg.Jobs,
		AllowList: allow,
	}, nil
}

// newSource returns the configured symbol source.
func newSource(cfg config.Config, log io.Writer) symtab.Source {
	if cfg.Source == config.SourceELF {
		return symtab.ELF{}
	}
	return &symtab.NM{Path: cfg.NMPath, Verbose: cfg.Verbose, Log: log}
}
