package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/depcheck/internal/config"
	"github.com/papapumpkin/depcheck/internal/dag"
	"github.com/papapumpkin/depcheck/internal/depspec"
	"github.com/papapumpkin/depcheck/internal/resolve"
	"github.com/papapumpkin/depcheck/internal/symtab"
)

var validateCmd = &cobra.Command{
	Use:   "validate [root]",
	Short: "Check the dependency specification and the configured tools without auditing",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("failed to load config: %w", err)}
		}
		out, errw := cmd.OutOrStdout(), cmd.ErrOrStderr()
		ok := true

		reg, err := loadRegistry(cfg, rootArg(args))
		if err != nil {
			fmt.Fprintf(errw, "✗ specification: %v\n", err)
			ok = false
		} else {
			fmt.Fprintf(out, "✓ specification: %d items, %d libraries, %d object files\n",
				reg.Len(), len(reg.Libraries()), len(reg.Files()))
			if _, err := dag.FromRegistry(reg); err != nil {
				fmt.Fprintf(errw, "✗ dependency graph: %v\n", err)
				ok = false
			} else {
				fmt.Fprintln(out, "✓ dependency graph is acyclic")
			}
		}

		if cfg.Source == config.SourceNM {
			nm := &symtab.NM{Path: cfg.NMPath, Verbose: cfg.Verbose, Log: errw}
			if err := nm.Validate(context.Background()); err != nil {
				fmt.Fprintf(errw, "✗ nm: %v\n", err)
				ok = false
			} else {
				fmt.Fprintln(out, "✓ nm found")
			}
		}

		if cfg.AllowListFile != "" {
			allow, err := resolve.LoadAllowList(cfg.AllowListFile)
			if err != nil {
				fmt.Fprintf(errw, "✗ allow-list: %v\n", err)
				ok = false
			} else {
				fmt.Fprintf(out, "✓ allow-list: %d entries\n", allow.Len())
			}
		}

		if !ok {
			return &ExitError{Code: 1}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// loadRegistry locates and parses the specification of the build at root.
func loadRegistry(cfg config.Config, root string) (*depspec.Registry, error) {
	path, err := depspec.Locate(root, cfg.SpecFile)
	if err != nil {
		return nil, err
	}
	return depspec.ParseFile(path, depspec.Options{ObjectSuffix: cfg.ObjectSuffix})
}
