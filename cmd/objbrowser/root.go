package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/entrhq/objbrowser/pkg/config"
	"github.com/entrhq/objbrowser/pkg/executor/headless"
	"github.com/entrhq/objbrowser/pkg/executor/tui"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitRuntimeError = 1
	ExitInvalidUsage = 2
)

// Execute runs the CLI with the provided args.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	cmd := NewRootCommand(out, errOut)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			return ExitInvalidUsage
		}
		return ExitRuntimeError
	}
	return ExitSuccess
}

type usageError struct {
	err error
}

func (u *usageError) Error() string {
	if u.err == nil {
		return "invalid usage"
	}
	return u.err.Error()
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return &usageError{err: fmt.Errorf("accepts at most %d argument(s), got %d", n, len(args))}
		}
		return nil
	}
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return &usageError{err: fmt.Errorf("requires %d argument(s), got %d", n, len(args))}
		}
		return nil
	}
}

// NewRootCommand builds the root CLI command tree. Running the root command
// alone opens the browser.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "objbrowser [path]",
		Short:         "Browse a server's object tree in the terminal",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, opts, args)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML client configuration file")
	flags.StringVar(&opts.settingsPath, "settings", "", "settings file (default ~/.objbrowser/config.json)")
	flags.StringVar(&opts.pageURL, "page-url", "", "address of the hosting page, e.g. http://host:8084/?ObjPath=Root&TextMode=1")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout")
	flags.StringVar(&opts.verbosity, "verbosity", "", "log verbosity: quiet, normal, verbose or debug")

	root.AddCommand(newBrowseCommand(opts))
	root.AddCommand(newDumpCommand(opts))
	root.AddCommand(newLayoutCommand(opts))
	root.AddCommand(newSettingsCommand(opts))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the version",
		Args:  exactArgs(0),
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "objbrowser v%s\n", version)
		},
	})

	return root
}

func newBrowseCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "browse [path]",
		Short: "open the interactive browser",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, opts, args)
		},
	}
}

func runBrowse(cmd *cobra.Command, opts *globalOptions, args []string) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	path, err := s.rootPath(args)
	if err != nil {
		return err
	}

	exec := tui.NewExecutor(s.page, path,
		tui.WithPageURL(s.client.PageURL()),
		tui.WithTreeWidth(config.GetUI().GetTreeWidth()),
		tui.WithLogger(s.logger.With("tui")),
	)
	s.setOpenView(exec.OpenView)
	return exec.Run(cmd.Context())
}

func newDumpCommand(opts *globalOptions) *cobra.Command {
	var (
		specPath  string
		expand    []string
		show      []string
		layout    string
		artifacts string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "dump [path]",
		Short: "draw an object without a terminal UI and print the result",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.close()

			cfg := headless.DefaultConfig()
			if specPath != "" {
				if cfg, err = headless.LoadConfig(specPath); err != nil {
					return err
				}
			}
			if len(args) > 0 || cfg.Path == "" {
				if cfg.Path, err = s.rootPath(args); err != nil {
					return err
				}
			}
			cfg.Expand = append(cfg.Expand, expand...)
			for _, item := range show {
				path, target, ok := strings.Cut(item, "=")
				if !ok {
					return &usageError{err: fmt.Errorf("--show %q: want path=target", item)}
				}
				cfg.Show = append(cfg.Show, headless.ShowConfig{Path: path, Target: target})
			}
			if layout != "" {
				cfg.Layout = layout
			}
			if artifacts != "" {
				cfg.Artifacts.Enabled = true
				cfg.Artifacts.OutputDir = artifacts
			}
			if cmd.Flags().Changed("run-timeout") {
				cfg.Timeout = timeout
			}
			if cfg.Logging.Verbosity == "" || cmd.Flags().Changed("verbosity") {
				cfg.Logging.Verbosity = s.clientConfig.Logging.Verbosity
			}

			s.setOpenView(func(url, path string) {
				fmt.Fprintf(cmd.OutOrStdout(), "new view for %s: %s\n", path, url)
			})

			exec, err := headless.NewExecutor(s.page, cfg,
				headless.WithResources(s.resources),
				headless.WithOutput(cmd.OutOrStdout()),
			)
			if err != nil {
				return &usageError{err: err}
			}
			_, err = exec.Run(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "YAML dump description")
	cmd.Flags().StringSliceVar(&expand, "expand", nil, "branches to expand, parents first")
	cmd.Flags().StringArrayVar(&show, "show", nil, "path=target to show an object in a pane, e.g. Root/A=0x1")
	cmd.Flags().StringVar(&layout, "layout", "", "pane layout to apply, e.g. [[50,50]]")
	cmd.Flags().StringVar(&artifacts, "artifacts", "", "directory to write dump.json and summary.md into")
	cmd.Flags().DurationVar(&timeout, "run-timeout", time.Minute, "limit for the whole dump")
	return cmd
}

func newLayoutCommand(opts *globalOptions) *cobra.Command {
	layout := &cobra.Command{
		Use:   "layout",
		Short: "read and change stored pane layouts",
	}

	layout.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "print the layout of a browser view",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.close()

			path, err := s.rootPath(args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.layouts.Get(config.ScopeKey(path)).String())
			return nil
		},
	})

	layout.AddCommand(&cobra.Command{
		Use:   "set <path> <layout>",
		Short: "validate and store the layout of a browser view",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.close()

			stored, err := s.layouts.SetText(config.ScopeKey(args[0]), args[1])
			if err != nil {
				var layoutErr *config.LayoutError
				if errors.As(err, &layoutErr) {
					return &usageError{err: err}
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stored.String())
			return nil
		},
	})

	layout.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list the views that have a stored layout",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.close()

			keys := config.GetLayouts().Keys()
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k, s.layouts.Get(k).String())
			}
			return nil
		},
	})

	return layout
}

func newSettingsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "print every settings section as JSON",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.close()

			all := make(map[string]map[string]any)
			for _, section := range config.Global().GetSections() {
				all[section.ID()] = section.Data()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(all)
		},
	}
}
