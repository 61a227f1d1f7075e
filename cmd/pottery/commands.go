package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spachava753/pottery/internal/action"
	"github.com/spachava753/pottery/internal/api"
	"github.com/spachava753/pottery/internal/config"
	"github.com/spachava753/pottery/internal/display"
	"github.com/spachava753/pottery/internal/models"
	"github.com/spachava753/pottery/internal/runner"
)

// errRequestFailed makes the process exit non-zero after the failure has
// already been shown.
var errRequestFailed = errors.New("request failed")

type app struct {
	configPath string
	cfg        config.ClientConfig
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "pottery",
		Short:         "Drive the task, repo and submission API of a grading server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClientConfig(a.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			setupLogging(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./pottery.yaml if present)")
	flags.String("server", "", "grading server URL")
	flags.String("session", "", "session file holding field values")
	flags.Duration("timeout", 0, "per-request timeout (0 for none)")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	for _, t := range action.Triggers() {
		root.AddCommand(a.triggerCommand(t))
	}
	root.AddCommand(a.fieldsCommand(), a.triggersCommand(), a.runCommand())

	return root
}

func (a *app) triggerCommand(t action.Trigger) *cobra.Command {
	return &cobra.Command{
		Use:   t.Name + " [field=value ...]",
		Short: t.Usage,
		Long:  fmt.Sprintf("%s\n\n%s %s", t.Usage, t.Method, t.Pattern),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseAssignments(args)
			if err != nil {
				return err
			}

			session, err := config.LoadSession(a.cfg.SessionFile)
			if err != nil {
				return err
			}
			session.Fields.Merge(overrides)

			invoker := action.NewInvoker(a.client(), display.New())
			outcome, err := invoker.Invoke(cmd.Context(), t.Name, session.Fields)
			if err != nil {
				return err
			}
			session.Fields.Merge(outcome.Copied)

			if err := config.SaveSession(a.cfg.SessionFile, session); err != nil {
				return err
			}
			if err := invoker.Display().Render(cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
				return err
			}

			if !outcome.Success {
				return errRequestFailed
			}
			return nil
		},
	}
}

func (a *app) fieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields [field=value ...]",
		Short: "Show or set session fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := config.LoadSession(a.cfg.SessionFile)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				overrides, err := parseAssignments(args)
				if err != nil {
					return err
				}
				session.Fields.Merge(overrides)
				if err := config.SaveSession(a.cfg.SessionFile, session); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range session.Fields.Names() {
				fmt.Fprintf(w, "%s\t%s\n", name, session.Fields.Get(name))
			}
			return w.Flush()
		},
	}
}

func (a *app) triggersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "triggers",
		Short: "List available triggers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range action.Triggers() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.Method, t.Pattern)
			}
			return w.Flush()
		},
	}
}

func (a *app) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <flow.yaml>",
		Short: "Run a flow of triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := config.LoadSession(a.cfg.SessionFile)
			if err != nil {
				return err
			}

			invoker := action.NewInvoker(a.client(), display.New())
			r := runner.New(invoker, session.Fields)

			result, runErr := r.RunFromFile(cmd.Context(), args[0])

			session.Fields = r.Fields()
			if err := config.SaveSession(a.cfg.SessionFile, session); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			if err := invoker.Display().Render(out, cmd.ErrOrStderr()); err != nil {
				return err
			}
			printSummary(out, result)

			if result.Failed > 0 || result.Cancelled {
				return errRequestFailed
			}
			return nil
		},
	}
}

func (a *app) client() *api.Client {
	return api.NewClient(a.cfg.ServerURL, api.WithTimeout(a.cfg.Timeout))
}

func printSummary(w io.Writer, result *models.FlowResult) {
	name := result.FlowName
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(w, "\nFlow: %s\n", name)
	fmt.Fprintf(w, "Steps: %d\n", result.TotalSteps)
	fmt.Fprintf(w, "Requests: %d\n", result.Invocations)
	fmt.Fprintf(w, "Succeeded: %d\n", result.Succeeded)
	fmt.Fprintf(w, "Failed: %d\n", result.Failed)
	fmt.Fprintf(w, "Skipped steps: %d\n", result.SkippedSteps)
	fmt.Fprintf(w, "Duration: %.2fs\n", result.TotalDurationSec)
}

// parseAssignments turns "name=value" arguments into fields. The value may
// be empty; the name may not.
func parseAssignments(args []string) (models.Fields, error) {
	fields := models.Fields{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		fields[name] = value
	}
	return fields, nil
}

func setupLogging(w io.Writer, level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if w == nil {
		w = os.Stderr
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}
