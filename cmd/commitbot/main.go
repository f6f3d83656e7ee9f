// Package main provides the entry point for the commitbot CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hoanghonghuy/commitbot/internal/app"
	"github.com/hoanghonghuy/commitbot/internal/config"
	"github.com/hoanghonghuy/commitbot/internal/gitx"
	"github.com/hoanghonghuy/commitbot/internal/logging"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

type rootFlags struct {
	configPath    string
	repo          string
	ask           bool
	apply         bool
	stage         bool
	hookFile      string
	ticketSummary string
	verbose       int
	debug         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f rootFlags

	root := &cobra.Command{
		Use:   "commitbot",
		Short: "LLM-assisted Git commit message generator",
		Long: `commitbot writes a commit message for the staged changes.

By default the whole staged diff is sent in one request. With --ask each file
is categorised, summarised on its own (several at a time), and the message is
composed from the summaries. Use "commitbot pr <base>" for PR descriptions.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, &f, func(ctx context.Context, a *app.App) error {
				return a.Commit(ctx)
			})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default ~/.config/commitbot.toml)")
	pf.StringVar(&f.repo, "repo", "", "repository path (default: current directory)")
	pf.String("provider", "", "model backend: openai or ollama")
	pf.String("model", "", `model name; "none" disables model calls`)
	pf.Bool("no-model", false, "disable model calls and print dummy output")
	pf.String("api-key", "", "OpenAI API key (otherwise OPENAI_API_KEY)")
	pf.String("base-url", "", "backend base URL")
	pf.Int("max-concurrent-requests", config.DefaultMaxConcurrentRequests, "per-file summaries sent at once")
	pf.Bool("stream", config.DefaultStream, "print the final message as it is generated")
	pf.StringVar(&f.ticketSummary, "ticket-summary", "", "brief description of the ticket")
	pf.CountVarP(&f.verbose, "verbose", "v", "increase log verbosity (-v, -vv, -vvv)")
	pf.BoolVar(&f.debug, "debug", false, "debug logging, same as -vv")
	root.MarkFlagsMutuallyExclusive("model", "no-model")

	root.Flags().BoolVar(&f.ask, "ask", false, "categorise and summarise each staged file first")
	root.Flags().BoolVar(&f.apply, "apply", false, "write the message to .git/COMMIT_EDITMSG")
	root.Flags().BoolVar(&f.stage, "stage", false, "stage all changes (git add -A) first")
	root.Flags().StringVar(&f.hookFile, "hook", "", "write the accepted message to this file (used by the git hook)")
	_ = root.Flags().MarkHidden("hook")

	root.AddCommand(
		newPRCommand(&f),
		newConfigCommand(&f),
		newInstallHookCommand(&f),
		newVersionCommand(),
	)
	return root
}

func newPRCommand(f *rootFlags) *cobra.Command {
	var prMode, commitMode bool

	cmd := &cobra.Command{
		Use:   "pr <base> [from]",
		Short: "Generate a pull request description for base..from",
		Long: `Summarises the commits between base and from (default: the current branch).
Commits are grouped by PR number when at least two distinct "#123" references
are found; --pr and --commit force a mode.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from := ""
			if len(args) == 2 {
				from = args[1]
			}
			var mode *gitx.PRSummaryMode
			switch {
			case prMode:
				m := gitx.PRModePRs
				mode = &m
			case commitMode:
				m := gitx.PRModeCommits
				mode = &m
			}
			return withApp(cmd, f, func(ctx context.Context, a *app.App) error {
				return a.PR(ctx, args[0], from, mode)
			})
		},
	}
	cmd.Flags().BoolVar(&prMode, "pr", false, "group commits by PR number")
	cmd.Flags().BoolVar(&commitMode, "commit", false, "list commits one by one")
	cmd.MarkFlagsMutuallyExclusive("pr", "commit")
	return cmd
}

func newConfigCommand(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Edit the global configuration interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(f.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return app.RunConfigEditor(*cfg, f.configPath, cmd.OutOrStdout())
		},
	}
}

func newInstallHookCommand(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install-hook",
		Short: "Install a prepare-commit-msg hook that runs commitbot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := app.InstallHook(cmd.Context(), f.repo, cmd.OutOrStdout())
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "commitbot %s\n", version)
		},
	}
}

// withApp resolves configuration and logging, runs fn and reports backend traffic.
func withApp(cmd *cobra.Command, f *rootFlags, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load(f.configPath, cmd.Flags())
	if err != nil {
		return err
	}

	verbosity := max(f.verbose, cfg.Verbosity)
	if f.debug {
		verbosity = max(verbosity, 2)
	}
	logger := logging.New(verbosity, cmd.ErrOrStderr())
	defer func() { _ = logger.Sync() }()

	a, err := app.New(cfg, app.Options{
		RepoArg:       f.repo,
		Ask:           f.ask,
		Apply:         f.apply,
		Stage:         f.stage,
		HookFile:      f.hookFile,
		TicketSummary: f.ticketSummary,
		Verbosity:     verbosity,
	}, app.Deps{
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	runErr := fn(ctx, a)
	if err := a.Close(ctx); err != nil {
		logger.Debug("close metrics", zap.Error(err))
	}
	return runErr
}
