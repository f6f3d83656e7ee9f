package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hoanghonghuy/commitbot/internal/ai"
	"github.com/hoanghonghuy/commitbot/internal/chat"
	"github.com/hoanghonghuy/commitbot/internal/config"
	"github.com/hoanghonghuy/commitbot/internal/gitx"
	"github.com/hoanghonghuy/commitbot/internal/logging"
	"github.com/hoanghonghuy/commitbot/internal/ollama"
	"github.com/hoanghonghuy/commitbot/internal/openai"
	"github.com/hoanghonghuy/commitbot/internal/progress"
	"github.com/hoanghonghuy/commitbot/internal/prompt"
	"github.com/hoanghonghuy/commitbot/internal/telemetry"
)

// Options are the per-invocation switches that are not persisted in the config file.
type Options struct {
	RepoArg       string
	Ask           bool   // categorise files and summarise them one by one
	Apply         bool   // write the message to COMMIT_EDITMSG
	Stage         bool   // git add -A first
	HookFile      string // prepare-commit-msg target; enables the confirm loop
	TicketSummary string
	Verbosity     int
}

// Deps are the collaborators an App talks to. Zero values fall back to the real terminal.
type Deps struct {
	Out        io.Writer
	Err        io.Writer
	Logger     *zap.Logger
	Prompter   Prompter
	HTTPClient *http.Client
}

// App runs the commit and PR flows against one resolved configuration.
type App struct {
	cfg      *config.Config
	opts     Options
	logger   *zap.Logger
	provider ai.Provider
	recorder *telemetry.Recorder
	prompter Prompter
	out      io.Writer
	errOut   io.Writer
}

func New(cfg *config.Config, opts Options, deps Deps) (*App, error) {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Err == nil {
		deps.Err = os.Stderr
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Prompter == nil {
		deps.Prompter = huhPrompter{}
	}

	recorder, err := telemetry.NewRecorder()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	chatOpts := chat.Options{
		Logger:     deps.Logger,
		Metrics:    recorder.Metrics,
		HTTPClient: deps.HTTPClient,
	}
	if cfg.Stream {
		chatOpts.Live = deps.Out
	}

	return &App{
		cfg:      cfg,
		opts:     opts,
		logger:   deps.Logger,
		provider: NewProvider(cfg, opts.Verbosity >= logging.PromptVerbosity, chatOpts),
		recorder: recorder,
		prompter: deps.Prompter,
		out:      deps.Out,
		errOut:   deps.Err,
	}, nil
}

// NewProvider selects the backend once from the configuration.
func NewProvider(cfg *config.Config, logPrompts bool, opts chat.Options) ai.Provider {
	if cfg.ModelDisabled() {
		if opts.Logger != nil {
			opts.Logger.Debug("using no-op client, model calls disabled")
		}
		return ai.NoopClient{}
	}
	if opts.Logger != nil {
		opts.Logger.Debug("using model backend", zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	}
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.New(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Stream:     cfg.Stream,
			LogPrompts: logPrompts,
		}, opts)
	default:
		return openai.New(openai.Config{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Stream:     cfg.Stream,
			LogPrompts: logPrompts,
		}, opts)
	}
}

// Close logs the run's backend traffic and releases the metrics pipeline.
func (a *App) Close(ctx context.Context) error {
	s, err := a.recorder.Summary(ctx)
	if err == nil && s.Requests > 0 {
		a.logger.Debug("backend traffic",
			zap.Int64("requests", s.Requests),
			zap.Int64("errors", s.Errors),
			zap.Float64("seconds", s.TotalSeconds),
			zap.Any("by_mode", s.RequestsByMode))
	}
	return a.recorder.Shutdown(ctx)
}

type generateFunc func(ctx context.Context) (string, error)

// Commit generates a commit message for the staged changes.
func (a *App) Commit(ctx context.Context) error {
	root, err := gitx.ResolveRepoRoot(ctx, a.opts.RepoArg)
	if err != nil {
		return err
	}

	if a.opts.Stage {
		a.logger.Warn("staging all changes")
		if err := gitx.StageAll(ctx, root); err != nil {
			return err
		}
	}

	branch, err := gitx.CurrentBranch(ctx, root)
	if err != nil {
		return err
	}
	files, err := gitx.StagedFiles(ctx, root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No staged changes found.")
		return nil
	}
	if id, ok := gitx.DetectRepoID(ctx, root); ok {
		a.logger.Info("repository", zap.String("id", id), zap.String("branch", branch))
	}

	var generate generateFunc
	if a.opts.Ask {
		changes, ticket, err := a.collectChanges(ctx, root, branch, files)
		if err != nil {
			return err
		}
		summarized, err := a.summarize(ctx, branch, changes, ticket)
		if err != nil {
			return err
		}
		generate = func(ctx context.Context) (string, error) {
			return a.provider.GenerateCommitMessage(ctx, branch, summarized, ticket)
		}
	} else {
		diff, err := a.simpleDiff(ctx, root, files)
		if err != nil {
			return err
		}
		generate = func(ctx context.Context) (string, error) {
			return a.provider.GenerateCommitMessageSimple(ctx, branch, diff, a.opts.TicketSummary)
		}
	}

	const title = "Commit Message Preview"
	msg, err := a.produce(ctx, title, generate)
	if err != nil {
		return err
	}

	if a.opts.HookFile != "" {
		return a.confirmForHook(ctx, title, msg, generate)
	}
	if a.opts.Apply {
		path, err := gitx.WriteCommitEditMsg(ctx, root, msg+"\n")
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Commit message written to %s\n", path)
	}
	return nil
}

// PR generates a pull request description for base..from. An empty from means
// the current branch; a nil mode is detected from the commits.
func (a *App) PR(ctx context.Context, base, from string, mode *gitx.PRSummaryMode) error {
	root, err := gitx.ResolveRepoRoot(ctx, a.opts.RepoArg)
	if err != nil {
		return err
	}
	if from == "" {
		if from, err = gitx.CurrentBranch(ctx, root); err != nil {
			return err
		}
	}

	items, err := gitx.CollectPRItems(ctx, root, base, from)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintf(a.out, "No commits found between %s and %s.\n", base, from)
		return nil
	}

	m := gitx.DetectMode(items)
	if mode != nil {
		m = *mode
	}
	a.logger.Debug("PR range",
		zap.String("base", base),
		zap.String("from", from),
		zap.Stringer("mode", m),
		zap.Int("commits", len(items)))

	req := ai.PRRequest{
		BaseBranch:    base,
		FromBranch:    from,
		Mode:          m,
		Items:         items,
		TicketSummary: a.opts.TicketSummary,
	}
	_, err = a.produce(ctx, "PR Message Preview", func(ctx context.Context) (string, error) {
		return a.provider.GeneratePRMessage(ctx, req)
	})
	return err
}

// collectChanges reads every staged file's diff and asks the user how it relates to the ticket.
// Files matching an ignore pattern are categorised as ignored without asking.
func (a *App) collectChanges(ctx context.Context, root, branch string, files []string) ([]ai.FileChange, string, error) {
	ticket := a.opts.TicketSummary
	if ticket == "" {
		var err error
		if ticket, err = a.prompter.TicketSummary(); err != nil {
			return nil, "", err
		}
		ticket = strings.TrimSpace(ticket)
	}

	fmt.Fprintf(a.out, "Current branch: %s\nFound %d staged file(s).\n", branch, len(files))

	ignores := append(append([]string{}, defaultIgnores...), a.cfg.IgnoredFiles...)
	changes := make([]ai.FileChange, len(files))
	for i, path := range files {
		diff, err := gitx.StagedDiffForFile(ctx, root, path)
		if err != nil {
			return nil, "", err
		}

		category := ai.CategoryIgnored
		if shouldIgnore(path, ignores) {
			a.logger.Info("file matches an ignore pattern", zap.String("path", path))
		} else if category, err = a.prompter.Categorize(i+1, len(files), path); err != nil {
			return nil, "", err
		}

		changes[i] = ai.FileChange{
			Path:     path,
			Category: category,
			Diff:     prompt.TruncateDiff(diff),
		}
	}
	return changes, ticket, nil
}

func (a *App) summarize(ctx context.Context, branch string, changes []ai.FileChange, ticket string) ([]ai.FileChange, error) {
	tracker := progress.NewTracker(a.errOut, "Summarizing files", len(changes))
	tracker.Start()
	defer tracker.Stop()

	return ai.SummarizeFiles(ctx, a.provider, changes, ai.SummarizeOptions{
		Branch:        branch,
		TicketSummary: ticket,
		MaxConcurrent: a.cfg.MaxConcurrentRequests,
		Progress:      tracker,
		Logger:        a.logger,
	})
}

// simpleDiff returns the staged diff without files matching an ignore pattern.
func (a *App) simpleDiff(ctx context.Context, root string, files []string) (string, error) {
	ignores := append(append([]string{}, defaultIgnores...), a.cfg.IgnoredFiles...)
	var kept []string
	for _, f := range files {
		if !shouldIgnore(f, ignores) {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return "", fmt.Errorf("all %d staged files match ignore patterns", len(files))
	}

	if len(kept) == len(files) {
		diff, err := gitx.StagedDiff(ctx, root)
		if err != nil {
			return "", err
		}
		return prompt.TruncateDiff(diff), nil
	}

	a.logger.Info("skipping ignored files", zap.Int("ignored", len(files)-len(kept)))
	var b strings.Builder
	for _, f := range kept {
		diff, err := gitx.StagedDiffForFile(ctx, root, f)
		if err != nil {
			return "", err
		}
		b.WriteString(diff)
	}
	return prompt.TruncateDiff(b.String()), nil
}

// produce calls generate and shows the result. Streamed replies are printed as
// they arrive between a header and a footer; buffered ones are shown in a box.
func (a *App) produce(ctx context.Context, title string, generate generateFunc) (string, error) {
	if a.cfg.Stream && !a.cfg.ModelDisabled() {
		printStreamHeader(a.out, title)
		raw, err := generate(ctx)
		printStreamFooter(a.out)
		if err != nil {
			return "", err
		}
		return a.unwrap(raw), nil
	}

	stop := progress.Wait(a.errOut, "Generating "+strings.ToLower(strings.TrimSuffix(title, " Preview"))+"...")
	raw, err := generate(ctx)
	stop()
	if err != nil {
		return "", err
	}
	msg := a.unwrap(raw)
	printPreview(a.out, title, msg)
	return msg, nil
}

func (a *App) unwrap(raw string) string {
	msg, ok := prompt.ExtractOneTextCodeBlock(raw)
	if !ok {
		a.logger.Debug("reply is not fenced, using it verbatim")
	}
	return msg
}

// confirmForHook lets the user accept, edit or regenerate the message before
// it is written to the hook's message file.
func (a *App) confirmForHook(ctx context.Context, title, msg string, generate generateFunc) error {
	for {
		action, err := a.prompter.Confirm(msg)
		if err != nil {
			return err
		}

		switch action {
		case ActionAccept:
			if err := os.WriteFile(a.opts.HookFile, []byte(msg+"\n"), 0o644); err != nil {
				return fmt.Errorf("write hook file: %w", err)
			}
			fmt.Fprintln(a.out, "Message generated for git hook.")
			return nil

		case ActionEdit:
			if msg, err = a.prompter.Edit(msg); err != nil {
				return err
			}

		case ActionRegenerate:
			fmt.Fprintln(a.out, "Regenerating...")
			if msg, err = a.produce(ctx, title, generate); err != nil {
				return err
			}

		default:
			return errors.New("commit cancelled by user")
		}
	}
}

var defaultIgnores = []string{
	"go.sum", "package-lock.json", "yarn.lock", "pnpm-lock.yaml", "Cargo.lock",
	"*.map", "*.svg", "*.min.js", "*.min.css",
}

func shouldIgnore(pattern string, ignores []string) bool {
	base := filepath.Base(pattern)
	for _, ign := range ignores {
		if ign == base || ign == pattern {
			return true
		}
		if matched, _ := filepath.Match(ign, base); matched {
			return true
		}
	}
	return false
}
