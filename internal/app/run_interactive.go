package app

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/hoanghonghuy/commitbot/internal/ai"
	"github.com/hoanghonghuy/commitbot/internal/config"
)

// Action is the user's decision about a generated message in hook mode.
type Action int

const (
	ActionAccept Action = iota
	ActionRegenerate
	ActionEdit
	ActionCancel
)

// Prompter asks the user the questions the commit flow needs.
type Prompter interface {
	// TicketSummary asks for an optional one-line description of the ticket.
	TicketSummary() (string, error)
	// Categorize asks how the n-th of total staged files relates to the ticket.
	Categorize(n, total int, path string) (ai.FileCategory, error)
	Confirm(msg string) (Action, error)
	Edit(msg string) (string, error)
}

type huhPrompter struct{}

func (huhPrompter) TicketSummary() (string, error) {
	var summary string
	err := huh.NewInput().
		Title("Optional: brief ticket summary").
		Description("Press enter to skip").
		Value(&summary).
		Run()
	return summary, err
}

func (huhPrompter) Categorize(n, total int, path string) (ai.FileCategory, error) {
	options := make([]huh.Option[ai.FileCategory], 0, len(ai.Categories))
	for i, c := range ai.Categories {
		options = append(options, huh.NewOption(fmt.Sprintf("%d) %s", i+1, c.Label()), c))
	}

	category := ai.CategoryMain
	err := huh.NewSelect[ai.FileCategory]().
		Title(fmt.Sprintf("[%d / %d] %s", n, total, path)).
		Description("How does this file relate to the ticket?").
		Options(options...).
		Value(&category).
		Run()
	return category, err
}

func (huhPrompter) Confirm(string) (Action, error) {
	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What would you like to do?").
				Options(
					huh.NewOption("Use this message", "accept"),
					huh.NewOption("Regenerate", "regenerate"),
					huh.NewOption("Edit", "edit"),
					huh.NewOption("Cancel", "cancel"),
				).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return ActionCancel, err
	}

	switch selected {
	case "accept":
		return ActionAccept, nil
	case "edit":
		return ActionEdit, nil
	case "regenerate":
		return ActionRegenerate, nil
	default:
		return ActionCancel, nil
	}
}

func (huhPrompter) Edit(initialMsg string) (string, error) {
	content := initialMsg
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Edit Commit Message").
				Description("Modify the message below (Press Esc+Enter or standard submit key to finish)").
				Value(&content),
		),
	).Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// RunConfigEditor shows a form prefilled with cfg and saves the result to path
// (the default config path when empty).
func RunConfigEditor(cfg config.Config, path string, out io.Writer) error {
	provider := cfg.Provider
	if provider == "" {
		provider = config.DefaultProvider
	}
	model := cfg.Model
	baseURL := cfg.BaseURL
	apiKey := cfg.APIKey
	maxConcurrentStr := strconv.Itoa(cfg.MaxConcurrentRequests)
	stream := cfg.Stream
	ignoredFilesStr := strings.Join(cfg.IgnoredFiles, ", ")

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("commitbot configuration").
				Description("Update your global settings in ~/.config/commitbot.toml"),

			huh.NewSelect[string]().
				Title("Provider").
				Options(
					huh.NewOption("OpenAI (or compatible)", config.ProviderOpenAI),
					huh.NewOption("Ollama (local)", config.ProviderOllama),
				).
				Value(&provider),

			huh.NewInput().
				Title("Base URL").
				Description("Leave empty for the provider default").
				Placeholder("https://api.openai.com or http://localhost:11434").
				Value(&baseURL),

			huh.NewInput().
				Title("OpenAI API Key").
				Description("Not needed for Ollama; OPENAI_API_KEY also works").
				Value(&apiKey).
				EchoMode(huh.EchoModePassword),

			huh.NewInput().
				Title("Model").
				Description(`Model name, or "none" to disable model calls`).
				Suggestions([]string{config.DefaultModel, "gpt-4o-mini", "llama3", config.NoModel}).
				Value(&model),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Max concurrent requests").
				Description("Per-file summaries sent at once in --ask mode").
				Value(&maxConcurrentStr).
				Validate(func(s string) error {
					v, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil {
						return err
					}
					if v < 0 {
						return fmt.Errorf("must not be negative")
					}
					return nil
				}),

			huh.NewConfirm().
				Title("Stream replies").
				Description("Print the final message as it is generated?").
				Value(&stream),

			huh.NewInput().
				Title("Ignored Files").
				Description("Glob patterns (comma separated)").
				Value(&ignoredFilesStr),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(out, "Operation cancelled.")
			return nil
		}
		return err
	}

	cfg.Provider = provider
	cfg.Model = strings.TrimSpace(model)
	cfg.BaseURL = strings.TrimSpace(baseURL)
	cfg.APIKey = strings.TrimSpace(apiKey)
	if v, err := strconv.Atoi(strings.TrimSpace(maxConcurrentStr)); err == nil {
		cfg.MaxConcurrentRequests = v
	}
	cfg.Stream = stream
	cfg.IgnoredFiles = splitPatterns(ignoredFilesStr)

	written, err := config.Save(cfg, path)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(out, "\nConfiguration saved to %s\n", written)
	return nil
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
