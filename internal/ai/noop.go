package ai

import (
	"context"
	"fmt"
	"strings"
)

// NoopClient returns canned text instead of calling a model. Used with --no-model or model "none".
type NoopClient struct{}

func (NoopClient) SummarizeFile(_ context.Context, item WorkItem) (string, error) {
	return fmt.Sprintf("[DUMMY SUMMARY] %s (%s)", item.Path, item.Category), nil
}

func (NoopClient) GenerateCommitMessage(_ context.Context, branch string, files []FileChange, ticketSummary string) (string, error) {
	var b strings.Builder
	b.WriteString("Dummy commit message for testing\n\n")
	fmt.Fprintf(&b, "Branch: %s\n", branch)
	if ticketSummary != "" {
		fmt.Fprintf(&b, "Ticket: %s\n\n", ticketSummary)
	} else {
		b.WriteString("\n")
	}

	for _, f := range files {
		if f.Category == CategoryIgnored {
			continue
		}
		summary := f.Summary
		if summary == "" {
			summary = "[no summary; dummy client]"
		}
		fmt.Fprintf(&b, "- %s [%s]: %s\n", f.Path, f.Category, summary)
	}
	return b.String(), nil
}

func (NoopClient) GenerateCommitMessageSimple(_ context.Context, branch, _, _ string) (string, error) {
	return fmt.Sprintf("Dummy simple commit message for branch %s\n\n(LLM disabled)", branch), nil
}

func (NoopClient) GeneratePRMessage(_ context.Context, req PRRequest) (string, error) {
	var b strings.Builder
	b.WriteString("Dummy PR description for testing\n\n")
	fmt.Fprintf(&b, "Base branch: %s\nFeature branch: %s\nMode: %s\n\n", req.BaseBranch, req.FromBranch, req.Mode)
	if req.TicketSummary != "" {
		fmt.Fprintf(&b, "Ticket summary: %s\n\n", req.TicketSummary)
	}

	for _, item := range req.Items {
		pr := "none"
		if item.PRNumber != nil {
			pr = fmt.Sprintf("%d", *item.PRNumber)
		}
		fmt.Fprintf(&b, "- %s %s (PR #%s)\n", item.ShortHash(), strings.TrimSpace(item.Title), pr)
	}
	return b.String(), nil
}
