package ai

import (
	"context"

	"github.com/hoanghonghuy/commitbot/internal/gitx"
)

// Provider defines the interface for a model backend (OpenAI, Ollama, or the no-op client).
// Implementations are selected once at startup from the configured provider.
type Provider interface {
	// SummarizeFile explains one changed file so the final message can be composed from summaries.
	SummarizeFile(ctx context.Context, item WorkItem) (string, error)
	// GenerateCommitMessage writes the commit message from per-file summaries.
	GenerateCommitMessage(ctx context.Context, branch string, files []FileChange, ticketSummary string) (string, error)
	// GenerateCommitMessageSimple writes the commit message from the whole staged diff.
	GenerateCommitMessageSimple(ctx context.Context, branch, diff, ticketSummary string) (string, error)
	// GeneratePRMessage writes a pull-request description from the commits of a branch.
	GeneratePRMessage(ctx context.Context, req PRRequest) (string, error)
}

// PRRequest carries everything needed to describe a pull request.
type PRRequest struct {
	BaseBranch    string
	FromBranch    string
	Mode          gitx.PRSummaryMode
	Items         []gitx.PRItem
	TicketSummary string
}
