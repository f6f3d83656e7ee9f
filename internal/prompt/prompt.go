// Package prompt builds the system and user messages sent to the model.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hoanghonghuy/commitbot/internal/ai"
	"github.com/hoanghonghuy/commitbot/internal/gitx"
)

// Message is one chat message in the role/content shape both backends accept.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Pair is a system prompt plus a user prompt.
type Pair struct {
	System string
	User   string
}

// Messages returns p as a system message followed by a user message.
func (p Pair) Messages() []Message {
	return []Message{
		{Role: "system", Content: p.System},
		{Role: "user", Content: p.User},
	}
}

func withTicket(system, ticketSummary string) string {
	if ticketSummary == "" {
		return system
	}
	return system + ticketGoalPrefix + ticketSummary
}

// FileSummary asks for a summary of one file's diff.
func FileSummary(item ai.WorkItem) Pair {
	return Pair{
		System: withTicket(fileSummaryInstructions, item.TicketSummary),
		User: fmt.Sprintf("Branch: %s\nFile: %s\nCategory: %s\n\nDiff:\n```diff\n%s\n```",
			item.Branch, item.Path, item.Category, item.Diff),
	}
}

// CommitMessage asks for a commit message built from per-file summaries.
// Ignored files are left out.
func CommitMessage(branch string, files []ai.FileChange, ticketSummary string) Pair {
	var b strings.Builder
	for _, f := range files {
		if f.Category == ai.CategoryIgnored {
			continue
		}
		summary := f.Summary
		if summary == "" {
			summary = missingSummary
		}
		fmt.Fprintf(&b, "File: %s\nCategory: %s\nSummary:\n%s\n\n", f.Path, f.Category, summary)
	}
	return Pair{
		System: withTicket(commitInstructions, ticketSummary),
		User:   fmt.Sprintf("Branch: %s\n\nPer-file summaries:\n\n%s", branch, b.String()),
	}
}

// CommitMessageSimple asks for a commit message straight from the whole diff.
func CommitMessageSimple(branch, diff, ticketSummary string) Pair {
	return Pair{
		System: withTicket(commitInstructions, ticketSummary),
		User:   fmt.Sprintf("Branch: %s\n\nDiff:\n```diff\n%s\n```", branch, diff),
	}
}

// PRMessage asks for a pull request description of the commits in req.
func PRMessage(req ai.PRRequest) Pair {
	var b strings.Builder
	fmt.Fprintf(&b, "Base branch: %s\nFeature branch: %s\nSummary mode: %s\n\n", req.BaseBranch, req.FromBranch, req.Mode)

	if req.Mode == gitx.PRModePRs {
		writeByPRs(&b, req.Items)
	} else {
		writeByCommits(&b, req.Items)
	}

	return Pair{
		System: withTicket(prInstructions, req.TicketSummary),
		User:   b.String(),
	}
}

func writeByCommits(b *strings.Builder, items []gitx.PRItem) {
	b.WriteString("Commit history (oldest first):\n")
	for _, it := range items {
		tag := ""
		if it.PRNumber != nil {
			tag = fmt.Sprintf(" (PR #%d)", *it.PRNumber)
		}
		fmt.Fprintf(b, "- %s%s: %s\n", it.ShortHash(), tag, strings.TrimSpace(it.Title))
		if strings.TrimSpace(it.Body) != "" {
			b.WriteString("  Body:\n  ")
			b.WriteString(strings.ReplaceAll(it.Body, "\n", "\n  "))
			b.WriteString("\n")
		}
	}
}

func writeByPRs(b *strings.Builder, items []gitx.PRItem) {
	groups := make(map[uint32][]gitx.PRItem)
	var numbers []uint32
	var loose []gitx.PRItem
	for _, it := range items {
		if it.PRNumber == nil {
			loose = append(loose, it)
			continue
		}
		n := *it.PRNumber
		if _, ok := groups[n]; !ok {
			numbers = append(numbers, n)
		}
		groups[n] = append(groups[n], it)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	b.WriteString("Pull requests contributing to this branch (oldest commits first):\n")
	for _, n := range numbers {
		group := groups[n]
		fmt.Fprintf(b, "\nPR #%d: %s [%s]\n", n, strings.TrimSpace(group[0].Title), group[0].ShortHash())
		if len(group) > 1 {
			b.WriteString("Additional commits in this PR:\n")
			for _, it := range group[1:] {
				fmt.Fprintf(b, "- %s: %s\n", it.ShortHash(), strings.TrimSpace(it.Title))
			}
		}
	}

	if len(loose) > 0 {
		b.WriteString("\nCommits without associated PR numbers (may be small fixes or direct pushes):\n")
		for _, it := range loose {
			fmt.Fprintf(b, "- %s: %s\n", it.ShortHash(), strings.TrimSpace(it.Title))
		}
	}
}

var reTextBlock = regexp.MustCompile("(?ms)^```(?:\\w+)?\\s*([\\s\\S]+?)\\s*```$")

// ExtractOneTextCodeBlock unwraps a reply fenced in a single code block.
// It returns the trimmed reply and false when no block is found.
func ExtractOneTextCodeBlock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	m := reTextBlock.FindStringSubmatch(s)
	if len(m) == 2 {
		return strings.TrimSpace(m[1]), true
	}
	return s, false
}

const (
	maxDiffBytes  = 100 << 10
	diffHeadBytes = 2000
)

// TruncateDiff keeps only the head of diffs larger than 100 KiB.
func TruncateDiff(diff string) string {
	if len(diff) <= maxDiffBytes {
		return diff
	}
	return diff[:diffHeadBytes] + fmt.Sprintf("\n... [diff truncated, %d bytes omitted]\n", len(diff)-diffHeadBytes)
}

// Truncate shortens s to at most n bytes for logging.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...\n[truncated %d chars]", s[:n], len(s)-n)
}

// Log records p at debug level, cut to limit bytes unless full is set.
func Log(logger *zap.Logger, op string, p Pair, limit int, full bool) {
	if logger == nil || !logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	user := p.User
	if !full {
		user = Truncate(user, limit)
	}
	fields := []zap.Field{zap.String("op", op), zap.String("user", user)}
	if full {
		fields = append(fields, zap.String("system", p.System))
	}
	logger.Debug("prompt", fields...)
}
