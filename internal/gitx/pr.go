package gitx

import (
	"context"
	"math"
	"strings"
)

// PRSummaryMode selects how a pull request description is organised.
type PRSummaryMode int

const (
	PRModeCommits PRSummaryMode = iota
	PRModePRs
)

func (m PRSummaryMode) String() string {
	if m == PRModePRs {
		return "prs"
	}
	return "commits"
}

// PRItem is one commit in a PR range plus the PR number it mentions, if any.
type PRItem struct {
	CommitHash string
	Title      string
	Body       string
	PRNumber   *uint32
}

// ShortHash returns the first seven characters of the commit hash.
func (it PRItem) ShortHash() string {
	if len(it.CommitHash) <= 7 {
		return it.CommitHash
	}
	return it.CommitHash[:7]
}

const logRecordEnd = "---END---"

// CollectPRItems lists commits in base..from, oldest first.
func CollectPRItems(ctx context.Context, repoRoot, base, from string) ([]PRItem, error) {
	out, err := Git(ctx, repoRoot, "log", "--reverse",
		"--pretty=format:%H%n%s%n%b%n"+logRecordEnd, base+".."+from)
	if err != nil {
		return nil, err
	}
	return parsePRLog(out), nil
}

func parsePRLog(out string) []PRItem {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	if strings.TrimSpace(out) == "" {
		return nil
	}

	var items []PRItem
	for _, block := range strings.Split(out, "\n"+logRecordEnd) {
		block = strings.TrimSpace(block)
		if block == "" || block == logRecordEnd {
			continue
		}
		lines := strings.Split(block, "\n")
		item := PRItem{CommitHash: strings.TrimSpace(lines[0])}
		if len(lines) > 1 {
			item.Title = strings.TrimSpace(lines[1])
		}
		if len(lines) > 2 {
			item.Body = strings.Join(lines[2:], "\n")
		}

		if n, ok := FindFirstPRNumber(item.Title); ok {
			item.PRNumber = &n
		} else if n, ok := FindFirstPRNumber(item.Body); ok {
			item.PRNumber = &n
		}
		items = append(items, item)
	}
	return items
}

// FindFirstPRNumber returns the number in the first "#<digits>" of text.
// Values that overflow saturate at math.MaxUint32.
func FindFirstPRNumber(text string) (uint32, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '#' {
			continue
		}
		var value uint64
		j := i + 1
		for ; j < len(text) && text[j] >= '0' && text[j] <= '9'; j++ {
			value = value*10 + uint64(text[j]-'0')
			if value > math.MaxUint32 {
				value = math.MaxUint32
			}
		}
		if j > i+1 {
			return uint32(value), true
		}
	}
	return 0, false
}

// DetectMode picks PRModePRs when the items reference at least two distinct PR numbers.
func DetectMode(items []PRItem) PRSummaryMode {
	seen := make(map[uint32]struct{})
	for _, it := range items {
		if it.PRNumber != nil {
			seen[*it.PRNumber] = struct{}{}
		}
	}
	if len(seen) >= 2 {
		return PRModePRs
	}
	return PRModeCommits
}
