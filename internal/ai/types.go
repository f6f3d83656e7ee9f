package ai

import "fmt"

// FileCategory is how the user relates a staged file to the ticket.
type FileCategory int

const (
	CategoryMain FileCategory = iota
	CategorySupporting
	CategoryConsequence
	CategoryIgnored
)

// Categories lists the categories in menu order.
var Categories = []FileCategory{CategoryMain, CategorySupporting, CategoryConsequence, CategoryIgnored}

func (c FileCategory) String() string {
	switch c {
	case CategoryMain:
		return "main"
	case CategorySupporting:
		return "supporting"
	case CategoryConsequence:
		return "consequence"
	case CategoryIgnored:
		return "ignored"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Label is the human-facing menu text.
func (c FileCategory) Label() string {
	switch c {
	case CategoryMain:
		return "Main purpose"
	case CategorySupporting:
		return "Supporting change"
	case CategoryConsequence:
		return "Consequence / ripple"
	default:
		return "Ignore / unrelated cleanup"
	}
}

// FileChange is a single staged file's change and metadata.
type FileChange struct {
	Path     string
	Category FileCategory
	Diff     string
	Summary  string // filled by the per-file model call; empty when not summarized
}

// WorkItem is one per-file summary request. Index is the file's position in
// the staged file list.
type WorkItem struct {
	Index         int
	Branch        string
	Path          string
	Category      FileCategory
	Diff          string
	TicketSummary string
}
