package gitx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRepoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"git@github.com:owner/repo.git", "owner/repo", true},
		{"https://github.com/owner/repo", "owner/repo", true},
		{"https://gitlab.com/group/sub/repo.git\n", "sub/repo", true},
		{"ssh://git@host:22/owner/repo.git", "owner/repo", true},
		{"repo", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := parseRepoID(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
