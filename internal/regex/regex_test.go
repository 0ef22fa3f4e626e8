package regex

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepoPatterns(t *testing.T) {
	m := SSHRepo.FindStringSubmatch("git@github.com:acme/svc-a.git")
	assert.Equal(t, []string{"git@github.com:acme/svc-a.git", "github.com", "acme/svc-a"}, m)

	m = HTTPSRepo.FindStringSubmatch("https://gitlab.example.com/group/sub/svc-b.git")
	assert.Equal(t, "gitlab.example.com", m[1])
	assert.Equal(t, "group/sub/svc-b", m[2])

	assert.True(t, RepoPath.MatchString("acme/svc-a"))
	assert.True(t, RepoPath.MatchString("group/sub/svc-b"))
	assert.False(t, RepoPath.MatchString("svc-a"))
}

func TestHyperlinkFormula(t *testing.T) {
	m := HyperlinkFormula.FindStringSubmatch(`=HYPERLINK("https://jira/browse/P-1","ID1 - say ""hi""")`)

	assert.Equal(t, "https://jira/browse/P-1", m[1])
	assert.Equal(t, `ID1 - say ""hi""`, m[2])
	assert.Nil(t, HyperlinkFormula.FindStringSubmatch("ID1 - plain"))
}

func TestBranchPatterns(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    string
	}{
		{BranchFeatureFolder, "feature/12345-fix-login", "12345"},
		{BranchIssueSharp, "Fix login (#77)", "77"},
		{BranchIssueName, "issue-88", "88"},
		{BranchIssueStart, "99-hotfix", "99"},
		{BranchIssueFolder, "users/ann/123-thing", "123"},
		{BranchIssueID, "ID 456 rework", "456"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := regexp.MustCompile(tt.pattern).FindStringSubmatch(tt.input)
			if assert.Len(t, m, 2) {
				assert.Equal(t, tt.want, m[1])
			}
		})
	}
}
