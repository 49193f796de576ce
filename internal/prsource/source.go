// Package prsource provides the pull request source the board links tasks
// to. Two variants exist, a simulated one over fixtures and a remote one over
// the GitHub API; the variant is fixed when the Service is built.
package prsource

import (
	"context"
	"strconv"
	"strings"

	"kanban/internal/models"
)

// Mode selects the source variant.
type Mode string

const (
	ModeMock Mode = "mock"
	ModeAPI  Mode = "api"
)

// Valid reports whether m names a known variant.
func (m Mode) Valid() bool {
	return m == ModeMock || m == ModeAPI
}

// Source is the contract both variants implement.
type Source interface {
	SearchPRs(ctx context.Context, query string) ([]models.GitHubPR, error)
	// GetPR returns nil when the pull request does not exist.
	GetPR(ctx context.Context, number int) (*models.GitHubPR, error)
	CreatePR(ctx context.Context, pr models.NewPR) (models.GitHubPR, error)
	Branches(ctx context.Context) ([]string, error)
}

// DefaultBranches is returned when branches cannot be listed.
var DefaultBranches = []string{"main", "develop"}

// filter keeps pull requests whose title, number or branch contains query.
// withAuthor also matches the author login.
func filter(prs []models.GitHubPR, query string, withAuthor bool) []models.GitHubPR {
	if query == "" {
		return prs
	}
	q := strings.ToLower(query)
	out := make([]models.GitHubPR, 0, len(prs))
	for _, pr := range prs {
		if strings.Contains(strings.ToLower(pr.Title), q) ||
			strings.Contains(strconv.Itoa(pr.Number), query) ||
			strings.Contains(strings.ToLower(pr.Branch), q) ||
			(withAuthor && strings.Contains(strings.ToLower(pr.Author), q)) {
			out = append(out, pr)
		}
	}
	return out
}
