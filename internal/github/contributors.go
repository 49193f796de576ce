package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/sync/errgroup"

	"kanban/internal/models"
)

const (
	maxContributors   = 10
	maxCommitters     = 10
	commitsPerPage    = 50
	committerWindow   = 30 * 24 * time.Hour
	pmContributions   = 50
	detailConcurrency = 4
)

// member is a GitHub account with the optional contribution count.
type member struct {
	user          *gh.User
	contributions int
}

// AllUsers returns repository contributors followed by recent committers
// that are not contributors, deduplicated by GitHub id. A failing list is
// logged and treated as empty; only when both fail is an error returned.
func (c *Client) AllUsers(ctx context.Context) ([]models.User, error) {
	var contributors, committers []models.User
	var contributorsErr, committersErr error
	var g errgroup.Group
	g.Go(func() error {
		contributors, contributorsErr = c.contributors(ctx)
		return nil
	})
	g.Go(func() error {
		committers, committersErr = c.recentCommitters(ctx)
		return nil
	})
	_ = g.Wait()
	if contributorsErr != nil && committersErr != nil {
		return nil, errors.Join(contributorsErr, committersErr)
	}
	for _, err := range []error{contributorsErr, committersErr} {
		if err != nil {
			c.logger.Warn("github user list failed", slog.String("error", err.Error()))
		}
	}

	seen := make(map[string]struct{}, len(contributors)+len(committers))
	users := make([]models.User, 0, len(contributors)+len(committers))
	for _, list := range [][]models.User{contributors, committers} {
		for _, u := range list {
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}
			users = append(users, u)
		}
	}
	c.logger.Info("github users fetched",
		slog.Int("contributors", len(contributors)),
		slog.Int("committers", len(committers)),
		slog.Int("unique", len(users)))
	return users, nil
}

// contributors returns the top repository contributors with profiles.
func (c *Client) contributors(ctx context.Context) ([]models.User, error) {
	list, _, err := c.gh.Repositories.ListContributors(ctx, c.owner, c.repo, &gh.ListContributorsOptions{
		ListOptions: gh.ListOptions{PerPage: maxContributors},
	})
	if err != nil {
		return nil, fmt.Errorf("list contributors: %w", err)
	}
	if len(list) > maxContributors {
		list = list[:maxContributors]
	}
	members := make([]member, 0, len(list))
	for _, ct := range list {
		members = append(members, member{
			user: &gh.User{
				ID:        ct.ID,
				Login:     ct.Login,
				AvatarURL: ct.AvatarURL,
				HTMLURL:   ct.HTMLURL,
			},
			contributions: ct.GetContributions(),
		})
	}
	return c.resolve(ctx, members), nil
}

// recentCommitters returns distinct authors of recent commits with profiles.
func (c *Client) recentCommitters(ctx context.Context) ([]models.User, error) {
	commits, _, err := c.gh.Repositories.ListCommits(ctx, c.owner, c.repo, &gh.CommitsListOptions{
		Since:       c.now().Add(-committerWindow),
		ListOptions: gh.ListOptions{PerPage: commitsPerPage},
	})
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	seen := make(map[string]struct{})
	var members []member
	for _, commit := range commits {
		author := commit.GetAuthor()
		login := author.GetLogin()
		if login == "" {
			continue
		}
		if _, ok := seen[login]; ok {
			continue
		}
		seen[login] = struct{}{}
		members = append(members, member{user: author})
		if len(members) == maxCommitters {
			break
		}
	}
	return c.resolve(ctx, members), nil
}

// resolve fetches full profiles. A failed lookup keeps the summary record.
func (c *Client) resolve(ctx context.Context, members []member) []models.User {
	out := make([]models.User, len(members))
	var g errgroup.Group
	g.SetLimit(detailConcurrency)
	for i, m := range members {
		i, m := i, m
		g.Go(func() error {
			u := m.user
			full, _, err := c.gh.Users.Get(ctx, m.user.GetLogin())
			if err != nil {
				c.logger.Debug("fetch github user failed",
					slog.String("login", m.user.GetLogin()), slog.String("error", err.Error()))
			} else if full != nil {
				u = full
			}
			out[i] = mapUser(u, m.contributions)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// mapUser converts a GitHub account to a board member.
func mapUser(u *gh.User, contributions int) models.User {
	login := u.GetLogin()
	name := u.GetName()
	if name == "" {
		name = login
	}
	email := u.GetEmail()
	if email == "" {
		email = login + "@github.com"
	}
	return models.User{
		ID:            strconv.FormatInt(u.GetID(), 10),
		Name:          name,
		Email:         email,
		Avatar:        u.GetAvatarURL(),
		Role:          inferRole(u.GetBio(), contributions),
		Login:         login,
		Bio:           u.GetBio(),
		Company:       u.GetCompany(),
		Location:      u.GetLocation(),
		GitHubURL:     u.GetHTMLURL(),
		Contributions: contributions,
	}
}

// inferRole guesses a team role from the bio and contribution count.
func inferRole(bio string, contributions int) models.UserRole {
	bio = strings.ToLower(bio)
	switch {
	case contributions > pmContributions:
		return models.RolePM
	case strings.Contains(bio, "design"):
		return models.RoleDesigner
	case strings.Contains(bio, "qa"):
		return models.RoleQA
	}
	return models.RoleDeveloper
}
