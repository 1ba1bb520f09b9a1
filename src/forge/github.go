package forge

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// GitHubForge implements Forge against the GitHub (or GitHub Enterprise)
// REST API.
type GitHubForge struct {
	client httpClient
	owner  string
	repo   string
}

// NewGitHub creates a GitHub forge client. baseURL is empty for github.com;
// for GitHub Enterprise Server pass the instance URL and the /api/v3 suffix
// is appended.
func NewGitHub(baseURL, token, owner, repo string) *GitHubForge {
	apiBase := "https://api.github.com"
	if baseURL != "" && !strings.Contains(baseURL, "github.com") {
		apiBase = strings.TrimRight(baseURL, "/") + "/api/v3"
	}

	return &GitHubForge{
		client: httpClient{
			base: apiBase,
			headers: map[string]string{
				"Authorization":        "Bearer " + token,
				"Accept":               "application/vnd.github+json",
				"X-GitHub-Api-Version": "2022-11-28",
			},
		},
		owner: owner,
		repo:  repo,
	}
}

// CompareCommits returns the filenames touched between base and head,
// following the compare API's file pagination.
func (g *GitHubForge) CompareCommits(ctx context.Context, base, head string) ([]string, error) {
	var files []string
	page := 1

	for {
		apiURL := fmt.Sprintf("%s/repos/%s/%s/compare/%s...%s?per_page=100&page=%d",
			g.client.base,
			url.PathEscape(g.owner), url.PathEscape(g.repo),
			url.PathEscape(base), url.PathEscape(head), page)

		var resp struct {
			Files []struct {
				Filename string `json:"filename"`
			} `json:"files"`
		}

		if _, err := g.client.doJSON(ctx, "GET", apiURL, nil, &resp); err != nil {
			return nil, fmt.Errorf("comparing %s...%s in %s/%s: %w", base, head, g.owner, g.repo, err)
		}

		for _, f := range resp.Files {
			files = append(files, f.Filename)
		}
		if len(resp.Files) < 100 {
			break
		}
		page++
	}

	return files, nil
}
