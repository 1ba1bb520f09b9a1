package registry

import (
	"context"
	"fmt"
	"net/url"
)

// GHCR implements the Registry interface for GitHub Container Registry
// (ghcr.io), backed by the GitHub packages REST API. The token needs the
// read:packages scope.
type GHCR struct {
	client httpClient
	owner  string
}

// NewGHCR creates a GHCR client for one repository owner. baseURL is empty
// for github.com.
func NewGHCR(baseURL, token, owner string) *GHCR {
	apiBase := "https://api.github.com"
	if baseURL != "" {
		apiBase = baseURL
	}
	return &GHCR{
		client: httpClient{
			base: apiBase,
			headers: map[string]string{
				"Authorization":        "Bearer " + token,
				"Accept":               "application/vnd.github+json",
				"X-GitHub-Api-Version": "2022-11-28",
			},
		},
		owner: owner,
	}
}

// packageVersion is the subset of the packages API version object we read.
type packageVersion struct {
	ID       int `json:"id"`
	Metadata struct {
		Container struct {
			Tags []string `json:"tags"`
		} `json:"container"`
	} `json:"metadata"`
}

// TagExists reports whether the tag is already published for image.
// An unpublished package (404 from the listing API) means the tag cannot
// exist; any other failure propagates and fails the run.
func (g *GHCR) TagExists(ctx context.Context, image, tag string) (bool, error) {
	tags, err := g.ListTags(ctx, image)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	for _, t := range tags {
		if t == tag {
			return true, nil
		}
	}
	return false, nil
}

// ListTags returns every published tag of a container package.
func (g *GHCR) ListTags(ctx context.Context, image string) ([]string, error) {
	var all []string
	page := 1

	for {
		versions, err := g.listVersions(ctx, image, page)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			break
		}
		for _, v := range versions {
			all = append(all, v.Metadata.Container.Tags...)
		}
		page++
	}

	return all, nil
}

// listVersions fetches one page of package versions. Personal accounts live
// under /users, organizations under /orgs; we try the user endpoint first
// and fall back, so a not-found only counts when both agree.
func (g *GHCR) listVersions(ctx context.Context, image string, page int) ([]packageVersion, error) {
	var versions []packageVersion

	userURL := fmt.Sprintf("%s/users/%s/packages/container/%s/versions?per_page=100&page=%d",
		g.client.base, url.PathEscape(g.owner), url.PathEscape(image), page)
	userErr := g.client.getJSON(ctx, userURL, &versions)
	if userErr == nil {
		return versions, nil
	}

	orgURL := fmt.Sprintf("%s/orgs/%s/packages/container/%s/versions?per_page=100&page=%d",
		g.client.base, url.PathEscape(g.owner), url.PathEscape(image), page)
	orgErr := g.client.getJSON(ctx, orgURL, &versions)
	if orgErr == nil {
		return versions, nil
	}

	if isNotFound(userErr) && isNotFound(orgErr) {
		return nil, orgErr
	}
	if !isNotFound(orgErr) {
		return nil, fmt.Errorf("listing versions for %s/%s: %w", g.owner, image, orgErr)
	}
	return nil, fmt.Errorf("listing versions for %s/%s: %w", g.owner, image, userErr)
}
