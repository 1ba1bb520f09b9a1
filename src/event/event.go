// Package event parses the triggering push event: which repository, which
// ref, which commits. The run is fatal without a complete event: there is
// nothing sensible to plan against.
package event

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// zeroSHA is the before-value GitHub sends for branch creation pushes.
const zeroSHA = "0000000000000000000000000000000000000000"

// Ref is a parsed git ref: exactly one of Branch or Tag is set.
type Ref struct {
	Branch string
	Tag    string
}

// IsTag reports whether the ref is a tag ref.
func (r Ref) IsTag() bool { return r.Tag != "" }

// ParseRef classifies a fully qualified ref string.
// Anything that is neither a branch nor a tag ref is a fatal parse error.
func ParseRef(ref string) (Ref, error) {
	switch {
	case strings.HasPrefix(ref, "refs/heads/"):
		return Ref{Branch: strings.TrimPrefix(ref, "refs/heads/")}, nil
	case strings.HasPrefix(ref, "refs/tags/"):
		return Ref{Tag: strings.TrimPrefix(ref, "refs/tags/")}, nil
	default:
		return Ref{}, fmt.Errorf("unsupported ref %q: expected refs/heads/* or refs/tags/*", ref)
	}
}

// Push is the triggering push event payload.
type Push struct {
	Owner  string
	Repo   string
	Ref    string
	After  string
	Before string
}

// payload mirrors the fields of the webhook JSON this tool consumes.
type payload struct {
	Ref        string `json:"ref"`
	After      string `json:"after"`
	Before     string `json:"before"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
			Name  string `json:"name"`
		} `json:"owner"`
	} `json:"repository"`
}

// Load reads a push event from a webhook payload file (GITHUB_EVENT_PATH).
func Load(path string) (*Push, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading event payload: %w", err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing event payload %s: %w", path, err)
	}

	owner := p.Repository.Owner.Login
	if owner == "" {
		owner = p.Repository.Owner.Name
	}

	return &Push{
		Owner:  owner,
		Repo:   p.Repository.Name,
		Ref:    p.Ref,
		After:  p.After,
		Before: p.Before,
	}, nil
}

// FromEnvironment builds a push event from the GITHUB_EVENT_PATH payload if
// present, falling back to the individual GITHUB_* variables.
func FromEnvironment() (*Push, error) {
	if path := os.Getenv("GITHUB_EVENT_PATH"); path != "" {
		return Load(path)
	}

	p := &Push{
		Ref:   os.Getenv("GITHUB_REF"),
		After: os.Getenv("GITHUB_SHA"),
	}
	if repo := os.Getenv("GITHUB_REPOSITORY"); repo != "" {
		if owner, name, found := strings.Cut(repo, "/"); found {
			p.Owner = owner
			p.Repo = name
		}
	}
	return p, nil
}

// Validate checks the fields every run requires. Missing context is an
// input error: fatal, immediate, before any discovery work.
func (p *Push) Validate() error {
	var missing []string
	if p.Owner == "" {
		missing = append(missing, "repository owner")
	}
	if p.Repo == "" {
		missing = append(missing, "repository name")
	}
	if p.Ref == "" {
		missing = append(missing, "ref")
	}
	if p.After == "" {
		missing = append(missing, "after sha")
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete push event: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// HasBefore reports whether the event carries a usable before-SHA.
// Branch-creation pushes send the all-zero SHA, which is not a commit.
func (p *Push) HasBefore() bool {
	return p.Before != "" && p.Before != zeroSHA
}

// DiffBase returns the base commit for the changed-files diff: the explicit
// before-SHA when available, otherwise the head commit's first parent.
func (p *Push) DiffBase() string {
	if p.HasBefore() {
		return p.Before
	}
	return p.After + "^"
}
