// Package gitver reads version metadata from the local git checkout. It
// feeds the optional {version}/{major}/{minor}/{patch} template variables;
// a checkout without semver tags simply contributes nothing.
package gitver

import (
	"fmt"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
	git "github.com/go-git/go-git/v5"
)

// VersionInfo holds the highest semver tag of the checkout.
type VersionInfo struct {
	Version string // "1.2.3" (no v prefix)
	Major   string
	Minor   string
	Patch   string
}

// VariableNames lists the template variables Detect can contribute.
// They are always accepted by validation; whether they render depends on
// the checkout actually carrying a semver tag.
func VariableNames() []string {
	return []string{"version", "major", "minor", "patch"}
}

// Detect resolves the highest semver tag of the repository at rootDir.
// Returns (nil, nil) when the directory is not a git repository or carries
// no semver tags; version variables are a supplement, never a requirement.
func Detect(rootDir string) (*VersionInfo, error) {
	repo, err := git.PlainOpen(rootDir)
	if err != nil {
		return nil, nil
	}

	tags, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer tags.Close()

	var highest *masterminds.Version
	for {
		ref, err := tags.Next()
		if err != nil {
			break
		}
		name := ref.Name().Short()
		v, parseErr := masterminds.NewVersion(strings.TrimPrefix(name, "v"))
		if parseErr != nil {
			continue // non-semver tag
		}
		if highest == nil || v.GreaterThan(highest) {
			highest = v
		}
	}

	if highest == nil {
		return nil, nil
	}

	return &VersionInfo{
		Version: highest.String(),
		Major:   fmt.Sprintf("%d", highest.Major()),
		Minor:   fmt.Sprintf("%d", highest.Minor()),
		Patch:   fmt.Sprintf("%d", highest.Patch()),
	}, nil
}

// TemplateVars returns the variable map contribution of the detected version.
func (v *VersionInfo) TemplateVars() map[string]string {
	if v == nil {
		return nil
	}
	return map[string]string{
		"version": v.Version,
		"major":   v.Major,
		"minor":   v.Minor,
		"patch":   v.Patch,
	}
}
