package gitver

import (
	"context"
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// Delta computes changed files from the local checkout instead of the
// hosting API. Used for runs outside CI (or shallow-free checkouts) where
// the compare endpoint is unavailable or unwanted.
type Delta struct {
	RootDir string
}

// ChangedFiles returns the paths touched between base and head commits.
// head may be empty (HEAD); a base of "<sha>^" or "" diffs against the
// head commit's first parent. An initial commit with no parent diffs
// against the empty tree, i.e. every file counts as changed.
func (d *Delta) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	repo, err := git.PlainOpen(d.RootDir)
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", d.RootDir, err)
	}

	headCommit, err := d.resolveCommit(repo, head)
	if err != nil {
		return nil, fmt.Errorf("resolving head %q: %w", head, err)
	}

	var baseCommit *object.Commit
	if base == "" || strings.HasSuffix(base, "^") {
		if headCommit.NumParents() > 0 {
			baseCommit, err = headCommit.Parent(0)
			if err != nil {
				return nil, fmt.Errorf("resolving parent of %s: %w", headCommit.Hash, err)
			}
		}
	} else {
		baseCommit, err = d.resolveCommit(repo, base)
		if err != nil {
			return nil, fmt.Errorf("resolving base %q: %w", base, err)
		}
	}

	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, err
	}
	var baseTree *object.Tree
	if baseCommit != nil {
		baseTree, err = baseCommit.Tree()
		if err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, &object.DiffTreeOptions{})
	if err != nil {
		return nil, fmt.Errorf("diffing trees: %w", err)
	}

	var files []string
	seen := make(map[string]bool)
	for _, change := range changes {
		name := changeName(change)
		if name != "" && !seen[name] {
			seen[name] = true
			files = append(files, name)
		}
	}
	return files, nil
}

// resolveCommit finds a commit by SHA, or HEAD when sha is empty.
func (d *Delta) resolveCommit(repo *git.Repository, sha string) (*object.Commit, error) {
	if sha == "" {
		ref, err := repo.Head()
		if err != nil {
			return nil, err
		}
		return repo.CommitObject(ref.Hash())
	}
	return repo.CommitObject(plumbing.NewHash(sha))
}

// changeName extracts the file path from a tree change.
func changeName(change *object.Change) string {
	action, err := change.Action()
	if err != nil {
		return ""
	}
	switch action {
	case merkletrie.Insert, merkletrie.Modify:
		return change.To.Name
	case merkletrie.Delete:
		return change.From.Name
	}
	return ""
}
