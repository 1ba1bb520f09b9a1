// Package forge talks to the git hosting platform's REST API. The build
// planner only needs one operation from it: the set of files changed
// between two commits.
package forge

import "context"

// Forge is the interface the planner consumes for change detection.
type Forge interface {
	// CompareCommits returns the file paths touched between base and head.
	CompareCommits(ctx context.Context, base, head string) ([]string, error)
}
