// Package registry answers one question for the build planner: is this
// image tag already published? Collisions are checked against the registry's
// package listing before any build is authorized.
package registry

import "context"

// Registry is the interface the planner consumes for tag-uniqueness checks.
type Registry interface {
	// TagExists reports whether the tag is already published for image.
	// A registry that has never seen the image reports false; any failure
	// other than a clean not-found propagates as an error.
	TagExists(ctx context.Context, image, tag string) (bool, error)
}
