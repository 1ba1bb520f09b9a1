// Package discover enumerates the Dockerfiles of a working tree.
package discover

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// skipDirs are never descended into. Dependency trees and build output can
// contain vendored Dockerfiles that are not this repository's images.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".github":      true,
	"dist":         true,
	"build":        true,
}

// FindDockerfiles walks rootDir and returns the relative slash-separated
// paths of every file named "Dockerfile" or "Dockerfile.*", in stable walk
// order. Unreadable subdirectories are skipped rather than failing the walk.
func FindDockerfiles(rootDir string) ([]string, error) {
	var found []string

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == rootDir {
				return err
			}
			// Skip and continue.
			return nil
		}
		if d.IsDir() {
			if path != rootDir && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if isDockerfileName(d.Name()) {
			rel, relErr := filepath.Rel(rootDir, path)
			if relErr != nil {
				return relErr
			}
			found = append(found, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

func isDockerfileName(name string) bool {
	return name == "Dockerfile" || strings.HasPrefix(name, "Dockerfile.")
}
