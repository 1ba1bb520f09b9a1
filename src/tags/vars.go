package tags

import (
	"time"
)

// timestampLayout renders a 12-digit YYYYMMDDHHMM stamp.
const timestampLayout = "200601021504"

// shortSHALen is the length of the {sha} variable.
const shortSHALen = 7

// baseVariables are the names every configuration may reference regardless
// of the triggering event. Validation accepts all of them; rendering only
// substitutes the ones present for the current event.
var baseVariables = []string{"tag", "branch", "sha", "timestamp"}

// Variables builds the template variable map for one run.
//
// {sha} and {timestamp} are always present; {branch} or {tag} depending on
// which kind of ref triggered the run. The timestamp is localized to loc.
func Variables(branch, tag, sha string, now time.Time, loc *time.Location) map[string]string {
	if loc == nil {
		loc = time.UTC
	}

	vars := map[string]string{
		"sha":       ShortSHA(sha),
		"timestamp": now.In(loc).Format(timestampLayout),
	}
	if branch != "" {
		vars["branch"] = branch
	}
	if tag != "" {
		vars["tag"] = tag
	}
	return vars
}

// Allowed returns the validation set: the base variable names plus any
// extra names (e.g. version variables detected from git tags).
func Allowed(extra ...string) map[string]bool {
	allowed := make(map[string]bool, len(baseVariables)+len(extra))
	for _, name := range baseVariables {
		allowed[name] = true
	}
	for _, name := range extra {
		allowed[name] = true
	}
	return allowed
}

// ShortSHA truncates a commit SHA to the conventional 7 characters.
func ShortSHA(sha string) string {
	if len(sha) <= shortSHALen {
		return sha
	}
	return sha[:shortSHALen]
}
