package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// directiveScanLines bounds how far into a Dockerfile directives are
// recognized. Anything past the header is build content, not configuration.
const directiveScanLines = 10

// Directive comment keys. The image key is matched case-insensitively;
// the override keys must match exactly.
const (
	keyImage            = "image"
	keyTagsOnTagPush    = "imageTagsOnTagPushed"
	keyTagsOnBranchPush = "imageTagsOnBranchPushed"
	keyWatchFiles       = "watchFiles"
)

// Directives holds the per-Dockerfile configuration overrides declared as
// "# key: value" comments at the top of the file. Every field is optional;
// an unset field inherits the project value.
type Directives struct {
	ImageName        string
	TagsOnTagPush    TagTemplates
	TagsOnBranchPush TagTemplates
	WatchFiles       *[]string
}

// ExtractDirectives scans the first lines of a Dockerfile for directive
// comments. Malformed JSON-array values are fatal configuration errors:
// silently wrapping a typo like ["latest" as a literal tag would surface
// much later as a broken image tag.
func ExtractDirectives(path string) (*Directives, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	d := &Directives{}
	scanner := bufio.NewScanner(f)

	for line := 0; line < directiveScanLines && scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(text, "#") {
			continue
		}
		text = strings.TrimSpace(strings.TrimPrefix(text, "#"))

		key, value, found := strings.Cut(text, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case strings.EqualFold(key, keyImage):
			d.ImageName = value
		case key == keyTagsOnTagPush:
			t, err := parseTemplateDirective(value)
			if err != nil {
				return nil, fmt.Errorf("%s: directive %s: %w", path, key, err)
			}
			d.TagsOnTagPush = t
		case key == keyTagsOnBranchPush:
			t, err := parseTemplateDirective(value)
			if err != nil {
				return nil, fmt.Errorf("%s: directive %s: %w", path, key, err)
			}
			d.TagsOnBranchPush = t
		case key == keyWatchFiles:
			list, err := parseListDirective(value)
			if err != nil {
				return nil, fmt.Errorf("%s: directive %s: %w", path, key, err)
			}
			d.WatchFiles = &list
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return d, nil
}

// parseTemplateDirective interprets a tag-template directive value:
// null/false disables the trigger, a JSON array is the template list,
// and a bare scalar is a single-element list.
func parseTemplateDirective(value string) (TagTemplates, error) {
	if value == "null" || value == "false" {
		return DisabledTemplates(), nil
	}
	list, err := parseListDirective(value)
	if err != nil {
		return TagTemplates{}, err
	}
	return Templates(list...), nil
}

// parseListDirective interprets a list-shaped directive value.
func parseListDirective(value string) ([]string, error) {
	if value == "null" || value == "false" {
		return []string{}, nil
	}
	if strings.HasPrefix(value, "[") {
		var list []string
		if err := json.Unmarshal([]byte(value), &list); err != nil {
			return nil, fmt.Errorf("malformed JSON array %q: %w", value, err)
		}
		return list, nil
	}
	return []string{value}, nil
}
