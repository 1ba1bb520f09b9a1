package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TagTemplates is a tri-state tag template list for one build trigger:
//
//	unset    → inherit the project (or built-in) value
//	disabled → never build on this trigger (YAML null, directive null/false)
//	a list   → the templates to render
//
// The unset/disabled distinction is what makes per-field overrides work:
// a Dockerfile that says nothing inherits, a Dockerfile that says null
// switches the trigger off entirely.
type TagTemplates struct {
	Disabled bool
	Values   []string

	defined bool
}

// Templates returns a defined template list.
func Templates(values ...string) TagTemplates {
	return TagTemplates{Values: values, defined: true}
}

// DisabledTemplates returns the explicit "never build" sentinel.
func DisabledTemplates() TagTemplates {
	return TagTemplates{Disabled: true, defined: true}
}

// Defined reports whether the field was set at all (list or disabled),
// as opposed to left to inherit.
func (t TagTemplates) Defined() bool { return t.defined }

// UnmarshalYAML implements the tri-state decoding:
//
//	imageTagsOnTagPushed: null          → disabled
//	imageTagsOnTagPushed: ["{tag}"]     → list
//	(key absent)                        → zero value, Defined() == false
func (t *TagTemplates) UnmarshalYAML(value *yaml.Node) error {
	t.defined = true

	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		t.Disabled = true
		return nil
	}
	if value.Kind == yaml.ScalarNode && value.Tag == "!!bool" && value.Value == "false" {
		t.Disabled = true
		return nil
	}
	if value.Kind == yaml.SequenceNode {
		return value.Decode(&t.Values)
	}

	return fmt.Errorf("expected a list of tag templates or null, got %q", value.Value)
}
