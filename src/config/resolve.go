package config

// ImageBuildSpec is the effective configuration for one discovered
// Dockerfile: project defaults with the Dockerfile's directive overrides
// applied per field. Built once per run and immutable thereafter.
type ImageBuildSpec struct {
	DockerfilePath   string
	ImageName        string
	TagsOnTagPush    TagTemplates
	TagsOnBranchPush TagTemplates
	WatchFiles       []string
}

// ResolveImageSpec merges project configuration and Dockerfile directives.
// Each field falls back independently: a directive that sets only
// watchFiles still inherits both tag template lists from the project.
// imageName is decided by the caller (directive name or repository default).
func ResolveImageSpec(project *ProjectConfig, d *Directives, dockerfilePath, imageName string) ImageBuildSpec {
	spec := ImageBuildSpec{
		DockerfilePath:   dockerfilePath,
		ImageName:        imageName,
		TagsOnTagPush:    project.ImageTagsOnTagPushed,
		TagsOnBranchPush: project.ImageTagsOnBranchPushed,
		WatchFiles:       project.WatchFiles,
	}

	if d == nil {
		return spec
	}
	if d.TagsOnTagPush.Defined() {
		spec.TagsOnTagPush = d.TagsOnTagPush
	}
	if d.TagsOnBranchPush.Defined() {
		spec.TagsOnBranchPush = d.TagsOnBranchPush
	}
	if d.WatchFiles != nil {
		spec.WatchFiles = *d.WatchFiles
	}
	return spec
}

// ActiveTemplates returns every template list a spec could render for any
// event type. Used for pre-flight validation so typos surface before any
// remote work happens.
func (s ImageBuildSpec) ActiveTemplates() []string {
	var all []string
	if !s.TagsOnTagPush.Disabled {
		all = append(all, s.TagsOnTagPush.Values...)
	}
	if !s.TagsOnBranchPush.Disabled {
		all = append(all, s.TagsOnBranchPush.Values...)
	}
	return all
}
