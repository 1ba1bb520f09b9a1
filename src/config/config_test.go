package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(cfg.ImageTagsOnTagPushed.Values, []string{"{tag}"}) {
		t.Errorf("tag-push templates = %v, want [{tag}]", cfg.ImageTagsOnTagPushed.Values)
	}
	want := []string{"{branch}-{timestamp}-{sha}", "latest"}
	if !reflect.DeepEqual(cfg.ImageTagsOnBranchPushed.Values, want) {
		t.Errorf("branch-push templates = %v, want %v", cfg.ImageTagsOnBranchPushed.Values, want)
	}
	if len(cfg.WatchFiles) != 0 {
		t.Errorf("watch files = %v, want empty", cfg.WatchFiles)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".dockhand.yml", `
imageTagsOnTagPushed: ["{tag}", "latest"]
imageTagsOnBranchPushed: null
watchFiles: ["Dockerfile", "src/**/*"]
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.ImageTagsOnTagPushed.Values, []string{"{tag}", "latest"}) {
		t.Errorf("tag-push templates = %v", cfg.ImageTagsOnTagPushed.Values)
	}
	if !cfg.ImageTagsOnBranchPushed.Disabled {
		t.Errorf("branch-push should be disabled by explicit null")
	}
	if !reflect.DeepEqual(cfg.WatchFiles, []string{"Dockerfile", "src/**/*"}) {
		t.Errorf("watch files = %v", cfg.WatchFiles)
	}
}

func TestLoadYAMLPartialInheritsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".dockhand.yml", `watchFiles: ["Dockerfile"]`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.ImageTagsOnTagPushed.Values, []string{"{tag}"}) {
		t.Errorf("unset tag-push field should inherit default, got %v", cfg.ImageTagsOnTagPushed.Values)
	}
}

func TestLoadYAMLMalformed(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".dockhand.yml", `imageTagsOnTagPushed: {oops: 1}`)

	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for malformed config")
	}
}

func TestLoadYAMLUnknownKey(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".dockhand.yml", `imageTagsOnTagPush: ["{tag}"]`)

	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".dockhand.toml", `
imageTagsOnTagPushed = ["{tag}"]
imageTagsOnBranchPushed = false
watchFiles = ["Dockerfile"]
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.ImageTagsOnTagPushed.Values, []string{"{tag}"}) {
		t.Errorf("tag-push templates = %v", cfg.ImageTagsOnTagPushed.Values)
	}
	if !cfg.ImageTagsOnBranchPushed.Disabled {
		t.Errorf("branch-push should be disabled by false")
	}
}

func TestLoadBothFormatsPresent(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".dockhand.yml", `watchFiles: []`)
	writeConfig(t, dir, ".dockhand.toml", `watchFiles = []`)

	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error when both config formats exist")
	}
}
