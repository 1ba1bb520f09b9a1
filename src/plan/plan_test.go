package plan

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/dockhand/dockhand/src/event"
)

const headSHA = "abcdef1234567890abcdef1234567890abcdef12"

type stubChanges struct {
	files []string
	calls int
	base  string
	head  string
}

func (s *stubChanges) CompareCommits(_ context.Context, base, head string) ([]string, error) {
	s.calls++
	s.base, s.head = base, head
	return s.files, nil
}

type stubRegistry struct {
	mu       sync.Mutex
	existing map[string]bool
	queries  []string
}

func (s *stubRegistry) TagExists(_ context.Context, image, tag string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, image+":"+tag)
	return s.existing[image+":"+tag], nil
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func mustRef(t *testing.T, ref string) event.Ref {
	t.Helper()
	r, err := event.ParseRef(ref)
	if err != nil {
		t.Fatalf("ParseRef(%q): %v", ref, err)
	}
	return r
}

func newPlanner(t *testing.T, root, ref string) (*Planner, *stubChanges, *stubRegistry) {
	t.Helper()
	changes := &stubChanges{files: []string{"Dockerfile"}}
	reg := &stubRegistry{existing: map[string]bool{}}
	p := &Planner{
		RootDir: root,
		Event: &event.Push{
			Owner: "octocat",
			Repo:  "widgets",
			Ref:   ref,
			After: headSHA,
		},
		Ref:      mustRef(t, ref),
		Changes:  changes,
		Registry: reg,
	}
	return p, changes, reg
}

func TestPlanBranchPushDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", "FROM alpine\n")

	p, changes, _ := newPlanner(t, root, "refs/heads/main")

	result, err := p.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if len(result.Instructions) != 2 {
		t.Fatalf("got %d instructions, want 2: %+v", len(result.Instructions), result.Instructions)
	}

	first := result.Instructions[0]
	if first.DockerfilePath != "Dockerfile" || first.ImageName != "widgets" {
		t.Errorf("instruction = %+v, want Dockerfile/widgets", first)
	}
	if ok, _ := regexp.MatchString(`^main-\d{12}-abcdef1$`, first.ImageTag); !ok {
		t.Errorf("first tag = %q, want main-<timestamp>-abcdef1", first.ImageTag)
	}
	if result.Instructions[1].ImageTag != "latest" {
		t.Errorf("second tag = %q, want latest", result.Instructions[1].ImageTag)
	}
	if changes.calls != 1 {
		t.Errorf("changed files fetched %d times, want 1", changes.calls)
	}
	if changes.base != headSHA+"^" || changes.head != headSHA {
		t.Errorf("compared %s...%s, want parent fallback", changes.base, changes.head)
	}
}

func TestPlanTagPush(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", "# image: app\nFROM alpine\n")

	p, changes, _ := newPlanner(t, root, "refs/tags/v1.2.3")

	result, err := p.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if len(result.Instructions) != 1 {
		t.Fatalf("got %d instructions, want 1", len(result.Instructions))
	}
	got := result.Instructions[0]
	if got.ImageName != "app" || got.ImageTag != "v1.2.3" {
		t.Errorf("instruction = %+v, want app:v1.2.3", got)
	}
	if changes.calls != 0 {
		t.Errorf("tag push fetched changed files %d times, want 0", changes.calls)
	}
}

func TestPlanMultipleDockerfilesNeedNames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", "# image: api\nFROM alpine\n")
	writeFile(t, root, "worker/Dockerfile", "FROM alpine\n")

	p, _, _ := newPlanner(t, root, "refs/heads/main")

	_, err := p.Plan(context.Background())
	if err == nil {
		t.Fatal("expected naming error for unnamed Dockerfile")
	}
	if !strings.Contains(err.Error(), "worker/Dockerfile") {
		t.Errorf("error %q does not name the offending file", err)
	}
}

func TestPlanSharedChangeFetch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "api/Dockerfile", "# image: api\nFROM alpine\n")
	writeFile(t, root, "worker/Dockerfile", "# image: worker\nFROM alpine\n")

	p, changes, _ := newPlanner(t, root, "refs/heads/main")
	changes.files = []string{"api/main.go"}

	if _, err := p.Plan(context.Background()); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if changes.calls != 1 {
		t.Errorf("changed files fetched %d times, want 1", changes.calls)
	}
}

func TestPlanWatchGate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", "# image: app\n# watchFiles: [\"src/**\"]\nFROM alpine\n")

	p, changes, _ := newPlanner(t, root, "refs/heads/main")
	changes.files = []string{"README.md", "docs/guide.md"}

	result, err := p.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if result.HasBuilds() {
		t.Fatalf("expected no builds, got %+v", result.Instructions)
	}
	if len(result.Decisions) != 1 || result.Decisions[0].Reason != "no watched files changed" {
		t.Errorf("decisions = %+v", result.Decisions)
	}
}

func TestPlanWatchGateIgnoredOnTagPush(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", "# image: app\n# watchFiles: [\"src/**\"]\nFROM alpine\n")

	p, _, _ := newPlanner(t, root, "refs/tags/v2.0.0")

	result, err := p.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !result.HasBuilds() {
		t.Error("tag push should build regardless of watch list")
	}
}

func TestPlanDisabledTrigger(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", "# image: app\n# imageTagsOnBranchPushed: false\nFROM alpine\n")

	p, _, _ := newPlanner(t, root, "refs/heads/main")

	result, err := p.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if result.HasBuilds() {
		t.Fatalf("expected no builds, got %+v", result.Instructions)
	}
	if result.Decisions[0].Reason != "trigger disabled" {
		t.Errorf("reason = %q, want trigger disabled", result.Decisions[0].Reason)
	}
}

func TestPlanZeroDockerfiles(t *testing.T) {
	p, _, _ := newPlanner(t, t.TempDir(), "refs/heads/main")

	if _, err := p.Plan(context.Background()); err == nil {
		t.Fatal("expected error for empty discovery")
	}
}

func TestPlanUndeclaredVariable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", "# image: app\n# imageTagsOnBranchPushed: [\"{brnach}\"]\nFROM alpine\n")

	p, changes, _ := newPlanner(t, root, "refs/heads/main")

	_, err := p.Plan(context.Background())
	if err == nil {
		t.Fatal("expected validation error for typoed variable")
	}
	if !strings.Contains(err.Error(), "brnach") {
		t.Errorf("error %q does not name the typo", err)
	}
	if changes.calls != 0 {
		t.Error("validation failure should abort before fetching changed files")
	}
}

func TestPlanTagCollision(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", "# image: app\n# imageTagsOnBranchPushed: [\"{branch}\", \"latest\"]\nFROM alpine\n")

	p, _, reg := newPlanner(t, root, "refs/heads/main")
	reg.existing["app:main"] = true

	_, err := p.Plan(context.Background())
	if err == nil {
		t.Fatal("expected collision error")
	}
	if !strings.Contains(err.Error(), "app:main") {
		t.Errorf("error %q does not name the colliding tag", err)
	}
}

func TestPlanLatestNeverCollides(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", "# image: app\n# imageTagsOnBranchPushed: [\"latest\"]\nFROM alpine\n")

	p, _, reg := newPlanner(t, root, "refs/heads/main")
	reg.existing["app:latest"] = true

	result, err := p.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !result.HasBuilds() {
		t.Error("latest must be overwritable")
	}
	for _, q := range reg.queries {
		if q == "app:latest" {
			t.Error("latest should not be checked against the registry")
		}
	}
}

func TestPlanAllowOverwrite(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", "# image: app\n# imageTagsOnBranchPushed: [\"{branch}\"]\nFROM alpine\n")

	p, _, reg := newPlanner(t, root, "refs/heads/main")
	reg.existing["app:main"] = true
	p.AllowOverwrite = true

	result, err := p.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !result.HasBuilds() {
		t.Error("allow-overwrite should bypass the collision gate")
	}
	if len(reg.queries) != 0 {
		t.Errorf("registry queried %d times with overwrite allowed", len(reg.queries))
	}
}

func TestPlanAllOrNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "api/Dockerfile", "# image: api\n# imageTagsOnBranchPushed: [\"{branch}\"]\nFROM alpine\n")
	writeFile(t, root, "worker/Dockerfile", "# image: worker\n# imageTagsOnBranchPushed: [\"{branch}\"]\nFROM alpine\n")

	p, _, reg := newPlanner(t, root, "refs/heads/main")
	reg.existing["worker:main"] = true

	result, err := p.Plan(context.Background())
	if err == nil {
		t.Fatal("expected collision error")
	}
	if result != nil {
		t.Errorf("a failed run must emit no instructions, got %+v", result)
	}
}

func TestPlanProjectConfigApplies(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".dockhand.yml", "imageTagsOnBranchPushed:\n  - \"{branch}-{sha}\"\n")
	writeFile(t, root, "Dockerfile", "FROM alpine\n")

	p, _, _ := newPlanner(t, root, "refs/heads/release")

	result, err := p.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(result.Instructions) != 1 || result.Instructions[0].ImageTag != "release-abcdef1" {
		t.Errorf("instructions = %+v, want one release-abcdef1 tag", result.Instructions)
	}
}

func TestPlanExtraVariables(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Dockerfile", "# image: app\n# imageTagsOnTagPushed: [\"{major}.{minor}\"]\nFROM alpine\n")

	p, _, _ := newPlanner(t, root, "refs/tags/v1.2.3")
	p.ExtraAllowed = []string{"version", "major", "minor", "patch"}
	p.ExtraVars = map[string]string{"version": "1.2.3", "major": "1", "minor": "2", "patch": "3"}

	result, err := p.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(result.Instructions) != 1 || result.Instructions[0].ImageTag != "1.2" {
		t.Errorf("instructions = %+v, want one 1.2 tag", result.Instructions)
	}
}
