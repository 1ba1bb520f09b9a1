// Package plan is the build decision engine. One run takes the triggering
// push event, discovers Dockerfiles, resolves each image's effective
// configuration, gates branch pushes on the changed-file set, enforces tag
// uniqueness against the registry, and emits the ordered build instructions
// an external builder executes. The run is all-or-nothing: any fatal error
// aborts with no instructions emitted.
package plan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/dockhand/dockhand/src/config"
	"github.com/dockhand/dockhand/src/discover"
	"github.com/dockhand/dockhand/src/event"
	"github.com/dockhand/dockhand/src/match"
	"github.com/dockhand/dockhand/src/registry"
	"github.com/dockhand/dockhand/src/tags"
)

// registryCheckLimit bounds concurrent registry lookups. Images share no
// mutable state, so their checks may overlap.
const registryCheckLimit = 4

// Instruction is one resolved build: a Dockerfile, the image it produces,
// and a single tag. The external builder consumes these read-only.
type Instruction struct {
	DockerfilePath string `json:"dockerfilePath"`
	ImageName      string `json:"imageName"`
	ImageTag       string `json:"imageTag"`
}

// ChangeSource yields the set of files changed between two commits,
// either the hosting API's compare endpoint or a local git diff.
type ChangeSource interface {
	CompareCommits(ctx context.Context, base, head string) ([]string, error)
}

// ImageDecision records what the engine decided for one discovered image.
type ImageDecision struct {
	Spec   config.ImageBuildSpec
	Built  bool
	Reason string   // skip reason when Built is false
	Tags   []string // rendered tags when Built is true
}

// Result is the outcome of one planning run.
type Result struct {
	Decisions    []ImageDecision
	Instructions []Instruction
	ChangedFiles []string
}

// HasBuilds reports whether the run produced any instructions.
func (r *Result) HasBuilds() bool { return len(r.Instructions) > 0 }

// Planner holds the collaborators and context for one run. Construct it
// fresh per invocation; nothing persists.
type Planner struct {
	RootDir  string
	Event    *event.Push
	Ref      event.Ref
	Changes  ChangeSource
	Registry registry.Registry

	// Location localizes the {timestamp} variable.
	Location *time.Location

	// ExtraVars are additional template variables (e.g. detected version).
	// ExtraAllowed names pass validation even when not in ExtraVars.
	ExtraVars    map[string]string
	ExtraAllowed []string

	// AllowOverwrite skips the tag-collision gate.
	AllowOverwrite bool

	Log *log.Logger
}

// Plan executes the decision pipeline. Discovery order is walk order and
// stays stable through to the emitted instructions.
func (p *Planner) Plan(ctx context.Context) (*Result, error) {
	dockerfiles, err := discover.FindDockerfiles(p.RootDir)
	if err != nil {
		return nil, fmt.Errorf("discovering Dockerfiles: %w", err)
	}
	if len(dockerfiles) == 0 {
		return nil, errors.New("no Dockerfiles found: add a Dockerfile or run from the repository root")
	}
	p.logf("discovered %d Dockerfile(s)", len(dockerfiles))

	project, err := config.Load(p.RootDir)
	if err != nil {
		return nil, err
	}

	specs, err := p.resolveSpecs(project, dockerfiles)
	if err != nil {
		return nil, err
	}

	// Pre-flight template validation: typos fail here, before any remote
	// call, aggregated into a single error.
	allowed := tags.Allowed(p.ExtraAllowed...)
	var all []string
	for _, spec := range specs {
		all = append(all, spec.ActiveTemplates()...)
	}
	if err := tags.Validate(all, allowed); err != nil {
		return nil, err
	}

	vars := tags.Variables(p.Ref.Branch, p.Ref.Tag, p.Event.After, time.Now(), p.Location)
	for name, val := range p.ExtraVars {
		vars[name] = val
	}

	// Branch pushes fetch the diff once; every image shares the snapshot.
	var changed []string
	if !p.Ref.IsTag() {
		changed, err = p.Changes.CompareCommits(ctx, p.Event.DiffBase(), p.Event.After)
		if err != nil {
			return nil, fmt.Errorf("fetching changed files: %w", err)
		}
		p.logf("%d file(s) changed since %s", len(changed), p.Event.DiffBase())
	}

	decisions := make([]ImageDecision, len(specs))
	for i, spec := range specs {
		templates := spec.TagsOnBranchPush
		if p.Ref.IsTag() {
			templates = spec.TagsOnTagPush
		}

		d := ImageDecision{Spec: spec}
		switch {
		case templates.Disabled:
			d.Reason = "trigger disabled"
		case !p.Ref.IsTag() && !match.IsBuildRequired(spec.WatchFiles, changed):
			d.Reason = "no watched files changed"
		default:
			d.Built = true
			d.Tags = tags.Render(templates.Values, vars)
		}
		decisions[i] = d
	}

	if !p.AllowOverwrite {
		if err := p.checkCollisions(ctx, decisions); err != nil {
			return nil, err
		}
	}

	result := &Result{Decisions: decisions, ChangedFiles: changed}
	for _, d := range decisions {
		if !d.Built {
			p.logf("skip %s: %s", d.Spec.DockerfilePath, d.Reason)
			continue
		}
		for _, tag := range d.Tags {
			result.Instructions = append(result.Instructions, Instruction{
				DockerfilePath: d.Spec.DockerfilePath,
				ImageName:      d.Spec.ImageName,
				ImageTag:       tag,
			})
		}
	}
	return result, nil
}

// resolveSpecs extracts directives and merges them with the project config,
// applying the naming policy: a lone Dockerfile may inherit the repository
// name, multiple Dockerfiles must each name their image.
func (p *Planner) resolveSpecs(project *config.ProjectConfig, dockerfiles []string) ([]config.ImageBuildSpec, error) {
	multiple := len(dockerfiles) > 1

	specs := make([]config.ImageBuildSpec, 0, len(dockerfiles))
	for _, df := range dockerfiles {
		dirs, err := config.ExtractDirectives(filepath.Join(p.RootDir, filepath.FromSlash(df)))
		if err != nil {
			return nil, err
		}

		name := dirs.ImageName
		if name == "" {
			if multiple {
				return nil, fmt.Errorf("%s declares no image name: with multiple Dockerfiles every file needs one, add \"# image: <name>\" to its first lines", df)
			}
			name = p.Event.Repo
		}

		specs = append(specs, config.ResolveImageSpec(project, dirs, df, name))
	}
	return specs, nil
}

// checkCollisions verifies every rendered tag except "latest" is not yet
// published. Checks for independent images overlap; any collision or lookup
// failure fails the whole run.
func (p *Planner) checkCollisions(ctx context.Context, decisions []ImageDecision) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(registryCheckLimit)

	for _, d := range decisions {
		if !d.Built {
			continue
		}
		d := d
		g.Go(func() error {
			for _, tag := range d.Tags {
				if tag == "latest" {
					continue // latest is a moving tag, always overwritable
				}
				exists, err := p.Registry.TagExists(ctx, d.Spec.ImageName, tag)
				if err != nil {
					return fmt.Errorf("checking %s:%s in registry: %w", d.Spec.ImageName, tag, err)
				}
				if exists {
					return fmt.Errorf("tag %s:%s already exists in the registry: include {timestamp} or {sha} in the template for unique tags, or pass --allow-overwrite to replace it", d.Spec.ImageName, tag)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func (p *Planner) logf(format string, args ...any) {
	if p.Log != nil {
		p.Log.Debug(fmt.Sprintf(format, args...))
	}
}
