package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dockhand/dockhand/src/event"
	"github.com/dockhand/dockhand/src/forge"
	"github.com/dockhand/dockhand/src/gitver"
	"github.com/dockhand/dockhand/src/output"
	"github.com/dockhand/dockhand/src/plan"
	"github.com/dockhand/dockhand/src/registry"
)

var planFlags struct {
	token          string
	timezone       string
	eventPath      string
	apiURL         string
	localChanges   bool
	allowOverwrite bool
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Decide which images to build for the triggering push",
	Long: "Reads the push event, discovers Dockerfiles, resolves each image's\n" +
		"configuration, and prints the resulting build instructions as JSON on\n" +
		"stdout. Progress and decisions go to stderr.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd.Context())
	},
}

func init() {
	planCmd.Flags().StringVar(&planFlags.token, "token", "", "GitHub token (default: GITHUB_TOKEN)")
	planCmd.Flags().StringVar(&planFlags.timezone, "timezone", "UTC", "IANA timezone for the {timestamp} variable")
	planCmd.Flags().StringVar(&planFlags.eventPath, "event", "", "push event payload file (default: GITHUB_EVENT_PATH)")
	planCmd.Flags().StringVar(&planFlags.apiURL, "api-url", "", "GitHub API base URL for Enterprise instances")
	planCmd.Flags().BoolVar(&planFlags.localChanges, "local-changes", false, "diff the local checkout instead of the compare API")
	planCmd.Flags().BoolVar(&planFlags.allowOverwrite, "allow-overwrite", false, "skip the registry tag-collision check")
	rootCmd.AddCommand(planCmd)
}

// deltaSource adapts the local git diff to the planner's change interface.
type deltaSource struct {
	delta *gitver.Delta
}

func (s deltaSource) CompareCommits(ctx context.Context, base, head string) ([]string, error) {
	return s.delta.ChangedFiles(ctx, base, head)
}

func runPlan(ctx context.Context) error {
	token := planFlags.token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return errors.New("missing GitHub token: pass --token or set GITHUB_TOKEN")
	}

	ev, err := loadEvent()
	if err != nil {
		return err
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	ref, err := event.ParseRef(ev.Ref)
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(planFlags.timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", planFlags.timezone, err)
	}

	// Version variables are a supplement: a checkout without semver tags
	// contributes nothing, and lookup failures only cost the variables.
	var extraVars map[string]string
	if vinfo, verr := gitver.Detect(rootDir); verr != nil {
		logger.Warn("version detection failed", "err", verr)
	} else if vinfo != nil {
		extraVars = vinfo.TemplateVars()
		logger.Debug("detected version", "version", vinfo.Version)
	}

	var changes plan.ChangeSource
	if planFlags.localChanges {
		changes = deltaSource{delta: &gitver.Delta{RootDir: rootDir}}
	} else {
		changes = forge.NewGitHub(planFlags.apiURL, token, ev.Owner, ev.Repo)
	}

	planner := &plan.Planner{
		RootDir:        rootDir,
		Event:          ev,
		Ref:            ref,
		Changes:        changes,
		Registry:       registry.NewGHCR(planFlags.apiURL, token, ev.Owner),
		Location:       loc,
		ExtraVars:      extraVars,
		ExtraAllowed:   gitver.VariableNames(),
		AllowOverwrite: planFlags.allowOverwrite,
		Log:            logger,
	}

	printContext(ev, ref)

	started := time.Now()
	result, err := planner.Plan(ctx)
	if err != nil {
		return err
	}

	printDecisions(result, time.Since(started))

	data, err := json.MarshalIndent(result.Instructions, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding instructions: %w", err)
	}
	fmt.Println(string(data))

	compact, err := json.Marshal(result.Instructions)
	if err != nil {
		return fmt.Errorf("encoding instructions: %w", err)
	}
	if err := output.WriteGitHubOutput("builds", string(compact)); err != nil {
		return err
	}
	return output.WriteGitHubOutput("has-builds", strconv.FormatBool(result.HasBuilds()))
}

// loadEvent reads the push event from the --event file or the environment.
func loadEvent() (*event.Push, error) {
	if planFlags.eventPath != "" {
		return event.Load(planFlags.eventPath)
	}
	return event.FromEnvironment()
}

func printContext(ev *event.Push, ref event.Ref) {
	kind, name := "branch", ref.Branch
	if ref.IsTag() {
		kind, name = "tag", ref.Tag
	}
	output.ContextBlock(os.Stderr, []output.KV{
		{Key: "repository", Value: ev.Owner + "/" + ev.Repo},
		{Key: kind, Value: name},
		{Key: "sha", Value: ev.After},
	})
}

func printDecisions(result *plan.Result, elapsed time.Duration) {
	color := output.UseColor()

	output.Group(os.Stderr, "build decisions")
	sec := output.NewSection(os.Stderr, "Decisions", elapsed, color)
	for _, d := range result.Decisions {
		if d.Built {
			detail := d.Spec.ImageName + ": " + strings.Join(d.Tags, ", ")
			output.DecisionRow(sec, d.Spec.DockerfilePath, "success", detail, color)
		} else {
			output.DecisionRow(sec, d.Spec.DockerfilePath, "skipped", output.Dimmed(d.Reason, color), color)
		}
	}
	sec.Separator()
	sec.Row("%d build instruction(s)", len(result.Instructions))
	sec.Close()
	output.EndGroup(os.Stderr)
}
