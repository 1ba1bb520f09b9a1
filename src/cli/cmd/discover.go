package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dockhand/dockhand/src/config"
	"github.com/dockhand/dockhand/src/discover"
)

var discoverResolve bool

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the Dockerfiles a plan run would consider",
	Long: "Walks the repository and prints every Dockerfile in discovery order,\n" +
		"with the same skip rules the plan command applies. With --resolve it\n" +
		"also prints each image's effective configuration, without contacting\n" +
		"any remote.",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := discover.FindDockerfiles(rootDir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no Dockerfiles found under %s", rootDir)
		}

		if !discoverResolve {
			for _, f := range files {
				fmt.Println(f)
			}
			return nil
		}

		project, err := config.Load(rootDir)
		if err != nil {
			return err
		}
		for _, f := range files {
			dirs, err := config.ExtractDirectives(filepath.Join(rootDir, filepath.FromSlash(f)))
			if err != nil {
				return err
			}
			name := dirs.ImageName
			if name == "" {
				name = "(repository name)"
			}
			spec := config.ResolveImageSpec(project, dirs, f, name)
			fmt.Printf("%s\n", f)
			fmt.Printf("  image:          %s\n", spec.ImageName)
			fmt.Printf("  on tag push:    %s\n", describeTemplates(spec.TagsOnTagPush))
			fmt.Printf("  on branch push: %s\n", describeTemplates(spec.TagsOnBranchPush))
			fmt.Printf("  watch:          %s\n", describeList(spec.WatchFiles))
		}
		return nil
	},
}

func describeTemplates(t config.TagTemplates) string {
	if t.Disabled {
		return "disabled"
	}
	return strings.Join(t.Values, ", ")
}

func describeList(list []string) string {
	if len(list) == 0 {
		return "(everything)"
	}
	return strings.Join(list, ", ")
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverResolve, "resolve", false, "print each image's effective configuration")
	rootCmd.AddCommand(discoverCmd)
}
