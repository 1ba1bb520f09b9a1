package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// CI environment detection.

func IsCI() bool {
	return os.Getenv("CI") == "true"
}

func IsGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

// GitHub Actions collapsible log groups.

func Group(w io.Writer, name string) {
	if !IsGitHubActions() {
		return
	}
	fmt.Fprintf(w, "::group::%s\n", name)
}

func EndGroup(w io.Writer) {
	if !IsGitHubActions() {
		return
	}
	fmt.Fprintln(w, "::endgroup::")
}

// outputDelimiter frames multiline values in the GITHUB_OUTPUT file.
const outputDelimiter = "dockhand_EOF"

// WriteGitHubOutput appends a name=value step output. A run outside GitHub
// Actions (no GITHUB_OUTPUT in the environment) is a no-op. Multiline values
// use the heredoc form the runner expects.
func WriteGitHubOutput(name, value string) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening GITHUB_OUTPUT: %w", err)
	}
	defer f.Close()

	if strings.Contains(value, "\n") {
		_, err = fmt.Fprintf(f, "%s<<%s\n%s\n%s\n", name, outputDelimiter, value, outputDelimiter)
	} else {
		_, err = fmt.Fprintf(f, "%s=%s\n", name, value)
	}
	if err != nil {
		return fmt.Errorf("writing GITHUB_OUTPUT: %w", err)
	}
	return nil
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}
