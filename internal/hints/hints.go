// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-docpack/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// inCI reports whether a common CI provider variable is set.
func inCI() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""
}

// ForAsciidoctorMissing returns hints for an asciidoctor executable that
// cannot be found. bin is the configured executable.
func ForAsciidoctorMissing(bin string) string {
	var hints []string

	if inCI() || IsInContainer() {
		hints = append(hints, "install it in the image: gem install asciidoctor")
	} else {
		hints = append(hints, "install asciidoctor (gem install asciidoctor) and make sure it is on PATH")
	}

	if os.Getenv("DOCPACK_ASCIIDOCTOR") == "" && bin != "" && !strings.ContainsAny(bin, "/\\") {
		hints = append(hints, "or set DOCPACK_ASCIIDOCTOR to its full path")
	}

	return formatHints(hints)
}

// ForRevealJSMissing returns hints for a reveal.js backend that asciidoctor
// cannot load. requirePath is the configured -r argument.
func ForRevealJSMissing(requirePath string) string {
	if strings.HasPrefix(requirePath, "@") {
		return format("run: npm install " + requirePath + " (or set asciidoctor.revealjs to asciidoctor-revealjs)")
	}
	return format("run: gem install " + requirePath)
}

// ForTimeout returns a hint about increasing timeout for slow remote resources.
func ForTimeout() string {
	return format("for slow hosts, use --timeout or package.timeout")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in the user config directory.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepathSlash(p), "/docpack/") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForStyleNotFound returns hints for style not found errors.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

func filepathSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
