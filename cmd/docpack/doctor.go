package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-docpack/internal/assets"
	"github.com/alnah/go-docpack/internal/config"
	"github.com/alnah/go-docpack/internal/convert"
	"github.com/alnah/go-docpack/internal/hints"
)

// doctorCheckTimeout bounds each external command run by doctor.
const doctorCheckTimeout = 15 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status      string          `json:"status"` // "ready", "warnings", "errors"
	Asciidoctor asciidoctorInfo `json:"asciidoctor"`
	Markdown    markdownInfo    `json:"markdown"`
	Env         envInfo         `json:"environment"`
	System      systemInfo      `json:"system"`
	Warnings    []string        `json:"warnings,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
}

// asciidoctorInfo holds asciidoctor detection results.
type asciidoctorInfo struct {
	Bin      string `json:"bin"`
	Found    bool   `json:"found"`
	Version  string `json:"version,omitempty"`
	RevealJS string `json:"revealjs"`
	Slides   bool   `json:"slides"`
}

// markdownInfo holds the Markdown converter check.
type markdownInfo struct {
	Style          string `json:"style"`
	HighlightStyle string `json:"highlight_style"`
	Assets         string `json:"assets,omitempty"`
	Ready          bool   `json:"ready"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	flags, err := parseDoctorFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitUsage
	}

	cfg, err := loadSettings(flags.config, nil)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	result := runDoctor(ctx, cfg, convert.NewAsciidoctor(cfg.Asciidoctor, convert.WithClock(env.Now)))

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, cfg *config.Config, adoc *convert.Asciidoctor) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	checkAsciidoctor(ctx, result, adoc)
	checkMarkdown(result, cfg)
	checkEnvironment(result)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkAsciidoctor runs the configured asciidoctor and checks its reveal.js
// backend. A missing backend only affects slide decks, so it is a warning.
func checkAsciidoctor(ctx context.Context, result *doctorResult, adoc *convert.Asciidoctor) {
	result.Asciidoctor.Bin = adoc.Bin()
	result.Asciidoctor.RevealJS = adoc.RevealJS()

	vctx, cancel := context.WithTimeout(ctx, doctorCheckTimeout)
	defer cancel()
	version, err := adoc.Version(vctx)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, convert.ErrConverterNotFound) {
			msg += hints.ForAsciidoctorMissing(adoc.Bin())
		}
		result.Errors = append(result.Errors, msg)
		return
	}
	result.Asciidoctor.Found = true
	result.Asciidoctor.Version = version

	rctx, cancel := context.WithTimeout(ctx, doctorCheckTimeout)
	defer cancel()
	if err := adoc.CheckRevealJS(rctx); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("slide decks cannot be built: %v%s", err, hints.ForRevealJSMissing(adoc.RevealJS())))
		return
	}
	result.Asciidoctor.Slides = true
}

// checkMarkdown verifies the configured page style and highlight style load.
func checkMarkdown(result *doctorResult, cfg *config.Config) {
	result.Markdown.Style = cfg.Markdown.Style
	result.Markdown.HighlightStyle = cfg.Markdown.HighlightStyle
	if _, err := convert.NewMarkdown(cfg.Markdown); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("markdown: %v", err))
		return
	}
	result.Markdown.Ready = true
	if resolver, err := assets.NewAssetResolver(cfg.Markdown.Assets); err == nil && resolver.HasCustomLoader() {
		result.Markdown.Assets = cfg.Markdown.Assets
	}
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory is writable.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	testFile := filepath.Join(tmpDir, "docpack-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		_ = os.Remove(testFile)
		result.System.TempWritable = true
	}
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "docpack doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Asciidoctor")
	if r.Asciidoctor.Found {
		fmt.Fprintf(w, "  [OK] Found: %s\n", r.Asciidoctor.Bin)
		if r.Asciidoctor.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Asciidoctor.Version)
		}
		if r.Asciidoctor.Slides {
			fmt.Fprintf(w, "  [OK] reveal.js: %s\n", r.Asciidoctor.RevealJS)
		} else {
			fmt.Fprintf(w, "  [WARN] reveal.js: %s not loadable\n", r.Asciidoctor.RevealJS)
		}
	} else {
		fmt.Fprintf(w, "  [ERROR] Not found: %s\n", r.Asciidoctor.Bin)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Markdown")
	if r.Markdown.Ready {
		fmt.Fprintf(w, "  [OK] Style: %s, highlighting: %s\n", r.Markdown.Style, r.Markdown.HighlightStyle)
		if r.Markdown.Assets != "" {
			fmt.Fprintf(w, "  [OK] Custom assets: %s\n", r.Markdown.Assets)
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Converter not usable")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to build")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
