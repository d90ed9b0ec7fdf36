package main

// Notes:
// - run: we test dispatch and exit codes. Actual builds are covered by
//   build_integration_test.go.

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRun - Command dispatch
// ---------------------------------------------------------------------------

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"no command", nil, ExitUsage, "", "Usage: docpack"},
		{"unknown command", []string{"convert"}, ExitUsage, "", "Unknown command: convert"},
		{"version", []string{"version"}, ExitSuccess, "docpack dev", ""},
		{"help", []string{"help"}, ExitSuccess, "Commands:", ""},
		{"help build", []string{"help", "build"}, ExitSuccess, "--no-package", ""},
		{"help package", []string{"help", "package"}, ExitSuccess, "--images-dir", ""},
		{"help unknown", []string{"help", "nope"}, ExitUsage, "", "Unknown command: nope"},
		{"build --help", []string{"build", "--help"}, ExitSuccess, "", "Usage: docpack build"},
		{"build bad flag", []string{"build", "--nope"}, ExitUsage, "", "invalid usage"},
		{"build two roots", []string{"build", "a", "b"}, ExitUsage, "", "at most one root"},
		{"package nothing", []string{"package"}, ExitUsage, "", "at least one HTML document"},
		{"package not html", []string{"package", "talk.adoc"}, ExitUsage, "", "not an HTML document"},
		{"config extra arg", []string{"config", "x"}, ExitUsage, "", "takes no arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, stdout, stderr := runCLI(t, tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr)
			}
			if tt.wantStdout != "" && !strings.Contains(stdout, tt.wantStdout) {
				t.Errorf("stdout = %q, want it to contain %q", stdout, tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.wantStderr)
			}
		})
	}
}

func TestHasVerboseFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"docpack", "build", "-v"}, true},
		{[]string{"docpack", "build", "--verbose"}, true},
		{[]string{"docpack", "build", "-q"}, false},
		{[]string{"docpack", "package", "--", "-v"}, false},
	}

	for _, tt := range tests {
		if got := hasVerboseFlag(tt.args); got != tt.want {
			t.Errorf("hasVerboseFlag(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}

	for _, tt := range tests {
		if got := formatSize(tt.n); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
