package process

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// WaitDelay bounds how long Run waits for output pipes after the group was
// killed.
const WaitDelay = 2 * time.Second

// Output is what a finished command wrote.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Run executes name with args in dir and collects its output. When ctx is
// canceled the whole process group is killed. The error is the one from
// exec: *exec.ExitError for a non-zero exit, exec.ErrNotFound when the
// executable is missing.
func Run(ctx context.Context, dir, name string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- converter binary comes from config
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	setGroup(cmd)
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			KillProcessGroup(cmd.Process.Pid)
		}
		return nil
	}
	cmd.WaitDelay = WaitDelay

	err := cmd.Run()
	return Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, err
}
