// Package gitexec wraps the git CLI and go-git for the operations the stack
// engine needs: merge-base, rebase --onto, ref read/write, and the
// precondition checks (dirty tree, rebase in progress) that gate every
// mutating command.
package gitexec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"stacker.dev/stacker/internal/stkerrors"
)

// DefaultCommandTimeout bounds any single git subprocess invocation.
const DefaultCommandTimeout = 5 * time.Minute

// CommandRunner executes git in a fixed working directory.
type CommandRunner struct {
	workingDir string
}

// NewCommandRunner creates a runner rooted at dir. An empty dir means "the
// process's current working directory."
func NewCommandRunner(dir string) *CommandRunner {
	return &CommandRunner{workingDir: dir}
}

// Run executes `git <args>` and returns trimmed stdout.
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.run(ctx, "", true, args...)
}

// RunRaw executes `git <args>` and returns stdout untrimmed.
func (r *CommandRunner) RunRaw(ctx context.Context, args ...string) (string, error) {
	return r.run(ctx, "", false, args...)
}

// RunWithInput executes `git <args>` feeding input on stdin.
func (r *CommandRunner) RunWithInput(ctx context.Context, input string, args ...string) (string, error) {
	return r.run(ctx, input, true, args...)
}

func (r *CommandRunner) run(ctx context.Context, input string, trim bool, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCommandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", stkerrors.NewGitCommandError("git", args, stdout.String(), stderr.String(), ctx.Err())
		}
		return "", stkerrors.NewGitCommandError("git", args, stdout.String(), stderr.String(), err)
	}
	if trim {
		return strings.TrimSpace(stdout.String()), nil
	}
	return stdout.String(), nil
}

// Interactive runs git with stdio wired to the terminal, for commands that
// need a user-driven editor or pager (e.g. a rebase requiring manual
// conflict resolution outside this tool's control).
func (r *CommandRunner) Interactive(args ...string) error {
	cmd := exec.Command("git", args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
