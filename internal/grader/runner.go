package grader

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// RunOutput is what one test case execution produced.
type RunOutput struct {
	Stdout   string
	Stderr   string
	TimedOut bool
}

// CaseRunner executes a prepared script once with the given stdin.
// The production implementation spawns the interpreter; tests inject
// a stub.
type CaseRunner interface {
	RunCase(ctx context.Context, script, input string) (RunOutput, error)
}

// ProcessRunner runs test cases under the Python interpreter with a
// wall-clock budget per case.
type ProcessRunner struct {
	PythonPath  string
	CaseTimeout time.Duration
}

func NewProcessRunner(pythonPath string, caseTimeout time.Duration) *ProcessRunner {
	return &ProcessRunner{PythonPath: pythonPath, CaseTimeout: caseTimeout}
}

// RunCase feeds the whole input to the child's stdin, waits for exit
// or the case budget, and reports what came back. A non-zero exit is
// not an error here: the stderr text is the diagnostic and the grader
// decides what to make of it.
func (r *ProcessRunner) RunCase(ctx context.Context, script, input string) (RunOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, r.CaseTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.PythonPath, "-u", script)
	cmd.Stdin = strings.NewReader(input)
	// Own process group; CommandContext kills only the direct child,
	// WaitDelay below covers stragglers holding the pipes open.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := RunOutput{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		out.TimedOut = true
		return out, nil
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return out, err
	}
	return out, nil
}
