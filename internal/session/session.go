// Package session runs transpiled student programs as supervised child
// processes. A session owns one child: its stdin pipe, a scrollback of
// its stdout, its collected stderr, and the bookkeeping needed to
// classify what the program is doing right now (running, blocked on
// input, paused at a debug step, finished, or timed out).
package session

import (
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/LuthoYRN/isipython/internal/buffer"
	"github.com/LuthoYRN/isipython/internal/transpiler"
)

// State classifies what a session is doing.
type State string

const (
	// StateRunning means the child is alive and producing output.
	StateRunning State = "running"
	// StateWaitingForInput means the child is blocked reading stdin
	// after printing an input prompt.
	StateWaitingForInput State = "waiting_for_input"
	// StateWaitingForStep means a debug session is paused after a
	// statement, holding its variable snapshot, until stepped.
	StateWaitingForStep State = "waiting_for_step"
	// StateCompleted means the child exited with status zero.
	StateCompleted State = "completed"
	// StateFailed means the child exited non-zero; Error carries the
	// translated diagnostic.
	StateFailed State = "error"
	// StateTimedOut means the child was killed after running past the
	// idle budget without suspending on input or a debug step. The
	// snapshot carries the "[Timeout]" sentinel and the source.
	StateTimedOut State = "timeout"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut
}

// Snapshot is a point-in-time view of a session, safe to hand to
// callers after the session itself has moved on.
type Snapshot struct {
	ID     string
	State  State
	Output string
	// Error is the student-facing diagnostic, set on error or timeout.
	Error string
	// Prompt is the pending input prompt when waiting for input.
	Prompt string
	// Line and Vars describe the paused statement in debug sessions.
	Line int
	Vars map[string]any
	// LineMap travels with terminal snapshots so callers can map any
	// leftover target-line references back to the student's source.
	LineMap map[int]int
	// Source is the original program, set on timeout snapshots so the
	// caller can feed it to the loop-analysis translator.
	Source string
}

// Session is one supervised child process.
type Session struct {
	ID       string
	Debug    bool
	Source   string
	Artifact *transpiler.Artifact

	cmd        *exec.Cmd
	stdin      io.WriteCloser
	scriptPath string
	out        *buffer.LineBuffer
	exitCh     chan struct{}
	monitors   sync.WaitGroup

	mu           sync.Mutex
	errLines     []string
	prompt       string
	promptReady  bool
	stepReady    bool
	curLine      int
	vars         map[string]any
	lastActivity time.Time
	exited       bool
	exitErr      error
	killed       bool
	finalErr     string
	cleanupOnce  sync.Once
}

// condition is the raw material for classification, extracted under the
// session lock so the decision itself is a pure function.
type condition struct {
	Exited      bool
	ExitErr     error
	Killed      bool
	StepReady   bool
	PromptReady bool
	Idle        time.Duration
}

// classify decides the session state. Order matters: a dead child wins
// over everything, a debug pause wins over an input wait (stepping in
// debug mode is itself a stdin read), and the idle clock counts from
// start or from the last supplied input. Output does not reset it, so
// a loop that merely prints still times out.
func classify(c condition, idleTimeout time.Duration) State {
	switch {
	case c.Killed:
		return StateTimedOut
	case c.Exited && c.ExitErr != nil:
		return StateFailed
	case c.Exited:
		return StateCompleted
	case c.StepReady:
		return StateWaitingForStep
	case c.PromptReady:
		return StateWaitingForInput
	case c.Idle >= idleTimeout:
		return StateTimedOut
	default:
		return StateRunning
	}
}

// condition extracts the classification inputs under the lock.
func (s *Session) condition() condition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return condition{
		Exited:      s.exited,
		ExitErr:     s.exitErr,
		Killed:      s.killed,
		StepReady:   s.stepReady,
		PromptReady: s.promptReady,
		Idle:        time.Since(s.lastActivity),
	}
}

// consumeWait clears the pending prompt or debug pause after input has
// been written to the child.
func (s *Session) consumeWait() {
	s.mu.Lock()
	s.promptReady = false
	s.stepReady = false
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// stderr returns the collected stderr text.
func (s *Session) stderr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.errLines, "\n")
}

func (s *Session) snapshot(state State) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:     s.ID,
		State:  state,
		Output: strings.Join(s.out.Lines(), "\n"),
	}
	switch state {
	case StateWaitingForInput:
		snap.Prompt = s.prompt
	case StateWaitingForStep:
		snap.Line = s.curLine
		snap.Vars = make(map[string]any, len(s.vars))
		for k, v := range s.vars {
			snap.Vars[k] = v
		}
	case StateFailed:
		snap.Error = s.finalErr
		snap.LineMap = s.Artifact.LineMap
	case StateTimedOut:
		snap.Error = s.finalErr
		snap.LineMap = s.Artifact.LineMap
		snap.Source = s.Source
	case StateCompleted:
		snap.LineMap = s.Artifact.LineMap
	}
	return snap
}
