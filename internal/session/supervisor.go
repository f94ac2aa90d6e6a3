package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/LuthoYRN/isipython/internal/buffer"
	"github.com/LuthoYRN/isipython/internal/config"
	"github.com/LuthoYRN/isipython/internal/diagnostics"
	"github.com/LuthoYRN/isipython/internal/transpiler"
)

// TimeoutSentinel is the error text of a timed-out session's terminal
// snapshot. The snapshot also carries the source, so the boundary can
// ask the translator why the program never finished.
const TimeoutSentinel = "[Timeout]"

// killGrace is how long a child gets to honor SIGTERM before SIGKILL.
const killGrace = 2 * time.Second

// maxLineBytes caps a single output line; past the bufio default so a
// long print does not stop the monitor.
const maxLineBytes = 1 << 20

// ErrNotWaiting is returned when input is supplied to a session that
// is not blocked on stdin.
var ErrNotWaiting = errors.New("session is not waiting for input")

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Supervisor starts sessions and answers status queries about them.
type Supervisor struct {
	pythonPath    string
	idleTimeout   time.Duration
	courtesySleep time.Duration
	bufferLines   int

	translator *diagnostics.Translator
	registry   *Registry
	log        *zap.Logger
}

func NewSupervisor(cfg config.ExecutionConfig, translator *diagnostics.Translator, log *zap.Logger) *Supervisor {
	return &Supervisor{
		pythonPath:    cfg.PythonPath,
		idleTimeout:   cfg.IdleTimeout.Std(),
		courtesySleep: cfg.CourtesySleep.Std(),
		bufferLines:   cfg.BufferLines,
		translator:    translator,
		registry:      NewRegistry(),
		log:           log,
	}
}

// Registry exposes the supervisor's session registry.
func (sv *Supervisor) Registry() *Registry {
	return sv.registry
}

// Start transpiles source, launches it under the interpreter and
// returns the first status snapshot after the courtesy sleep. Debug
// sessions run the instrumented target. A validation failure (Python
// keyword in the source) is returned as an error; no session exists.
func (sv *Supervisor) Start(ctx context.Context, source string, debug bool) (Snapshot, error) {
	art, err := transpiler.Transpile(source, transpiler.Options{Debug: debug})
	if err != nil {
		return Snapshot{}, err
	}

	f, err := os.CreateTemp("", "isipython-*.py")
	if err != nil {
		return Snapshot{}, fmt.Errorf("create script file: %w", err)
	}
	if _, err := f.WriteString(art.Target); err != nil {
		f.Close()
		os.Remove(f.Name())
		return Snapshot{}, fmt.Errorf("write script file: %w", err)
	}
	f.Close()

	// -u plus PYTHONUNBUFFERED forces line-at-a-time stdout; without it
	// the prompt print would sit in the child's buffer while it blocks
	// on stdin and the session would misclassify as a timeout.
	cmd := exec.Command(sv.pythonPath, "-u", f.Name())
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	// Own process group, so the kill escalation reaches any children
	// the program spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.Remove(f.Name())
		return Snapshot{}, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.Remove(f.Name())
		return Snapshot{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		os.Remove(f.Name())
		return Snapshot{}, fmt.Errorf("stderr pipe: %w", err)
	}

	sess := &Session{
		ID:           uuid.NewString(),
		Debug:        debug,
		Source:       source,
		Artifact:     art,
		cmd:          cmd,
		stdin:        stdin,
		scriptPath:   f.Name(),
		out:          buffer.NewLineBuffer(sv.bufferLines),
		exitCh:       make(chan struct{}),
		lastActivity: time.Now(),
	}

	if err := cmd.Start(); err != nil {
		os.Remove(f.Name())
		return Snapshot{}, fmt.Errorf("start interpreter: %w", err)
	}
	sv.log.Info("session started",
		zap.String("session_id", sess.ID),
		zap.Int("pid", cmd.Process.Pid),
		zap.Bool("debug", debug))

	sess.monitors.Add(2)
	go func() {
		defer sess.monitors.Done()
		sv.monitorStdout(sess, stdout)
	}()
	go func() {
		defer sess.monitors.Done()
		sv.monitorStderr(sess, stderr)
	}()
	go sv.waitForExit(sess)

	sv.registry.Put(sess)

	time.Sleep(sv.courtesySleep)
	return sv.Status(ctx, sess.ID)
}

// monitorStdout consumes the child's stdout line by line. Prompt
// marker lines become the pending input prompt; debug marker lines
// update the step position, variable snapshot and pause flag; plain
// lines go to the scrollback.
func (sv *Supervisor) monitorStdout(sess *Session, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, transpiler.PromptMarker):
			prompt := strings.TrimPrefix(line, transpiler.PromptMarker)
			sess.mu.Lock()
			sess.prompt = prompt
			// An empty prompt cannot be distinguished from silence, so
			// only a non-empty one marks the session as waiting.
			sess.promptReady = prompt != ""
			sess.mu.Unlock()
			sess.out.Append(prompt)

		case sess.Debug && strings.HasPrefix(line, transpiler.MarkerLine):
			if n, err := strconv.Atoi(strings.TrimPrefix(line, transpiler.MarkerLine)); err == nil {
				sess.mu.Lock()
				sess.curLine = n
				sess.mu.Unlock()
			}

		case sess.Debug && strings.HasPrefix(line, transpiler.MarkerVars):
			var vars map[string]any
			payload := strings.TrimPrefix(line, transpiler.MarkerVars)
			if err := json.Unmarshal([]byte(payload), &vars); err != nil {
				sv.log.Debug("undecodable vars snapshot",
					zap.String("session_id", sess.ID), zap.Error(err))
				break
			}
			sess.mu.Lock()
			sess.vars = vars
			sess.mu.Unlock()

		case sess.Debug && line == transpiler.MarkerStep:
			sess.mu.Lock()
			sess.stepReady = true
			sess.mu.Unlock()

		default:
			sess.out.Append(line)
			// A later output line displaced the prompt, so the child is
			// no longer sitting on that input call.
			sess.mu.Lock()
			sess.promptReady = false
			sess.mu.Unlock()
		}
	}
	if err := scanner.Err(); err != nil {
		sv.log.Warn("stdout monitor stopped",
			zap.String("session_id", sess.ID), zap.Error(err))
	}
}

func (sv *Supervisor) monitorStderr(sess *Session, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		sess.mu.Lock()
		sess.errLines = append(sess.errLines, line)
		sess.mu.Unlock()
	}
	if err := scanner.Err(); err != nil {
		sv.log.Warn("stderr monitor stopped",
			zap.String("session_id", sess.ID), zap.Error(err))
	}
}

func (sv *Supervisor) waitForExit(sess *Session) {
	// The monitors drain both pipes to EOF first. Wait closes the pipes,
	// so calling it while they still read would drop tail output.
	sess.monitors.Wait()
	err := sess.cmd.Wait()

	sess.mu.Lock()
	sess.exited = true
	if !sess.killed {
		sess.exitErr = err
	}
	sess.mu.Unlock()
	close(sess.exitCh)

	sess.cleanupOnce.Do(func() {
		os.Remove(sess.scriptPath)
	})
	sv.log.Info("session exited",
		zap.String("session_id", sess.ID), zap.Error(err))
}

// Status classifies the session and returns its snapshot. The idle
// timeout is enforced here: a session found past its budget is killed
// and reported as timed out, with the "[Timeout]" sentinel as its
// error and the source in the snapshot. A terminal snapshot is final:
// the session leaves the registry with it, and later queries get
// ErrNotFound.
func (sv *Supervisor) Status(ctx context.Context, id string) (Snapshot, error) {
	sess, ok := sv.registry.Get(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}

	state := classify(sess.condition(), sv.idleTimeout)
	if state == StateTimedOut {
		sv.killForTimeout(sess)
	}
	if state == StateFailed {
		sv.finalizeError(ctx, sess)
	}

	snap := sess.snapshot(state)
	if state.Terminal() {
		sv.registry.Delete(id)
	}
	return snap, nil
}

// killForTimeout kills a runaway session once and marks it with the
// timeout sentinel. The isiXhosa loop explanation is produced at the
// boundary, from the snapshot's source. Idempotent.
func (sv *Supervisor) killForTimeout(sess *Session) {
	sess.mu.Lock()
	already := sess.killed
	sess.killed = true
	sess.mu.Unlock()
	if already {
		return
	}

	sv.log.Warn("session idle past budget, killing",
		zap.String("session_id", sess.ID),
		zap.Duration("idle_timeout", sv.idleTimeout))
	sv.terminate(sess)

	sess.mu.Lock()
	sess.finalErr = TimeoutSentinel
	sess.mu.Unlock()
}

// finalizeError translates the child's stderr once, caching the result
// so repeated status polls do not repeat the LLM call.
func (sv *Supervisor) finalizeError(ctx context.Context, sess *Session) {
	sess.mu.Lock()
	done := sess.finalErr != ""
	sess.mu.Unlock()
	if done {
		return
	}

	raw := sess.stderr()
	translated := raw
	if sv.translator != nil {
		translated = sv.translator.TranslateError(ctx, raw, sess.Artifact.LineMap)
	} else {
		translated = diagnostics.RemapLines(raw, sess.Artifact.LineMap)
	}
	sess.mu.Lock()
	sess.finalErr = translated
	sess.mu.Unlock()
}

// SupplyInput writes one line to the child's stdin. Valid only while
// the session is waiting for input or for a debug step.
func (sv *Supervisor) SupplyInput(ctx context.Context, id, text string) (Snapshot, error) {
	sess, ok := sv.registry.Get(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}

	state := classify(sess.condition(), sv.idleTimeout)
	if state != StateWaitingForInput && state != StateWaitingForStep {
		return sess.snapshot(state), ErrNotWaiting
	}

	if _, err := io.WriteString(sess.stdin, text+"\n"); err != nil {
		return Snapshot{}, fmt.Errorf("write to session stdin: %w", err)
	}
	sess.consumeWait()

	time.Sleep(sv.courtesySleep)
	return sv.Status(ctx, id)
}

// Step advances a paused debug session by one statement.
func (sv *Supervisor) Step(ctx context.Context, id string) (Snapshot, error) {
	return sv.SupplyInput(ctx, id, "")
}

// Kill stops a session on the student's request and removes it from
// the registry. Idempotent: killing a session that already reached a
// terminal state (and left the registry) is a no-op.
func (sv *Supervisor) Kill(id string) error {
	sess, ok := sv.registry.Get(id)
	if !ok {
		return nil
	}
	sv.terminate(sess)
	sv.registry.Delete(id)
	sv.log.Info("session killed", zap.String("session_id", id))
	return nil
}

// terminate stops the child's process group: SIGTERM, a grace period,
// then SIGKILL. Safe to call on an already-dead child.
func (sv *Supervisor) terminate(sess *Session) {
	pid := sess.cmd.Process.Pid

	if err := unix.Kill(-pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		sv.log.Warn("SIGTERM failed", zap.String("session_id", sess.ID), zap.Error(err))
	}

	select {
	case <-sess.exitCh:
	case <-time.After(killGrace):
		sv.log.Warn("session did not exit, escalating to SIGKILL",
			zap.String("session_id", sess.ID))
		if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			sv.log.Error("SIGKILL failed", zap.String("session_id", sess.ID), zap.Error(err))
		}
		<-sess.exitCh
	}

	sess.cleanupOnce.Do(func() {
		os.Remove(sess.scriptPath)
	})
}
