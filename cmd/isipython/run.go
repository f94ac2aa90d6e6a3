package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
	"github.com/spf13/cobra"

	"github.com/LuthoYRN/isipython/internal/diagnostics"
	"github.com/LuthoYRN/isipython/internal/session"
	"github.com/LuthoYRN/isipython/internal/transpiler"
)

var attach bool

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Run an isiXhosa program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if attach {
			return runAttached(string(source))
		}
		return runSupervised(cmd.Context(), string(source))
	},
}

func init() {
	runCmd.Flags().BoolVar(&attach, "attach", false, "run on the current terminal instead of under supervision")
}

// newTranslator returns the LLM translator when an API key is
// configured, nil for offline diagnostics otherwise.
func newTranslator(ctx context.Context) *diagnostics.Translator {
	key := cfg.APIKey()
	if key == "" {
		return nil
	}
	provider, err := diagnostics.NewGeminiProvider(ctx, key, cfg.Translator.Model)
	if err != nil {
		log.Warn("translator unavailable, falling back to offline diagnostics")
		return nil
	}
	return diagnostics.NewTranslator(provider, log)
}

// newSupervisor also hands back the translator so callers can explain
// timeouts themselves: a timed-out snapshot carries the "[Timeout]"
// sentinel and the source, and turning that into an isiXhosa hint is
// the caller's job.
func newSupervisor(ctx context.Context) (*session.Supervisor, *diagnostics.Translator) {
	tr := newTranslator(ctx)
	return session.NewSupervisor(cfg.Execution, tr, log), tr
}

func explainTimeout(ctx context.Context, tr *diagnostics.Translator, source string) string {
	if tr == nil {
		return diagnostics.TimeoutFallback
	}
	return tr.ExplainTimeout(ctx, source)
}

// runSupervised drives a session the way the IDE backend does: poll
// status, stream new output, relay stdin lines when the program asks.
func runSupervised(ctx context.Context, source string) error {
	sup, tr := newSupervisor(ctx)
	snap, err := sup.Start(ctx, source, false)
	if err != nil {
		return err
	}

	stdin := bufio.NewReader(os.Stdin)
	printed := 0
	for {
		printed = printDelta(snap.Output, printed)

		switch {
		case snap.State == session.StateWaitingForInput:
			line, err := stdin.ReadString('\n')
			if err != nil {
				sup.Kill(snap.ID)
				return err
			}
			snap, err = sup.SupplyInput(ctx, snap.ID, strings.TrimRight(line, "\n"))
			if err != nil {
				return err
			}

		case snap.State.Terminal():
			printDelta(snap.Output, printed)
			if snap.Error != "" {
				msg := snap.Error
				if snap.State == session.StateTimedOut {
					msg = explainTimeout(ctx, tr, snap.Source)
				}
				fmt.Fprintln(os.Stderr, msg)
				os.Exit(1)
			}
			return nil

		default:
			time.Sleep(200 * time.Millisecond)
			snap, err = sup.Status(ctx, snap.ID)
			if err != nil {
				return err
			}
		}
	}
}

// printDelta writes the part of output not yet printed and returns the
// new high-water mark.
func printDelta(output string, printed int) int {
	if len(output) > printed {
		fmt.Println(output[printed:])
		return len(output)
	}
	return printed
}

// runAttached skips supervision entirely: the transpiled program gets
// this terminal, via a pty, and behaves like any console program.
func runAttached(source string) error {
	art, err := transpiler.Transpile(source, transpiler.Options{Challenge: true})
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "isipython-*.py")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(art.Target); err != nil {
		f.Close()
		return err
	}
	f.Close()

	cmd := exec.Command(cfg.Execution.PythonPath, "-u", f.Name())
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}
	defer ptmx.Close()

	go io.Copy(ptmx, os.Stdin)
	io.Copy(os.Stdout, ptmx)
	return cmd.Wait()
}
