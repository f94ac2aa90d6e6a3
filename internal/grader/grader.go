// Package grader runs challenge submissions against their test cases
// and scores them. Unlike an interactive session, grading is batch:
// every test case gets the whole of its stdin up front, runs under a
// hard per-case timeout, and is judged by comparing trimmed stdout
// against the expected output.
package grader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/LuthoYRN/isipython/internal/diagnostics"
	"github.com/LuthoYRN/isipython/internal/transpiler"
)

// timeoutRaw is the untranslated error recorded for a timed-out case.
const timeoutRaw = "Code took too long to execute"

// Submission statuses written back by grading.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusError  = "error"
)

// Submission is one attempt at a challenge.
type Submission struct {
	ID          string
	ChallengeID string
	UserID      string
	Source      string
}

// TestCase is one graded input/output pair. Hidden cases are judged
// like any other but appear in reports only as aggregate counts.
// Example cases are the ones shown in the challenge description; the
// flag passes through to the visible view.
type TestCase struct {
	ID          string
	ChallengeID string
	Input       string
	Expected    string
	Weight      int
	Hidden      bool
	Example     bool
	Explanation string
}

// Progress is a user's standing on one challenge. BestScore is in
// challenge points (weights sum to the challenge's reward).
type Progress struct {
	UserID      string
	ChallengeID string
	Attempts    int
	BestScore   float64
	Completed   bool
}

// SubmissionResults is what grading writes back onto the submission
// record: validation failures are marked StatusError, graded runs
// StatusPassed or StatusFailed with their tallies.
type SubmissionResults struct {
	Status      string
	Score       int
	TestsPassed int
	TestsTotal  int
}

// SubmissionStore resolves submissions by id and records their
// grading outcome.
type SubmissionStore interface {
	Submission(ctx context.Context, id string) (*Submission, error)
	UpdateSubmissionResults(ctx context.Context, id string, res SubmissionResults) error
}

// TestCaseStore lists the test cases of a challenge.
type TestCaseStore interface {
	TestCases(ctx context.Context, challengeID string) ([]TestCase, error)
}

// ProgressStore reads and writes per-user challenge progress.
type ProgressStore interface {
	Progress(ctx context.Context, userID, challengeID string) (*Progress, error)
	SaveProgress(ctx context.Context, p *Progress) error
}

// CaseResult is the outcome of one visible test case.
type CaseResult struct {
	CaseID      string
	Passed      bool
	Weight      int
	Example     bool
	Input       string
	Expected    string
	Actual      string
	Explanation string
	// Error is the student-facing isiXhosa diagnostic; ErrorRaw keeps
	// the remapped original text.
	Error    string
	ErrorRaw string
}

// HiddenSummary is all a report reveals about hidden cases.
type HiddenSummary struct {
	Total  int
	Passed int
	Failed int
}

// Report is the full grading outcome for one submission.
type Report struct {
	SubmissionID string
	ChallengeID  string
	// Score is the sum of the weights of passed cases.
	Score  int
	Passed int
	Total  int
	// Completed is true iff every case passed.
	Completed bool
	// Error and ErrorTranslated are set when the submission never ran
	// (validation failure).
	Error           string
	ErrorTranslated string
	Visible         []CaseResult
	Hidden          HiddenSummary
}

// Grader wires the stores and the case runner together.
type Grader struct {
	subs       SubmissionStore
	cases      TestCaseStore
	progress   ProgressStore
	runner     CaseRunner
	translator *diagnostics.Translator
	log        *zap.Logger
}

func New(subs SubmissionStore, cases TestCaseStore, progress ProgressStore, runner CaseRunner, translator *diagnostics.Translator, log *zap.Logger) *Grader {
	return &Grader{
		subs:       subs,
		cases:      cases,
		progress:   progress,
		runner:     runner,
		translator: translator,
		log:        log,
	}
}

// Grade loads a submission, runs it against every test case of its
// challenge, in order, and records the attempt in the user's progress.
// A validation failure still counts as an attempt; it scores zero with
// the keyword message as the report error. Per-case failures never
// abort grading.
func (g *Grader) Grade(ctx context.Context, submissionID string) (*Report, error) {
	sub, err := g.subs.Submission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission %s: %w", submissionID, err)
	}

	report := &Report{
		SubmissionID: sub.ID,
		ChallengeID:  sub.ChallengeID,
	}

	art, err := transpiler.Transpile(sub.Source, transpiler.Options{Challenge: true})
	var fkErr *transpiler.ForeignKeywordError
	if errors.As(err, &fkErr) {
		report.Error = fkErr.Error()
		if g.translator != nil {
			report.ErrorTranslated = g.translator.TranslateError(ctx, report.Error, nil)
		}
		if err := g.subs.UpdateSubmissionResults(ctx, sub.ID, SubmissionResults{Status: StatusError}); err != nil {
			return nil, fmt.Errorf("record submission results: %w", err)
		}
		return report, g.recordAttempt(ctx, sub, report)
	}
	if err != nil {
		return nil, fmt.Errorf("transpile submission %s: %w", submissionID, err)
	}

	cases, err := g.cases.TestCases(ctx, sub.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("load test cases for %s: %w", sub.ChallengeID, err)
	}

	for _, tc := range cases {
		res := g.runCase(ctx, art.Target, art.LineMap, tc)
		if res.Passed {
			report.Passed++
			report.Score += tc.Weight
		}
		if tc.Hidden {
			report.Hidden.Total++
			if res.Passed {
				report.Hidden.Passed++
			} else {
				report.Hidden.Failed++
			}
		} else {
			report.Visible = append(report.Visible, res)
		}
	}
	report.Total = len(cases)
	report.Completed = report.Total > 0 && report.Passed == report.Total

	status := StatusFailed
	if report.Completed {
		status = StatusPassed
	}
	results := SubmissionResults{
		Status:      status,
		Score:       report.Score,
		TestsPassed: report.Passed,
		TestsTotal:  report.Total,
	}
	if err := g.subs.UpdateSubmissionResults(ctx, sub.ID, results); err != nil {
		return nil, fmt.Errorf("record submission results: %w", err)
	}

	g.log.Info("submission graded",
		zap.String("submission_id", sub.ID),
		zap.String("challenge_id", sub.ChallengeID),
		zap.Int("score", report.Score),
		zap.Int("passed", report.Passed),
		zap.Int("total", report.Total))

	return report, g.recordAttempt(ctx, sub, report)
}

// runCase executes one test case in a fresh child with its own temp
// file and judges the outcome.
func (g *Grader) runCase(ctx context.Context, target string, lineMap map[int]int, tc TestCase) CaseResult {
	res := CaseResult{
		CaseID:      tc.ID,
		Weight:      tc.Weight,
		Example:     tc.Example,
		Input:       tc.Input,
		Expected:    tc.Expected,
		Explanation: tc.Explanation,
	}

	script, err := writeScript(target)
	if err != nil {
		res.ErrorRaw = err.Error()
		res.Error = err.Error()
		return res
	}
	defer os.Remove(script)

	run, err := g.runner.RunCase(ctx, script, tc.Input)
	if err != nil {
		res.ErrorRaw = fmt.Sprintf("run test case: %v", err)
		res.Error = res.ErrorRaw
		return res
	}

	switch {
	case run.TimedOut:
		// Whatever the program managed to print stays visible; only the
		// error fields say it ran out of time.
		res.Actual = run.Stdout
		res.ErrorRaw = timeoutRaw
		res.Error = diagnostics.TimeoutFallback

	case run.Stderr != "":
		res.Actual = run.Stdout
		res.ErrorRaw = diagnostics.RemapLines(run.Stderr, lineMap)
		if g.translator != nil {
			res.Error = g.translator.TranslateError(ctx, run.Stderr, lineMap)
		} else {
			res.Error = res.ErrorRaw
		}

	default:
		res.Actual = run.Stdout
		res.Passed = strings.TrimSpace(run.Stdout) == strings.TrimSpace(tc.Expected)
	}
	return res
}

func (g *Grader) recordAttempt(ctx context.Context, sub *Submission, report *Report) error {
	p, err := g.progress.Progress(ctx, sub.UserID, sub.ChallengeID)
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	if p == nil {
		p = &Progress{UserID: sub.UserID, ChallengeID: sub.ChallengeID}
	}
	p.Attempts++
	if float64(report.Score) > p.BestScore {
		p.BestScore = float64(report.Score)
	}
	if report.Completed {
		p.Completed = true
	}
	if err := g.progress.SaveProgress(ctx, p); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func writeScript(target string) (string, error) {
	f, err := os.CreateTemp("", "isipython-grade-*.py")
	if err != nil {
		return "", fmt.Errorf("create script file: %w", err)
	}
	if _, err := f.WriteString(target); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write script file: %w", err)
	}
	f.Close()
	return f.Name(), nil
}
