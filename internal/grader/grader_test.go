package grader

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStores is an in-memory implementation of all three store
// interfaces, enough to grade one challenge.
type memStores struct {
	subs     map[string]*Submission
	results  map[string]SubmissionResults
	cases    map[string][]TestCase
	progress map[string]*Progress
}

func newMemStores() *memStores {
	return &memStores{
		subs:     map[string]*Submission{},
		results:  map[string]SubmissionResults{},
		cases:    map[string][]TestCase{},
		progress: map[string]*Progress{},
	}
}

func (m *memStores) Submission(_ context.Context, id string) (*Submission, error) {
	sub, ok := m.subs[id]
	if !ok {
		return nil, fmt.Errorf("submission %s not found", id)
	}
	return sub, nil
}

func (m *memStores) UpdateSubmissionResults(_ context.Context, id string, res SubmissionResults) error {
	m.results[id] = res
	return nil
}

func (m *memStores) TestCases(_ context.Context, challengeID string) ([]TestCase, error) {
	return m.cases[challengeID], nil
}

func (m *memStores) Progress(_ context.Context, userID, challengeID string) (*Progress, error) {
	return m.progress[userID+"/"+challengeID], nil
}

func (m *memStores) SaveProgress(_ context.Context, p *Progress) error {
	m.progress[p.UserID+"/"+p.ChallengeID] = p
	return nil
}

// stubRunner maps stdin input to a canned run outcome.
type stubRunner struct {
	outputs map[string]RunOutput
}

func (s *stubRunner) RunCase(_ context.Context, _, input string) (RunOutput, error) {
	out, ok := s.outputs[input]
	if !ok {
		return RunOutput{}, fmt.Errorf("unexpected input %q", input)
	}
	return out, nil
}

func newTestGrader(stores *memStores, runner CaseRunner) *Grader {
	return New(stores, stores, stores, runner, nil, zap.NewNop())
}

func seedSubmission(stores *memStores, source string) {
	stores.subs["sub1"] = &Submission{
		ID:          "sub1",
		ChallengeID: "ch1",
		UserID:      "user1",
		Source:      source,
	}
}

func TestGradeWeightedScore(t *testing.T) {
	stores := newMemStores()
	seedSubmission(stores, `print("molo")`)
	stores.cases["ch1"] = []TestCase{
		{ID: "c1", ChallengeID: "ch1", Input: "a", Expected: "molo", Weight: 40},
		{ID: "c2", ChallengeID: "ch1", Input: "b", Expected: "sala kakuhle", Weight: 60},
	}
	runner := &stubRunner{outputs: map[string]RunOutput{
		"a": {Stdout: "molo\n"},
		"b": {Stdout: "molo\n"},
	}}

	report, err := newTestGrader(stores, runner).Grade(context.Background(), "sub1")
	require.NoError(t, err)

	assert.Equal(t, 40, report.Score)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 2, report.Total)
	assert.False(t, report.Completed)

	// Grading writes its outcome back onto the submission record.
	assert.Equal(t, SubmissionResults{
		Status: StatusFailed, Score: 40, TestsPassed: 1, TestsTotal: 2,
	}, stores.results["sub1"])

	p := stores.progress["user1/ch1"]
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Attempts)
	assert.Equal(t, 40.0, p.BestScore)
	assert.False(t, p.Completed)
}

func TestGradeTrimsBeforeComparing(t *testing.T) {
	stores := newMemStores()
	seedSubmission(stores, `print("molo")`)
	stores.cases["ch1"] = []TestCase{
		{ID: "c1", ChallengeID: "ch1", Input: "", Expected: "molo\n", Weight: 1},
	}
	runner := &stubRunner{outputs: map[string]RunOutput{
		"": {Stdout: "  molo  \n"},
	}}

	report, err := newTestGrader(stores, runner).Grade(context.Background(), "sub1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Score)
	assert.True(t, report.Completed)
}

func TestGradeHiddenCasesAggregatedOnly(t *testing.T) {
	stores := newMemStores()
	seedSubmission(stores, `print("molo")`)
	stores.cases["ch1"] = []TestCase{
		{ID: "c1", ChallengeID: "ch1", Input: "v", Expected: "yes", Weight: 1, Example: true},
		{ID: "c2", ChallengeID: "ch1", Input: "h", Expected: "secret", Weight: 2, Hidden: true},
		{ID: "c3", ChallengeID: "ch1", Input: "h2", Expected: "molo", Weight: 3, Hidden: true},
	}
	runner := &stubRunner{outputs: map[string]RunOutput{
		"v":  {Stdout: "no"},
		"h":  {Stdout: "also wrong"},
		"h2": {Stdout: "molo"},
	}}

	report, err := newTestGrader(stores, runner).Grade(context.Background(), "sub1")
	require.NoError(t, err)

	// Hidden cases contribute score and counts but expose no content.
	require.Len(t, report.Visible, 1)
	visible := report.Visible[0]
	assert.True(t, visible.Example)
	assert.Equal(t, "v", visible.Input)
	assert.Equal(t, "yes", visible.Expected)
	assert.Equal(t, "no", visible.Actual)

	assert.Equal(t, HiddenSummary{Total: 2, Passed: 1, Failed: 1}, report.Hidden)
	assert.Equal(t, 3, report.Score)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 3, report.Total)
}

func TestGradeTimedOutCase(t *testing.T) {
	stores := newMemStores()
	seedSubmission(stores, `print("molo")`)
	stores.cases["ch1"] = []TestCase{
		{ID: "c1", ChallengeID: "ch1", Input: "", Expected: "molo", Weight: 1},
	}
	runner := &stubRunner{outputs: map[string]RunOutput{
		"": {Stdout: "1\n2\n", TimedOut: true},
	}}

	report, err := newTestGrader(stores, runner).Grade(context.Background(), "sub1")
	require.NoError(t, err)

	// Partial output survives; the timeout lives in the error fields.
	res := report.Visible[0]
	assert.False(t, res.Passed)
	assert.Equal(t, "1\n2\n", res.Actual)
	assert.Equal(t, "Code took too long to execute", res.ErrorRaw)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 0, report.Score)
}

func TestGradeStderrRemapsLines(t *testing.T) {
	stores := newMemStores()
	// Line 1 splits into two target lines, the failing print lands on
	// target line 3; the diagnostic must name source line 2.
	seedSubmission(stores, "x = input(\"n\")\nprint(1 / 0)")
	stores.cases["ch1"] = []TestCase{
		{ID: "c1", ChallengeID: "ch1", Input: "5", Expected: "1", Weight: 1},
	}
	runner := &stubRunner{outputs: map[string]RunOutput{
		"5": {Stderr: `File "s.py", line 3: ZeroDivisionError`},
	}}

	report, err := newTestGrader(stores, runner).Grade(context.Background(), "sub1")
	require.NoError(t, err)

	res := report.Visible[0]
	assert.False(t, res.Passed)
	assert.Contains(t, res.Error, "line 2")
	assert.NotContains(t, res.Error, "line 3")
	assert.Contains(t, res.ErrorRaw, "line 2")
}

func TestGradeValidationFailureCountsAttempt(t *testing.T) {
	stores := newMemStores()
	seedSubmission(stores, "while True:\n    pass")
	stores.cases["ch1"] = []TestCase{
		{ID: "c1", ChallengeID: "ch1", Expected: "x", Weight: 1},
	}

	report, err := newTestGrader(stores, &stubRunner{}).Grade(context.Background(), "sub1")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Score)
	assert.Contains(t, report.Error, "ngexesha")
	assert.Contains(t, report.Error, "while")
	assert.Empty(t, report.Visible)
	assert.Equal(t, HiddenSummary{}, report.Hidden)
	assert.Equal(t, SubmissionResults{Status: StatusError}, stores.results["sub1"])

	p := stores.progress["user1/ch1"]
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Attempts)
}

func TestGradeBestScoreIsSticky(t *testing.T) {
	stores := newMemStores()
	seedSubmission(stores, `print("molo")`)
	stores.cases["ch1"] = []TestCase{
		{ID: "c1", ChallengeID: "ch1", Input: "", Expected: "molo", Weight: 1},
	}
	g := newTestGrader(stores, &stubRunner{outputs: map[string]RunOutput{
		"": {Stdout: "molo"},
	}})

	_, err := g.Grade(context.Background(), "sub1")
	require.NoError(t, err)

	// A later, worse attempt must not lower the best score.
	gBad := newTestGrader(stores, &stubRunner{outputs: map[string]RunOutput{
		"": {Stdout: "wrong"},
	}})
	_, err = gBad.Grade(context.Background(), "sub1")
	require.NoError(t, err)

	p := stores.progress["user1/ch1"]
	assert.Equal(t, 2, p.Attempts)
	assert.Equal(t, 1.0, p.BestScore)
	assert.True(t, p.Completed)
}

func TestGradeUnknownSubmission(t *testing.T) {
	_, err := newTestGrader(newMemStores(), &stubRunner{}).Grade(context.Background(), "nope")
	assert.Error(t, err)
}
