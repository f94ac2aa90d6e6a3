package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/LuthoYRN/isipython/internal/grader"
	"github.com/LuthoYRN/isipython/internal/store"
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade challenge submissions",
}

var gradeRunCmd = &cobra.Command{
	Use:   "run SUBMISSION_ID",
	Short: "Grade a stored submission against its challenge's test cases",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		g := newGrader(cmd, st)
		report, err := g.Grade(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

var submitUser string

var gradeSubmitCmd = &cobra.Command{
	Use:   "submit CHALLENGE_ID FILE",
	Short: "Store a solution file as a submission and grade it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		sub := &grader.Submission{
			ID:          uuid.NewString(),
			ChallengeID: args[0],
			UserID:      submitUser,
			Source:      string(source),
		}
		if err := st.SaveSubmission(cmd.Context(), sub); err != nil {
			return err
		}

		report, err := newGrader(cmd, st).Grade(cmd.Context(), sub.ID)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

var (
	caseInput   string
	caseWeight  int
	caseHidden  bool
	caseExample bool
	caseExplain string
)

var gradeAddCaseCmd = &cobra.Command{
	Use:   "add-case CHALLENGE_ID EXPECTED_OUTPUT",
	Short: "Add a test case to a challenge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		existing, err := st.TestCases(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		tc := &grader.TestCase{
			ID:          uuid.NewString(),
			ChallengeID: args[0],
			Input:       caseInput,
			Expected:    args[1],
			Weight:      caseWeight,
			Hidden:      caseHidden,
			Example:     caseExample,
			Explanation: caseExplain,
		}
		if err := st.SaveTestCase(cmd.Context(), tc, len(existing)); err != nil {
			return err
		}
		fmt.Println(tc.ID)
		return nil
	},
}

func init() {
	gradeSubmitCmd.Flags().StringVar(&submitUser, "user", "local", "user id to record the attempt under")
	gradeAddCaseCmd.Flags().StringVar(&caseInput, "input", "", "stdin fed to the program")
	gradeAddCaseCmd.Flags().IntVar(&caseWeight, "weight", 1, "weight of this case in the score")
	gradeAddCaseCmd.Flags().BoolVar(&caseHidden, "hidden", false, "report this case only in the aggregate counts")
	gradeAddCaseCmd.Flags().BoolVar(&caseExample, "example", false, "mark this case as one shown in the challenge description")
	gradeAddCaseCmd.Flags().StringVar(&caseExplain, "explanation", "", "authored explanation shown with the case result")
	gradeCmd.AddCommand(gradeRunCmd, gradeSubmitCmd, gradeAddCaseCmd)
}

func newGrader(cmd *cobra.Command, st *store.Store) *grader.Grader {
	runner := grader.NewProcessRunner(cfg.Execution.PythonPath, cfg.Execution.CaseTimeout.Std())
	return grader.New(st, st, st, runner, newTranslator(cmd.Context()), log)
}

func printReport(r *grader.Report) {
	if r.Error != "" {
		fmt.Println(r.Error)
		if r.ErrorTranslated != "" {
			fmt.Println(r.ErrorTranslated)
		}
		return
	}
	for i, c := range r.Visible {
		status := "FAIL"
		if c.Passed {
			status = "PASS"
		}
		fmt.Printf("case %d: %s", i+1, status)
		if !c.Passed {
			fmt.Printf("\n  input:    %q\n  expected: %q\n  actual:   %q", c.Input, c.Expected, c.Actual)
		}
		if c.Error != "" {
			fmt.Printf("\n  %s", c.Error)
		}
		if c.Explanation != "" {
			fmt.Printf("\n  %s", c.Explanation)
		}
		fmt.Println()
	}
	if r.Hidden.Total > 0 {
		fmt.Printf("hidden: %d/%d passed\n", r.Hidden.Passed, r.Hidden.Total)
	}
	fmt.Printf("score: %d (%d/%d cases)\n", r.Score, r.Passed, r.Total)
}
