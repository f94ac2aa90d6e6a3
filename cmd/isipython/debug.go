package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/LuthoYRN/isipython/internal/tui"
)

var debugCmd = &cobra.Command{
	Use:   "debug FILE",
	Short: "Step through an isiXhosa program statement by statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		sup, _ := newSupervisor(ctx)
		snap, err := sup.Start(ctx, string(source), true)
		if err != nil {
			return err
		}

		model := tui.New(sup, string(source), snap)
		_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	},
}
