package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kiln/internal/classify"
	"kiln/internal/identity"
	"kiln/internal/scene"
)

func newMaterialsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "materials <scene.json>",
		Short: "Classify the materials of an exported scene document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			sc, err := scene.LoadSnapshot(args[0])
			if err != nil {
				return err
			}

			headers := []string{"Material", "Identity", "Class", "Channel", "Reason", "Tasks"}
			var rows [][]string
			for _, name := range sc.MaterialNames() {
				mat, _ := sc.Material(name)
				result := classify.Classify(mat)
				tasks := 0
				if result.Class == classify.ClassComplex {
					tasks = len(classify.TaskChannels(mat))
				}
				id := mat.Identity
				if !identity.Valid(id) {
					id = "(unassigned)"
				}
				rows = append(rows, []string{
					name,
					id,
					result.Class.String(),
					string(result.Channel),
					result.Reason,
					strconv.Itoa(tasks),
				})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No materials referenced by exportable objects.")
				return nil
			}
			fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{
				alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight,
			}))
			return nil
		},
	}
}
