package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kiln/internal/bake"
	"kiln/internal/catalog"
	"kiln/internal/scene"
)

func newBakeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "bake <scene.json>",
		Short: "Run one bake batch against an exported scene document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			sc, err := scene.LoadSnapshot(args[0])
			if err != nil {
				return err
			}

			store, err := catalog.Open(cfg.CatalogDatabasePath())
			if err != nil {
				return err
			}
			defer store.Close()

			orchestrator := bake.NewOrchestrator(cfg, store, logger)
			result, err := orchestrator.Bake(cmd.Context(), sc)
			if err != nil {
				return fmt.Errorf("bake failed (%s): %w", bake.Reason(err), err)
			}

			out := cmd.OutOrStdout()
			baked := 0
			for _, d := range result.Decisions {
				if d.UseBaked {
					baked++
				}
			}
			fmt.Fprintf(out, "Batch complete: %d task(s) finished, %d material(s) baked, %d height source(s) recorded.\n",
				result.Finished, baked, len(result.Heights))
			return nil
		},
	}
}
