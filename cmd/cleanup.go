package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete long-expired event rows from all sheets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		deleted, err := env.Pipeline.CleanupExpired(ctx)
		if err != nil {
			return eris.Wrap(err, "cleanup")
		}

		zap.L().Info("cleanup complete", zap.Int("deleted", deleted))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
