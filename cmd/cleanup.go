package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/enhance"
)

var (
	cleanupOlderThan time.Duration
	cleanupAll       bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Reset prospects stuck in progress by a crashed run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("cleanup"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		threshold := cleanupOlderThan
		if cleanupAll {
			threshold = 0
		}

		n, err := enhance.NewSweep(st).Run(ctx, threshold)
		if err != nil {
			return err
		}
		zap.L().Info("cleanup complete", zap.Int("reset", n))
		return nil
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", enhance.DefaultStaleAge, "only reset claims older than this")
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "reset every in-progress prospect regardless of age")
	rootCmd.AddCommand(cleanupCmd)
}
