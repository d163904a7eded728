package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/enhance"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/store"
)

var (
	batchKind         string
	batchLimit        int
	batchIDs          []string
	batchIDsFile      string
	batchSkipExisting bool
	batchForce        bool
)

// readIDsFile returns the non-empty lines of path in order.
func readIDsFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read ids file %s", path)
	}
	var ids []string
	for _, line := range strings.Split(string(raw), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enhance eligible prospects in one synchronous run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		kind, err := model.ParseKind(batchKind)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		ids := batchIDs
		if len(ids) == 0 && batchIDsFile != "" {
			ids, err = readIDsFile(batchIDsFile)
			if err != nil {
				return err
			}
		}
		if len(ids) == 0 {
			eligible, err := env.Store.ListEligible(ctx, store.EligibilityFilter{
				Kind:         kind,
				SkipExisting: batchSkipExisting,
				Limit:        batchLimit,
			})
			if err != nil {
				return eris.Wrap(err, "list eligible prospects")
			}
			ids = make([]string, len(eligible))
			for i, p := range eligible {
				ids[i] = p.ID
			}
		}

		if len(ids) == 0 {
			zap.L().Info("no eligible prospects found", zap.String("kind", string(kind)))
			return nil
		}

		zap.L().Info("starting batch run",
			zap.String("kind", string(kind)),
			zap.Int("prospects", len(ids)))

		succeeded := env.Batch.Run(ctx, ids, enhance.BatchOptions{
			Kind:            kind,
			ChunkSize:       cfg.Enhance.ChunkSize,
			CheckpointEvery: cfg.Enhance.CheckpointEvery,
			Force:           batchForce,
		})

		zap.L().Info("batch run complete",
			zap.Int("succeeded", succeeded),
			zap.Int("total", len(ids)))
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchKind, "kind", "all", "enhancement kind: values, naics, titles, set_asides, or all")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max prospects to process (0 = no limit)")
	batchCmd.Flags().StringSliceVar(&batchIDs, "ids", nil, "explicit prospect ids (skips eligibility selection)")
	batchCmd.Flags().StringVar(&batchIDsFile, "ids-file", "", "file of prospect ids, one per line")
	batchCmd.Flags().BoolVar(&batchSkipExisting, "skip-existing", true, "skip prospects already processed by the model")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "re-run enhancements whose preconditions are already satisfied")
	rootCmd.AddCommand(batchCmd)
}
