package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/store"
)

var statusSkipExisting bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many prospects still need each enhancement",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("status"); err != nil {
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

		for _, kind := range model.AllKinds() {
			n, err := st.CountEligible(ctx, store.EligibilityFilter{
				Kind:         kind,
				SkipExisting: statusSkipExisting,
			})
			if err != nil {
				return err
			}
			fmt.Printf("%-12s %d\n", kind, n)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusSkipExisting, "skip-existing", true, "exclude prospects already processed by the model")
	rootCmd.AddCommand(statusCmd)
}
