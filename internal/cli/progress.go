package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cyber-sensei-progress/internal/app"
	"cyber-sensei-progress/internal/config"
	"cyber-sensei-progress/internal/logging"
)

// NewProgressCmd groups offline maintenance of stored learner progress.
func NewProgressCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect or reset stored learner progress",
	}

	var learnerID string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print a learner's progress summary as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, learnerID, func(ctx context.Context, store *app.Store) error {
				return printJSON(cmd.OutOrStdout(), store.Summary())
			})
		},
	}

	var confirmed bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Wipe a learner's progress (irreversible)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to reset %q without --yes", learnerID)
			}
			return withStore(cmd.Context(), *configPath, learnerID, func(ctx context.Context, store *app.Store) error {
				store.Reset(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "progress for %s reset\n", learnerID)
				return nil
			})
		},
	}
	reset.Flags().BoolVar(&confirmed, "yes", false, "confirm the reset")

	for _, sub := range []*cobra.Command{show, reset} {
		sub.Flags().StringVar(&learnerID, "learner", "", "learner id")
		_ = sub.MarkFlagRequired("learner")
		cmd.AddCommand(sub)
	}
	return cmd
}

func withStore(ctx context.Context, configPath, learnerID string, fn func(context.Context, *app.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	kv, closeKV, err := openKVStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeKV()

	persistence := app.NewPersistence(kv, logger, nil)
	store := app.OpenStore(ctx, storageKeys(cfg).Progress(learnerID), persistence,
		app.WithLocation(cfg.Location()),
		app.WithLogger(logger),
	)
	return fn(ctx, store)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
