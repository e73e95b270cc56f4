package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cinegraph/common/config"
)

type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "cinegraph",
		Short:        "Resolve movie graphs through request scoped batching loaders",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}

			logger, err := cfg.Logger()
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)

			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = zap.L().Sync()
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newResolveCmd(a))
	return root
}
