package main

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cinegraph/common/config"
	"github.com/cinegraph/common/dataloader"
	"github.com/cinegraph/common/loaders"
	"github.com/cinegraph/common/metrics"
	"github.com/cinegraph/common/mongo"
	"github.com/cinegraph/common/mysql"
	"github.com/cinegraph/common/resolvers"
)

func newResolveCmd(a *app) *cobra.Command {
	var movies []int32

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve movies with their casts as one request and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(movies) == 0 {
				return errors.New("at least one --movie is required")
			}

			ctx := cmd.Context()
			opener, closeBackend, err := openBackend(ctx, a.cfg.Database)
			if err != nil {
				return err
			}
			defer closeBackend()

			reg := prometheus.NewRegistry()
			opts := append(a.cfg.Loader.Options(),
				dataloader.WithObserver(metrics.New(reg)),
				dataloader.WithLogger(zap.S()),
			)

			var res *resolvers.Result
			err = loaders.Scope(ctx, opener, func(ctx context.Context) error {
				res, err = resolvers.ResolveMovies(ctx, movies)
				return err
			}, opts...)
			if err != nil {
				return err
			}
			logBatches(reg)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().Int32SliceVar(&movies, "movie", nil, "Movie id to resolve. Repeatable.")

	return cmd
}

func openBackend(ctx context.Context, cfg config.Database) (loaders.Opener, func(), error) {
	switch cfg.Kind {
	case config.DatabaseMySQL:
		pool, err := mysql.Setup(ctx, mysql.SetupOptions{
			DSN:             cfg.MySQL.DSN,
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}

		return pool, func() {
			if err := pool.Close(); err != nil {
				zap.S().Warnw("mysql, failed to close pool", "error", err)
			}
		}, nil
	case config.DatabaseMongo:
		inst, err := mongo.Setup(ctx, mongo.SetupOptions{
			URI:    cfg.Mongo.URI,
			DB:     cfg.Mongo.DB,
			Direct: cfg.Mongo.Direct,
		})
		if err != nil {
			return nil, nil, err
		}

		return inst, func() {
			if err := inst.Close(context.Background()); err != nil {
				zap.S().Warnw("mongo, failed to disconnect", "error", err)
			}
		}, nil
	}

	return nil, nil, errors.Errorf("unknown database kind %q", cfg.Kind)
}

// logBatches logs the number of backend fetches each loader issued.
func logBatches(g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		zap.S().Warnw("metrics, failed to gather", "error", err)
		return
	}

	for _, mf := range families {
		if mf.GetName() != "cinegraph_dataloader_batches_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "loader" {
					zap.S().Infow("loader batches",
						"loader", label.GetValue(),
						"batches", m.GetCounter().GetValue(),
					)
				}
			}
		}
	}
}
