// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gridhold/gridhold/internal/access"
	"github.com/gridhold/gridhold/internal/claim"
	claimpg "github.com/gridhold/gridhold/internal/claim/postgres"
	"github.com/gridhold/gridhold/internal/config"
	"github.com/gridhold/gridhold/internal/economy"
	economypg "github.com/gridhold/gridhold/internal/economy/postgres"
	"github.com/gridhold/gridhold/internal/geofence"
	geofencepg "github.com/gridhold/gridhold/internal/geofence/postgres"
	"github.com/gridhold/gridhold/internal/limits"
	"github.com/gridhold/gridhold/internal/logging"
	"github.com/gridhold/gridhold/internal/observability"
	"github.com/gridhold/gridhold/internal/region"
	"github.com/gridhold/gridhold/internal/store"
	"github.com/gridhold/gridhold/pkg/errutil"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the claim engine server",
		Long: `Start the claim engine: connect to PostgreSQL, hydrate the claim
cache, and serve metrics and health probes until interrupted.`,
		RunE: runServe,
	}

	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().String("logging.level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("logging.format", "", "log format (text, json)")
	cmd.Flags().String("observability.addr", "", "metrics/health listen address")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logging.SetDefault("gridhold", version, cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database.URL, time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	if err != nil {
		errutil.LogError(slog.Default(), "database connection failed", err)
		return err
	}
	defer pool.Close()

	deps, err := buildEngine(cfg, pool)
	if err != nil {
		errutil.LogError(slog.Default(), "engine construction failed", err)
		return err
	}

	// Probes come up before hydration so /readyz reports the loading phase.
	var ready atomic.Bool
	obs := observability.NewServer(cfg.Observability.Addr, ready.Load)
	obsErrs, err := obs.Start()
	if err != nil {
		errutil.LogError(slog.Default(), "observability server failed to start", err)
		return err
	}

	if err := deps.cache.Load(ctx, deps.repo); err != nil {
		errutil.LogError(slog.Default(), "claim cache hydration failed", err)
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = obs.Stop(stopCtx)
		return err
	}
	ready.Store(true)

	slog.Info("gridhold serving", "metrics_addr", obs.Addr())

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-obsErrs:
		if err != nil {
			errutil.LogError(slog.Default(), "observability server failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := obs.Stop(shutdownCtx); err != nil {
		errutil.LogError(slog.Default(), "observability server stop failed", err)
	}
	return nil
}

// engineDeps bundles the wired collaborators for the serve loop.
type engineDeps struct {
	engine *claim.Engine
	cache  *claim.Cache
	repo   claim.Repository
}

// buildEngine wires the claim engine from configuration. The pool argument
// satisfies every repository's pool requirement.
func buildEngine(cfg config.Config, pool *pgxpool.Pool) (*engineDeps, error) {
	cache := claim.NewCache()
	repo := claimpg.NewClaimRepository(pool)
	fence := geofencepg.NewVolumeStore(pool)

	extent := geofence.VerticalExtent{MinY: cfg.Claims.WorldMinY, MaxY: cfg.Claims.WorldMaxY}
	merger := region.NewMerger(cache, fence, repo, extent)

	var provider economy.Provider
	switch cfg.Economy.Provider {
	case "postgres":
		provider = economypg.NewLedger(pool)
	default:
		provider = economy.Noop{}
	}

	admin := access.NewStaticAdmin()
	for _, raw := range cfg.Access.Admins {
		id, err := ulid.Parse(raw)
		if err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("admin", raw).Wrap(err)
		}
		if err := admin.Grant(id, access.AdminPermission); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("admin", raw).Wrap(err)
		}
	}

	disabled := make(map[string]struct{}, len(cfg.Claims.DisabledWorlds))
	for _, w := range cfg.Claims.DisabledWorlds {
		disabled[w] = struct{}{}
	}

	engine := claim.NewEngine(claim.EngineConfig{
		Cache:   cache,
		Repo:    repo,
		Fence:   fence,
		Regions: merger,
		Economy: provider,
		Limits:  limits.NewStatic(cfg.Limits.Default, cfg.Limits.Groups, nil),
		Admin:   admin,
		Rules: claim.Rules{
			Price:          cfg.Claims.Price,
			Refund:         cfg.Claims.Refund,
			MaxNameLength:  cfg.Claims.MaxNameLength,
			MinDistance:    cfg.Claims.MinDistance,
			MinSalePrice:   cfg.Claims.MinSalePrice,
			MaxSalePrice:   cfg.Claims.MaxSalePrice,
			DisabledWorlds: disabled,
			Extent:         extent,
		},
	})

	return &engineDeps{engine: engine, cache: cache, repo: repo}, nil
}
