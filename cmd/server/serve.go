package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/auction-draft-backend/internal/catalog"
	"github.com/DoyleJ11/auction-draft-backend/internal/config"
	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
	"github.com/DoyleJ11/auction-draft-backend/internal/httpapi"
	"github.com/DoyleJ11/auction-draft-backend/internal/hub"
	"github.com/DoyleJ11/auction-draft-backend/internal/lobby"
)

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the catalog and serve the auction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel, opts.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var loaderOpts []catalog.Option
	if cfg.ShuffleSeed != 0 {
		loaderOpts = append(loaderOpts, catalog.WithSeed(cfg.ShuffleSeed))
	}
	eng, err := engine.New(cfg.Rules(), cfg.Teams, catalog.NewLoader(cfg.CatalogPath, loaderOpts...))
	if err != nil {
		return err
	}
	if err := eng.Initialize(); err != nil {
		// the engine keeps whatever did load
		for _, e := range multierr.Errors(err) {
			log.Warn("catalog problem", zap.String("path", cfg.CatalogPath), zap.Error(e))
		}
	}
	st := eng.State()
	log.Info("catalog loaded",
		zap.String("path", cfg.CatalogPath),
		zap.Int("lots", len(st.Catalog.Lots)),
		zap.Int("players", st.Catalog.PlayerCount()),
		zap.Strings("teams", cfg.Teams))

	secret, err := hub.HashSecret(cfg.AuctioneerSecret)
	if err != nil {
		return err
	}
	if secret == nil {
		log.Warn("AUCTIONEER_SECRET is empty; the first auctioneer to connect takes the seat")
	}

	lb := lobby.NewLobby(ctx, eng, log)
	h := hub.NewHub(ctx, lb, secret, log)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.SetupRoutes(h, log, cfg.WriteTimeout),
		ReadHeaderTimeout: cfg.ReadTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()

		// closing the lobby ends every websocket writer
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
