// internal/engine/runner.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain/solbc"
	"github.com/rovshanmuradov/conviction-engine/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/conviction-engine/internal/config"
	"github.com/rovshanmuradov/conviction-engine/internal/dex"
	"github.com/rovshanmuradov/conviction-engine/internal/dex/dbc"
	"github.com/rovshanmuradov/conviction-engine/internal/dex/jupiter"
	"github.com/rovshanmuradov/conviction-engine/internal/fees"
	"github.com/rovshanmuradov/conviction-engine/internal/launch"
	"github.com/rovshanmuradov/conviction-engine/internal/retry"
	"github.com/rovshanmuradov/conviction-engine/internal/server"
	"github.com/rovshanmuradov/conviction-engine/internal/swap"
	"github.com/rovshanmuradov/conviction-engine/internal/wallet"
)

// Runner собирает движок из конфигурации и обслуживает HTTP API до сигнала.
type Runner struct {
	cfg        config.EngineConfig
	logger     *zap.Logger
	wallet     *wallet.Wallet
	server     *server.Server
	shutdown   *ShutdownHandler
	shutdownCh chan os.Signal
}

// NewRunner wires every component. Nothing touches the network here.
func NewRunner(cfg config.EngineConfig, logger *zap.Logger) (*Runner, error) {
	w, err := wallet.NewWallet(cfg.WalletPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	client := solbc.NewClient(cfg.RPCURL, logger)
	estimator := fees.NewEstimator(cfg.FeeEndpoint, cfg.Fee.Floor, cfg.Fee.Default, logger)

	txCfg := transaction.DefaultConfig()
	txCfg.MaxRetries = cfg.Tx.MaxRetries
	txCfg.PollInterval = cfg.Tx.PollInterval
	txCfg.ConfirmTimeout = cfg.Tx.ConfirmTimeout
	manager := transaction.NewManager(client, logger, txCfg)

	dbcClient := dbc.NewClient(client, cfg.DBCProgramID, retry.Policy{
		Attempts: cfg.PoolLookup.Attempts,
		Delay:    cfg.PoolLookup.Delay,
	}, logger)
	jupClient := jupiter.NewClient(cfg.JupiterURL, cfg.JupiterAPIKey, cfg.JupiterRPS, logger)

	router := dex.NewRouter(
		dex.NewCurveVenue(dbcClient, logger),
		dex.NewAggregatorVenue(jupClient, cfg.QuoteMint, logger),
		logger,
	)
	launcher := launch.NewLauncher(launch.NewComposer(cfg, client, estimator, w, logger), client, manager, logger)
	swaps := swap.NewService(cfg, router, client, manager, estimator, w, logger)

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: &server.Handlers{
			Launcher: launcher,
			Quoter:   router,
			Swapper:  swaps,
			Pools:    dbcClient,
			Curve: server.CurveSettings{
				BinStep:       cfg.Curve.BinStep,
				BaseDecimals:  cfg.Token.BaseDecimals,
				QuoteDecimals: cfg.Token.QuoteDecimals,
			},
			DevMode: cfg.Server.DevMode,
			Logger:  logger,
		},
		Config: server.ServerConfig{
			Addr:    cfg.Server.Addr,
			DevMode: cfg.Server.DevMode,
			APIKey:  cfg.Server.APIKey,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create http server: %w", err)
	}

	r := &Runner{
		cfg:        cfg,
		logger:     logger.Named("runner"),
		wallet:     w,
		server:     srv,
		shutdown:   NewShutdownHandler(logger, 0),
		shutdownCh: make(chan os.Signal, 1),
	}
	r.shutdown.Add("http", srv.Shutdown)
	return r, nil
}

// Run serves until ctx is done, a signal arrives or the server fails.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(r.shutdownCh)

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("API server starting",
			zap.String("addr", r.cfg.Server.Addr),
			zap.String("network", r.cfg.Network),
			zap.String("wallet", r.wallet.String()))
		errCh <- r.server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case sig := <-r.shutdownCh:
		r.logger.Info("Signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
		r.logger.Info("Context cancelled")
	}

	return r.shutdown.Shutdown(context.Background())
}
