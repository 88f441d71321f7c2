package server

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/Chuksremi15/wiseramp-backend/internal/chaincfg"
	"github.com/Chuksremi15/wiseramp-backend/internal/chainrpc"
	"github.com/Chuksremi15/wiseramp-backend/internal/matcher"
	"github.com/Chuksremi15/wiseramp-backend/internal/monitoring"
	"github.com/Chuksremi15/wiseramp-backend/internal/ordersvc"
	"github.com/Chuksremi15/wiseramp-backend/internal/settlement"
	"github.com/Chuksremi15/wiseramp-backend/internal/store"
	pgstore "github.com/Chuksremi15/wiseramp-backend/internal/store/postgres"
	"github.com/Chuksremi15/wiseramp-backend/internal/sweeper"
	"github.com/Chuksremi15/wiseramp-backend/internal/transport/http"
	"github.com/Chuksremi15/wiseramp-backend/internal/treasury"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/config"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
	"github.com/Chuksremi15/wiseramp-backend/internal/watcher"
)

func Init() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	db := pgstore.New(appConfig, logger)
	s := store.New()

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(metricsRegistry)

	keys, err := treasury.NewHDKeyProvider(appConfig.Blockchain.CollectionWalletSeed)
	if err != nil {
		logger.Fatal("failed to init collection wallet provider", map[string]string{
			"error": err.Error(),
		})
	}
	executor, err := treasury.NewEVMExecutor(appConfig, keys, logger)
	if err != nil {
		logger.Fatal("failed to init transfer executor", map[string]string{
			"error": err.Error(),
		})
	}

	sweepQueue := sweeper.New(db, s, executor, appConfig.Blockchain.VaultAddress, appConfig.Settlement.SweepMaxRetries, metrics, logger)
	confirmer := settlement.New(db, s, executor, sweepQueue, appConfig.Blockchain.VaultAddress, logger)

	clientFactory := func(chain string) (chainrpc.IChainClient, error) {
		cfg, ok := chaincfg.Get(chain)
		if !ok {
			return nil, errors.Errorf("unsupported chain %s", chain)
		}
		evm, err := chainrpc.NewEVMClient(appConfig.RPCEndpointFor(chain), cfg.ChainID, logger)
		if err != nil {
			return nil, err
		}
		return monitoring.NewCircuitBreakerChainClient(chain, evm, monitoring.DefaultCircuitBreakerConfig, metrics, logger), nil
	}

	scanner := watcher.NewScanner(nil, clientFactory, appConfig.Settlement.ScanInterval, metrics, logger)
	registry := watcher.NewRegistry(scanner, s, db, logger)
	engine := matcher.New(db, s, registry, confirmer, logger)
	scanner.SetSink(engine)

	orderSvc := ordersvc.New(db, s, registry, appConfig.Settlement.OrderTTL, logger)

	// Restore state from before the last restart: active watches and
	// interrupted sweep jobs.
	if err := registry.Rebuild(); err != nil {
		logger.Error("[Init][Rebuild]", map[string]string{
			"error": err.Error(),
		})
	}
	if err := sweepQueue.ResumePending(); err != nil {
		logger.Error("[Init][ResumePending]", map[string]string{
			"error": err.Error(),
		})
	}

	c := cron.New()

	c.AddFunc("@every 5m", func() {
		targets, err := orderSvc.ExpireOldOrders()
		if err != nil {
			logger.Error("[ExpireOldOrders]", map[string]string{
				"error": err.Error(),
			})
			return
		}
		for _, target := range targets {
			registry.RemoveIfNoActiveOrders(target.Address, target.Chain)
		}
	})

	c.Start()
	defer c.Stop()
	defer scanner.StopAll()

	httpServer := http.NewHttpServer(appConfig, logger, orderSvc, engine, sweepQueue, s, db, metricsRegistry)

	httpServer.Run(":" + appConfig.ApiServer.Port)
}
