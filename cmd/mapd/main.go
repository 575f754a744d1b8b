package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mapchain/config"
	"mapchain/core/state"
	"mapchain/gateway/middleware"
	"mapchain/native/depin"
	"mapchain/native/token"
	"mapchain/observability/logging"
	"mapchain/rpc"
	"mapchain/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("mapd: %v", err)
	}
}

func run() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to mapd config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("MAPCHAIN_ENV"))
	logger := logging.Setup("mapd", env)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return err
	}
	defer db.Close()

	manager := state.NewManager(db)
	tokens := token.NewLedger(manager)
	engine, err := depin.NewEngine(manager, tokens, depin.DefaultParams())
	if err != nil {
		return err
	}

	authToken := strings.TrimSpace(os.Getenv("MAPCHAIN_RPC_TOKEN"))
	if authToken == "" {
		logger.Warn("MAPCHAIN_RPC_TOKEN not set, administrative methods disabled")
	}
	rpcServer := rpc.NewServer(engine, tokens, authToken)

	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		"rpc": {RatePerSecond: cfg.RPCRatePerSecond, Burst: cfg.RPCRateBurst},
	})

	router := chi.NewRouter()
	router.Method(http.MethodPost, "/", limiter.Middleware("rpc")(rpcServer))
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:         cfg.RPCAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("mapd listening", "address", cfg.RPCAddress, "network", cfg.NetworkName)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
