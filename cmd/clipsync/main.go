// Command clipsync runs the offline synchronization daemon: it owns the
// local record store and keeps it converged with the remote video service.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/twardell/clipsync/internal/auth"
	"github.com/twardell/clipsync/internal/config"
	"github.com/twardell/clipsync/internal/logging"
	"github.com/twardell/clipsync/internal/probe"
	"github.com/twardell/clipsync/internal/remote"
	"github.com/twardell/clipsync/internal/store"
	syncpkg "github.com/twardell/clipsync/internal/sync"
	"github.com/twardell/clipsync/internal/sync/scheduler"
)

func main() {
	configPath := flag.String("config", "clipsync.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	log := logging.L()
	log.Info("starting clipsync",
		zap.String("base_url", cfg.Remote.BaseURL),
		zap.String("data_dir", cfg.Store.DataDir))

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		log.Fatal("failed to open local store", zap.Error(err))
	}
	defer st.Close()

	session := auth.NewSession()
	if cfg.Remote.AuthToken != "" {
		if err := session.SetToken(cfg.Remote.AuthToken); err != nil {
			log.Fatal("failed to install auth token", zap.Error(err))
		}
	}

	client := remote.NewClient(remote.Config{
		BaseURL:          cfg.Remote.BaseURL,
		Timeout:          cfg.Remote.RequestTimeoutDuration(),
		UploadLimitBytes: cfg.Remote.UploadLimitBytes,
	}, session)

	prober := probe.New(client, cfg.Remote.ProbeTimeoutDuration())

	engine := syncpkg.NewEngine(st, client, prober, session, syncpkg.Config{
		AutoSyncOnCreate: true,
	})
	defer engine.Close()

	var sched *scheduler.Scheduler
	if cfg.Sync.AutoSync {
		sched = scheduler.New(engine, cfg.Sync.IntervalDuration())
		if err := sched.Start(); err != nil {
			log.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down clipsync")
}
