package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/opencompany/internal/bus"
	"github.com/nextlevelbuilder/opencompany/internal/company"
	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/internal/gateway"
	"github.com/nextlevelbuilder/opencompany/internal/gateway/methods"
	"github.com/nextlevelbuilder/opencompany/internal/store/sqlite"
	"github.com/nextlevelbuilder/opencompany/internal/tracing"
	"github.com/nextlevelbuilder/opencompany/internal/trigger"
	"github.com/nextlevelbuilder/opencompany/internal/watchdog"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the coordination core (stores, trigger engine, watchdog, gateway)",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	// Load config
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	traceShutdown, err := tracing.Setup(context.Background(), cfg.Telemetry)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer traceShutdown(context.Background())

	if err := os.MkdirAll(config.CompanyDir(), 0o755); err != nil {
		slog.Error("failed to create state dir", "error", err)
		os.Exit(1)
	}

	// Core components: bus first, stores emit onto it.
	msgBus := bus.New()

	stores, err := sqlite.OpenStores(config.ChannelsDBPath(), config.TasksDBPath(), msgBus)
	if err != nil {
		slog.Error("failed to open stores", "error", err)
		os.Exit(1)
	}

	// The investor line exists from the very first startup.
	if err := company.EnsureInvestorChannel(context.Background(), stores.Channels); err != nil {
		slog.Error("failed to ensure investor channel", "error", err)
		stores.Close()
		os.Exit(1)
	}

	// Gateway server and RPC methods.
	server := gateway.NewServer(cfg, msgBus, stores.Channels, stores.Tasks)
	methods.NewChannelMethods(stores.Channels).Register(server.Router())
	methods.NewTaskMethods(stores.Tasks).Register(server.Router())
	methods.NewCompanyMethods(cfg, stores.Channels).Register(server.Router())

	// Trigger engine wakes agents through the external LLM gateway.
	llm := trigger.NewClient(cfg.LLMGateway.URL, cfg.LLMGateway.Token)
	defer llm.Close()

	engine := trigger.New(cfg, stores.Channels, msgBus, llm)
	engine.SetBroadcaster(server)

	dog := watchdog.New(cfg, stores.Tasks, msgBus)
	docs := company.NewDocsWatcher(server)

	// Shutdown order: daemons stop before the server drains, the server
	// drains before the stores close.
	daemonCtx, stopDaemons := context.WithCancel(context.Background())
	serverCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()
	defer stopDaemons()

	var daemons sync.WaitGroup
	runDaemon := func(name string, run func(context.Context) error) {
		daemons.Add(1)
		go func() {
			defer daemons.Done()
			if err := run(daemonCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error(name+" stopped", "error", err)
			}
		}()
	}
	runDaemon("trigger engine", engine.Run)
	runDaemon("watchdog", dog.Run)
	runDaemon("docs watcher", docs.Run)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("graceful shutdown initiated", "signal", sig)

		// Tell connected dashboards before anything stops.
		server.Broadcast(protocol.EventShutdown, nil)

		stopDaemons()
		daemons.Wait()
		stopServer()
	}()

	// Tailscale listener: build the mux first so the same routes are
	// served on both the main listener and the tailnet.
	mux := server.BuildMux()
	tsCleanup, err := gateway.StartTailscale(serverCtx, cfg, mux)
	if err != nil {
		slog.Error("tailscale listener failed", "error", err)
		stores.Close()
		os.Exit(1)
	}
	if tsCleanup != nil {
		defer tsCleanup()
	}

	slog.Info("opencompany serving",
		"version", Version,
		"protocol", protocol.ProtocolVersion,
		"agents", cfg.AgentIDs(),
		"stateDir", config.StateDir(),
	)

	err = server.Start(serverCtx)

	if closeErr := stores.Close(); closeErr != nil {
		slog.Warn("store close failed", "error", closeErr)
	}
	if err != nil {
		slog.Error("gateway error", "error", err)
		os.Exit(1)
	}
}
