package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hivedash/internal/client"
	"hivedash/internal/config"
	"hivedash/internal/feed"
	"hivedash/internal/logging"
	"hivedash/internal/tui"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "hivedash",
		Short:         "Live dashboard for a tmux agent swarm",
		Long:          "hivedash tails the swarm message log, derives worker status, and serves a live feed that the bundled TUI dashboard renders.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newDashCmd(&configPath),
		newTailCmd(&configPath),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(*cobra.Command, []string) {
			fmt.Println("hivedash " + version)
		},
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	var listen, logPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the feed server",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.ListenAddr = listen
			}
			if logPath != "" {
				cfg.LogPath = logPath
			}

			log := logging.New(os.Stderr)
			roles, err := feed.LoadRoles(cfg.RolesPath)
			if err != nil {
				return err
			}

			norm := feed.NewNormalizer(feed.StatusThresholds{
				ActiveWithin:   cfg.ActiveWithin,
				InactiveBeyond: cfg.InactiveBeyond,
			}, cfg.RecentMessageCap, roles, log)
			hub := feed.NewHub(cfg.DebounceWindow)
			defer hub.Close()
			tailer := feed.NewTailer(cfg.LogPath, cfg.PollInterval, log)
			runner := feed.NewRunner(tailer, norm, hub, cfg.PollInterval)
			srv := feed.NewServer(hub, log, cfg.HeartbeatInterval, cfg.HeartbeatTimeout)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("feed server starting", map[string]any{
				"listen": cfg.ListenAddr, "log": cfg.LogPath,
			})
			errc := make(chan error, 2)
			go func() { errc <- runner.Run(ctx) }()
			go func() { errc <- srv.ListenAndServe(ctx, cfg.ListenAddr) }()
			if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&logPath, "log", "", "message log path (overrides config)")
	return cmd
}

func newDashCmd(configPath *string) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Run the TUI dashboard",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if url != "" {
				cfg.ServerURL = url
			}
			roles, err := feed.LoadRoles(cfg.RolesPath)
			if err != nil {
				return err
			}

			store := client.NewStore(cfg.FlowTTL, cfg.FlowCap)
			transport := client.New(client.Options{
				URL:                  cfg.ServerURL,
				HeartbeatTimeout:     cfg.HeartbeatTimeout,
				ReconnectBaseDelay:   cfg.ReconnectBaseDelay,
				MaxReconnectAttempts: cfg.MaxReconnectAttempts,
			})
			return tui.Run(store, transport, roles)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "feed server URL (overrides config)")
	return cmd
}

func newTailCmd(configPath *string) *cobra.Command {
	var logPath string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print normalized messages as JSON lines",
		Long:  "Headless mode: follow the message log and print each normalized message to stdout, one JSON object per line. Useful for piping into jq or scripts.",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if logPath != "" {
				cfg.LogPath = logPath
			}

			log := logging.New(os.Stderr)
			norm := feed.NewNormalizer(feed.StatusThresholds{
				ActiveWithin:   cfg.ActiveWithin,
				InactiveBeyond: cfg.InactiveBeyond,
			}, cfg.RecentMessageCap, nil, log)
			tailer := feed.NewTailer(cfg.LogPath, cfg.PollInterval, log)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			enc := json.NewEncoder(os.Stdout)
			err = tailer.Run(ctx, func(rec feed.RawRecord) {
				if msg, ok := norm.Ingest(rec, time.Now()); ok {
					_ = enc.Encode(msg)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&logPath, "log", "", "message log path (overrides config)")
	return cmd
}
