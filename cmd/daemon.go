package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/timvw/emotitle/internal/config"
	"github.com/timvw/emotitle/internal/daemon"
	telem "github.com/timvw/emotitle/internal/otel"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the decoration daemon",
	Long: `Run the long-lived process that owns decoration state.

The daemon polls the multiplexer topology, removes temporary decorations
when their pane or tab gains focus, and answers apply and info requests on
a unix socket. Only one daemon may serve a socket at a time.

Configuration is loaded from .emotitle.yaml or environment variables. When
a config file is in use it is watched and a changed poll_interval applies
without a restart.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd)
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command) error {
	ctx := cmd.Context()
	log := pslog.Ctx(ctx)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ConfigFile != "" {
		log.Info("config loaded", "path", cfg.ConfigFile)
	}

	m, err := getMultiplexer(cfg)
	if err != nil {
		return err
	}

	telem.Version = Version
	tel, err := telem.Init(ctx, telem.Options{
		Endpoint:    cfg.OTELEndpoint,
		Headers:     cfg.OTELHeaders,
		Multiplexer: m.Name(),
	})
	if err != nil {
		log.Warn("otel init failed", "err", err)
	}
	var metrics *telem.Metrics
	if tel != nil {
		defer func() {
			if err := tel.Shutdown(context.Background()); err != nil {
				log.Warn("otel shutdown failed", "err", err)
			}
		}()
		metrics = tel.Metrics
	}

	d, err := daemon.New(daemon.Options{
		Mux:          m,
		SocketPath:   cfg.SocketPath,
		PollInterval: cfg.PollDuration,
		EventHistory: cfg.EventHistory,
		Metrics:      metrics,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}

	if cfg.ConfigFile != "" {
		go func() {
			err := config.Watch(ctx, cfg.ConfigFile, func(next *config.Config) {
				d.SetPollInterval(next.PollDuration)
			})
			if err != nil {
				log.Warn("config watch stopped", "err", err)
			}
		}()
	}

	return d.Run(ctx)
}
