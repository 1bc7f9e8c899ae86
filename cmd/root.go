package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/timvw/emotitle/internal/config"
	"github.com/timvw/emotitle/internal/mux"
)

var (
	// Global flags.
	flagMux     string
	flagSession string
	flagSocket  string
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "emotitle",
	Short: "Decorate terminal pane and tab titles with emoji",
	Long: `emotitle appends emoji segments to terminal multiplexer pane and tab titles
and removes them again when the pane or tab gains focus.

A long-running daemon watches the multiplexer and owns the decoration state.
The apply command sends it a request; segments starting with 📌 are pinned
and survive focus.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).Error("emotitle command failed", "err", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMux, "mux", envOrDefault("EMOTITLE_MUX", ""), "terminal multiplexer: tmux, zellij (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&flagSession, "session", envOrDefault("EMOTITLE_SESSION", ""), "tmux session to manage (default: the current client's)")
	rootCmd.PersistentFlags().StringVar(&flagSocket, "socket", "", "daemon socket path (default: from config)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .emotitle.yaml, then ~/.config/emotitle/config.yaml)")
}

// loadConfig resolves defaults, config file and environment, then applies
// command line flags on top.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	applyFlags(cfg)
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	if flagMux != "" {
		cfg.Mux = flagMux
	}
	if flagSession != "" {
		cfg.Session = flagSession
	}
	if flagSocket != "" {
		cfg.SocketPath = flagSocket
	}
}

// getMultiplexer returns the configured or auto-detected multiplexer.
func getMultiplexer(cfg *config.Config) (mux.Multiplexer, error) {
	m, err := mux.FromName(cfg.Mux, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("no supported terminal multiplexer found: %w", err)
	}
	return m, nil
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
