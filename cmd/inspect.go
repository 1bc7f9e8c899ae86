package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/emotitle/internal/inspect"
)

var (
	flagTheme    string
	flagNoColor  bool
	flagInterval time.Duration
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Watch the daemon state in a terminal UI",
	Long: `Open a live view of the running daemon: tabs and panes, decoration
entries, pending restores and the tab index table.

Keys: r refresh, p pause, e expand events, arrows or pgup/pgdn scroll, q quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tui := &inspect.TUI{
			Fetch:           inspect.DaemonFetcher(cfg.SocketPath),
			RefreshInterval: flagInterval,
			Theme:           inspect.ThemeByName(flagTheme),
			NoColor:         flagNoColor || envOrDefault("NO_COLOR", "") != "",
		}
		return tui.Run(cmd.Context())
	},
}

func init() {
	inspectCmd.Flags().StringVar(&flagTheme, "theme", "dark", "color theme: dark, light")
	inspectCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colors")
	inspectCmd.Flags().DurationVar(&flagInterval, "interval", time.Second, "refresh interval (0 disables auto-refresh)")
	rootCmd.AddCommand(inspectCmd)
}
