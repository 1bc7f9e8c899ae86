package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/timvw/emotitle/internal/command"
	"github.com/timvw/emotitle/internal/daemon"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the daemon state as JSON",
	Long: `Print the daemon's diagnostic state: tabs and their panes, focus, the
internal tab index table and its event history, decoration entries and
pending restores.

Output is indented when stdout is a terminal and compact otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		resp, err := daemon.Send(cmd.Context(), cfg.SocketPath, map[string]string{command.KeyInfo: "true"})
		if err != nil {
			return err
		}
		if !resp.OK {
			return errors.New(resp.Output)
		}

		out := []byte(resp.Output)
		if term.IsTerminal(int(os.Stdout.Fd())) {
			var buf bytes.Buffer
			if err := json.Indent(&buf, out, "", "  "); err == nil {
				out = buf.Bytes()
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
