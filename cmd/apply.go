package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/timvw/emotitle/internal/command"
	"github.com/timvw/emotitle/internal/daemon"
)

var (
	flagTarget   string
	flagMode     string
	flagPaneID   int64
	flagTabIndex int
)

var applyCmd = &cobra.Command{
	Use:   "apply <emojis>",
	Short: "Decorate a pane or tab title",
	Long: `Append emoji to the title of a pane or tab through the running daemon.

With --target=pane the focused pane is decorated unless --pane-id is given.
With --target=tab the active tab is decorated unless --tab-index or
--pane-id (the tab holding that pane) is given.

Temporary decorations disappear when the item gains focus. Permanent
decorations keep their pinned (📌) segments.`,
	Example: `  emotitle apply 🚀
  emotitle apply --target tab --mode permanent 📌✅
  emotitle apply --pane-id 3 "🔔 | 📚"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyArgs, err := buildApplyArgs(cmd, args[0])
		if err != nil {
			return err
		}
		// Validate locally so usage errors do not need a daemon.
		if _, err := command.Parse(applyArgs); err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		resp, err := daemon.Send(cmd.Context(), cfg.SocketPath, applyArgs)
		if err != nil {
			return err
		}
		if !resp.OK {
			return errors.New(resp.Output)
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Output)
		return nil
	},
}

func init() {
	applyCmd.Flags().StringVar(&flagTarget, "target", "pane", "what to decorate: pane, tab")
	applyCmd.Flags().StringVar(&flagMode, "mode", "temp", "decoration lifetime: temp, permanent")
	applyCmd.Flags().Int64Var(&flagPaneID, "pane-id", 0, "terminal pane id (default: focused pane)")
	applyCmd.Flags().IntVar(&flagTabIndex, "tab-index", 0, "tab position (default: active tab)")
	rootCmd.AddCommand(applyCmd)
}

// buildApplyArgs turns flags into request arguments. Unset optional flags
// are left out so the daemon falls back to focus.
func buildApplyArgs(cmd *cobra.Command, emojis string) (map[string]string, error) {
	args := map[string]string{
		command.KeyTarget: flagTarget,
		command.KeyEmojis: emojis,
		command.KeyMode:   flagMode,
	}
	if cmd.Flags().Changed("pane-id") {
		if flagPaneID < 0 {
			return nil, fmt.Errorf("%s must be an unsigned integer", command.KeyPaneID)
		}
		args[command.KeyPaneID] = strconv.FormatInt(flagPaneID, 10)
	}
	if cmd.Flags().Changed("tab-index") {
		if flagTabIndex < 0 {
			return nil, fmt.Errorf("%s must be an unsigned integer", command.KeyTabIndex)
		}
		args[command.KeyTabIndex] = strconv.Itoa(flagTabIndex)
	}
	return args, nil
}
