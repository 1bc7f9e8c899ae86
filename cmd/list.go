package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var flagListJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tabs and panes as the multiplexer reports them",
	Long: `Take one topology snapshot straight from the multiplexer, without a daemon.

Each row is a pane: its tab position, tab name, pane id, focus and title.
Pane ids are what --pane-id accepts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := getMultiplexer(cfg)
		if err != nil {
			return err
		}

		snap, err := m.Snapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to take snapshot: %w", err)
		}

		if flagListJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TAB\tNAME\tPANE\tFOCUS\tTITLE")
		for _, tab := range snap.Tabs {
			active := ""
			if tab.Active {
				active = "*"
			}
			for _, p := range snap.Panes[tab.Position] {
				focus := ""
				if p.Focused {
					focus = "*"
				}
				fmt.Fprintf(w, "%d%s\t%s\t%d\t%s\t%s\n", tab.Position, active, tab.Name, p.ID.ID, focus, p.Title)
			}
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVar(&flagListJSON, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(listCmd)
}
