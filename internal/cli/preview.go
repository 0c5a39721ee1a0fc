package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/Zachkp/zach-portfolio/internal/logging"
	"github.com/Zachkp/zach-portfolio/internal/tui"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview the page in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, c, err := loadEnvironment()
		if err != nil {
			return err
		}
		// The preview owns the terminal.
		if err := logging.InitWriter(io.Discard, cfg.Logging.Level, "json"); err != nil {
			return err
		}
		return tui.Run(cmd.Context(), c, sessionOptions(cfg, c))
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
