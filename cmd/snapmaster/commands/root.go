package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/snapmaster/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "snapmaster",
	Short: "Smart screenshot tool with window detection",
	Long: `SnapMaster captures screenshots with awareness of the foreground
window: fullscreen grabs, per-window captures that survive occlusion,
and interactive region selection, with global hotkeys and an HTTP API
for automation.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(viper.GetString("log-level"), viper.GetBool("pretty"))
	},
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default ~/.config/snapmaster/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", true, "human-readable log output")
	rootCmd.PersistentFlags().Int("port", 8090, "API server port")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
}
