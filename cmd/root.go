package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// Version is set at build time via -ldflags "-X github.com/nextlevelbuilder/opencompany/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "opencompany",
	Short: "OpenCompany — multi-agent coordination core",
	Long: "OpenCompany runs the shared coordination layer for a company of AI agents:\n" +
		"persistent channels and tasks, an event bus, a trigger engine that wakes\n" +
		"agents on channel traffic, a stale-task watchdog, and a WebSocket/HTTP\n" +
		"gateway for operators and dashboards.",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <stateDir>/company.json5 or $OPENCOMPANY_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(companyCmd())
	rootCmd.AddCommand(channelsCmd())
	rootCmd.AddCommand(tasksCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("opencompany %s (protocol %d)\n", Version, protocol.ProtocolVersion)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
