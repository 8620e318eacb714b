// Package cli holds the ingressflow command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drblury/ingressflow/internal/runtime/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ingressflow",
	Short: "Dapr pub/sub ingress dispatcher",
	Long: `ingressflow receives messages pushed by a Dapr sidecar, hydrates them
into typed events and dispatches them to in-process listeners.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./ingressflow.yaml or /etc/ingressflow/ingressflow.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}
