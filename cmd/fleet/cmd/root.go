package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/onflow/evm-fleet/config"
)

var (
	flagConfigFile string
	v              *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:           "fleet",
	Short:         "Drive a fleet of wallets through token and game transactions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with status 1 on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfigFile, "config", "c", "",
		"yaml config file overriding the built-in defaults")

	rootCmd.AddCommand(runCmd)

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	var err error
	v, err = config.NewViper()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
