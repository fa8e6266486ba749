// Command storefront serves the NFT storefront API and its operational subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"nft-storefront/internal/config"
	"nft-storefront/internal/logging"
)

const shortDescription = `
Storefront - NFT collection browser and checkout
`

const longDescription = `
Storefront lists the configured NFT collections enriched with on-chain data
for a connected wallet, and sells mints through a hosted card checkout.
`

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          "storefront",
		Short:        shortDescription,
		Long:         longDescription,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().String("log-level", "info", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, console)")
	rootCmd.PersistentFlags().String("collections", "", "collections JSON file (defaults to the bundled list)")
	cobra.CheckErr(rootCmd.MarkPersistentFlagFilename("collections", "json"))

	cobra.CheckErr(viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")))
	cobra.CheckErr(viper.BindPFlag("collections.path", rootCmd.PersistentFlags().Lookup("collections")))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(orderStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initConfig() {
	config.BindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		cobra.CheckErr(viper.ReadInConfig())
	}
}

// setup loads configuration and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
