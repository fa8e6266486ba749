package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nft-storefront/internal/catalog"
	"nft-storefront/internal/config"
	"nft-storefront/internal/cosmwasm"
	"nft-storefront/internal/domain"
	"nft-storefront/internal/session"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Aggregate the configured collections once and print them as JSON",
	Args:  cobra.NoArgs,
	RunE:  listCollections,
}

func init() {
	collectionsCmd.Flags().String("address", "", "wallet address to aggregate for")
	collectionsCmd.Flags().String("rest-url", "", "chain REST endpoint (overrides chain.rest_url)")
	cobra.CheckErr(collectionsCmd.MarkFlagRequired("address"))
	cobra.CheckErr(viper.BindPFlag("chain.rest_url", collectionsCmd.Flags().Lookup("rest-url")))
}

func listCollections(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	address, _ := cmd.Flags().GetString("address")
	address = strings.TrimSpace(address)
	if err := session.ValidateAddress(address, cfg.Chain.AddressPrefix); err != nil {
		return err
	}

	collections, err := config.LoadCollections(cfg.Collections.Path)
	if err != nil {
		return err
	}

	aggregator := catalog.NewAggregator(catalog.Options{
		Collections: collections,
		Client: cosmwasm.NewHTTPClient(cfg.Chain.RestURL,
			cosmwasm.WithTimeout(cfg.Chain.Timeout),
			cosmwasm.WithMaxRetries(cfg.Chain.MaxRetries),
		),
		Concurrency: cfg.Aggregator.Concurrency,
		Logger:      logger,
	})

	sess := &domain.Session{AccountAddress: address, ConnectedAt: time.Now()}
	result, err := aggregator.Aggregate(cmd.Context(), sess)
	if err != nil {
		return fmt.Errorf("%s: %w", catalog.RefreshMessage, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
