package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"nft-storefront/internal/api"
	"nft-storefront/internal/catalog"
	"nft-storefront/internal/checkout"
	"nft-storefront/internal/config"
	"nft-storefront/internal/cosmwasm"
	"nft-storefront/internal/crossmint"
	"nft-storefront/internal/domain"
	"nft-storefront/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront HTTP API",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().String("storage", "memory", "order storage backend (memory, postgres)")
	serveCmd.Flags().String("sessions", "memory", "session storage backend (memory, redis)")

	cobra.CheckErr(viper.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr")))
	cobra.CheckErr(viper.BindPFlag("storage.backend", serveCmd.Flags().Lookup("storage")))
	cobra.CheckErr(viper.BindPFlag("session.backend", serveCmd.Flags().Lookup("sessions")))
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	collections, err := config.LoadCollections(cfg.Collections.Path)
	if err != nil {
		return err
	}
	logger.Info("collections loaded", zap.Int("count", len(collections)))

	st, cleanup, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	chain := cosmwasm.NewHTTPClient(cfg.Chain.RestURL,
		cosmwasm.WithTimeout(cfg.Chain.Timeout),
		cosmwasm.WithMaxRetries(cfg.Chain.MaxRetries),
	)
	aggregator := catalog.NewAggregator(catalog.Options{
		Collections: collections,
		Client:      chain,
		Concurrency: cfg.Aggregator.Concurrency,
		Logger:      logger.Named("catalog"),
	})
	boards := catalog.NewRegistry(aggregator, logger.Named("board"))

	sessions := session.NewStore(st.sessions, cfg.Chain.AddressPrefix, cfg.Session.TTL, logger.Named("session"))

	checkoutSvc := newCheckoutService(cfg, collections, st, logger)

	server := api.NewServer(api.Options{
		Sessions:     sessions,
		Boards:       boards,
		Checkout:     checkoutSvc,
		DisplayPrice: cfg.Checkout.DisplayPrice(),
		Logger:       logger.Named("api"),
		BaseContext:  ctx,
	})

	logger.Info("storefront starting",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("chain_id", cfg.Chain.ChainID),
		zap.String("price", cfg.Checkout.DisplayPrice()),
	)
	go server.RunSweeper(ctx, cfg.Session.SweepInterval)
	if err := server.Run(ctx, cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("storefront stopped")
	return nil
}

func newCrossmintClient(cfg *config.Config) *crossmint.Client {
	return crossmint.NewClient(cfg.Checkout.APIBase, cfg.Checkout.APIKey, cfg.Checkout.AppIdentifier,
		crossmint.WithTimeout(cfg.Checkout.Timeout),
	)
}

func newCheckoutService(cfg *config.Config, collections []domain.CollectionDescriptor, st *stores, logger *zap.Logger) *checkout.Service {
	if cfg.Checkout.APIKey == "" {
		logger.Warn("checkout api key is empty; order creation will be rejected by the provider")
	}
	if cfg.Checkout.WebhookSecret == "" {
		logger.Warn("webhook secret is empty; signatures are not verified")
	}
	provider := checkout.NewCrossmintProvider(
		newCrossmintClient(cfg),
		cfg.Checkout.Currency,
		cfg.Checkout.PaymentMethod,
		cfg.Checkout.WebhookSecret,
	)
	return checkout.NewService(checkout.Options{
		Provider:    provider,
		Orders:      st.orders,
		Events:      st.events,
		Collections: collections,
		Price:       cfg.Checkout.Price(),
		Currency:    cfg.Checkout.Currency,
		Logger:      logger.Named("checkout"),
	})
}
