package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var orderStatusCmd = &cobra.Command{
	Use:   "order-status <provider-order-id>",
	Short: "Fetch an order's status from the checkout provider",
	Args:  cobra.ExactArgs(1),
	RunE:  orderStatus,
}

func orderStatus(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	order, err := newCrossmintClient(cfg).GetOrder(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get order %s: %w", args[0], err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "order\t%s\n", order.OrderID)
	fmt.Fprintf(w, "phase\t%s\n", order.Phase)
	fmt.Fprintf(w, "payment\t%s\n", order.PaymentStatus)
	if order.CheckoutURL != "" {
		fmt.Fprintf(w, "checkout\t%s\n", order.CheckoutURL)
	}
	return w.Flush()
}
