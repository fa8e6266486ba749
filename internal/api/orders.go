package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nft-storefront/internal/checkout"
	"nft-storefront/internal/crossmint"
	"nft-storefront/internal/session"
)

type checkoutRequest struct {
	CollectionID string `json:"collectionId" binding:"required"`
}

func (s *Server) handleCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	order, err := s.checkout.Checkout(c.Request.Context(), currentSession(c), req.CollectionID)
	switch {
	case errors.Is(err, session.ErrNotConnected):
		respondError(c, http.StatusUnauthorized, "not_connected", err)
	case errors.Is(err, checkout.ErrUnknownCollection):
		respondError(c, http.StatusNotFound, "unknown_collection", err)
	case errors.Is(err, checkout.ErrInvalidRequest):
		respondError(c, http.StatusBadRequest, "invalid_request", err)
	case err != nil:
		respondError(c, http.StatusBadGateway, "checkout_failed", err)
	default:
		c.JSON(http.StatusCreated, newOrderView(order))
	}
}

func (s *Server) handleListOrders(c *gin.Context) {
	orders, err := s.checkout.Orders(c.Request.Context(), currentSession(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "list_orders_failed", err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

func (s *Server) handleGetOrder(c *gin.Context) {
	ctx := c.Request.Context()

	order, err := s.checkout.Order(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "order_not_found", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "get_order_failed", err)
		return
	}

	events, err := s.checkout.Events(ctx, order)
	if err != nil {
		s.logger.Warn("load order events failed", zap.String("order_id", order.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"order":  newOrderView(order),
		"events": newEventViews(events),
	})
}

func (s *Server) handleProviderStatus(c *gin.Context) {
	ctx := c.Request.Context()

	order, err := s.checkout.Order(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "order_not_found", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "get_order_failed", err)
		return
	}

	status, err := s.checkout.ProviderStatus(ctx, order.ProviderOrderID)
	if err != nil {
		respondError(c, http.StatusBadGateway, "provider_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"providerOrderId": status.ProviderOrderID,
		"phase":           status.Phase,
		"paymentStatus":   status.PaymentStatus,
	})
}

// handleWebhook applies a checkout provider notification. Unknown orders
// answer 404 so the provider redelivers once the order is stored.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "body_too_large", err)
			return
		}
		respondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	order, err := s.checkout.HandleEvent(c.Request.Context(), c.GetHeader(crossmint.SignatureHeader), body)
	switch {
	case errors.Is(err, crossmint.ErrInvalidSignature):
		respondError(c, http.StatusUnauthorized, "invalid_signature", err)
	case errors.Is(err, crossmint.ErrMalformedEvent):
		respondError(c, http.StatusBadRequest, "malformed_event", err)
	case errors.Is(err, checkout.ErrOrderNotFound):
		s.logger.Warn("webhook for unknown order", zap.Error(err))
		respondError(c, http.StatusNotFound, "order_not_found", err)
	case err != nil:
		respondError(c, http.StatusInternalServerError, "webhook_failed", err)
	default:
		c.JSON(http.StatusOK, gin.H{"received": true, "status": order.Status.String()})
	}
}
