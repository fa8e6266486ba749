package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"nft-storefront/internal/catalog"
	"nft-storefront/internal/domain"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	c.JSON(status, errorEnvelope{Error: apiError{Message: msg, Code: code}})
}

type sessionView struct {
	ID           string `json:"id"`
	Address      string `json:"address"`
	ShortAddress string `json:"shortAddress"`
	ConnectedAt  string `json:"connectedAt"`
}

func newSessionView(s *domain.Session) sessionView {
	return sessionView{
		ID:           s.ID,
		Address:      s.AccountAddress,
		ShortAddress: domain.ShortAddress(s.AccountAddress),
		ConnectedAt:  s.ConnectedAt.UTC().Format(time.RFC3339),
	}
}

type emptyState struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type collectionsView struct {
	catalog.Snapshot
	Connected    bool        `json:"connected"`
	Address      string      `json:"address,omitempty"`
	ShortAddress string      `json:"shortAddress,omitempty"`
	Summary      string      `json:"summary"`
	Price        string      `json:"price"`
	Empty        *emptyState `json:"emptyState,omitempty"`
}

func (s *Server) newCollectionsView(sess *domain.Session, snap catalog.Snapshot) collectionsView {
	v := collectionsView{
		Snapshot:  snap,
		Connected: sess.Connected(),
		Summary:   Summary(sess, len(snap.Collections)),
		Price:     s.displayPrice,
	}
	if v.Connected {
		v.Address = sess.AccountAddress
		v.ShortAddress = domain.ShortAddress(sess.AccountAddress)
	}
	if len(snap.Collections) == 0 && !snap.Loading {
		v.Empty = emptyStateFor(sess)
	}
	return v
}

// Summary is the list subtitle.
func Summary(sess *domain.Session, count int) string {
	if !sess.Connected() {
		return "Connect wallet to view collections"
	}
	if count == 1 {
		return "1 collection available"
	}
	return strconv.Itoa(count) + " collections available"
}

func emptyStateFor(sess *domain.Session) *emptyState {
	if !sess.Connected() {
		return &emptyState{
			Title: "Welcome to NFT Marketplace",
			Text:  "Connect your wallet to start exploring and purchasing NFTs",
		}
	}
	return &emptyState{
		Title: "No Collections Available",
		Text:  "Check back later for new collections",
	}
}

type orderView struct {
	ID                string          `json:"id"`
	ProviderOrderID   string          `json:"providerOrderId"`
	CollectionID      string          `json:"collectionId"`
	CollectionLocator string          `json:"collectionLocator"`
	RecipientAddress  string          `json:"recipientAddress"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	CheckoutURL       string          `json:"checkoutUrl,omitempty"`
	FailureReason     *string         `json:"failureReason,omitempty"`
	TokenID           *string         `json:"tokenId,omitempty"`
	CreatedAt         int64           `json:"createdAt"`
	UpdatedAt         int64           `json:"updatedAt"`
}

func newOrderView(o *domain.Order) orderView {
	return orderView{
		ID:                o.ID,
		ProviderOrderID:   o.ProviderOrderID,
		CollectionID:      o.CollectionID,
		CollectionLocator: o.CollectionLocator,
		RecipientAddress:  o.RecipientAddress,
		Price:             o.Price,
		Currency:          o.Currency,
		Status:            o.Status.String(),
		CheckoutURL:       o.CheckoutURL,
		FailureReason:     o.FailureReason,
		TokenID:           o.TokenID,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

type eventView struct {
	EventID    string `json:"eventId"`
	Kind       string `json:"kind"`
	Type       string `json:"type"`
	ReceivedAt int64  `json:"receivedAt"`
}

func newEventViews(events []*domain.CheckoutEvent) []eventView {
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{
			EventID:    e.EventID,
			Kind:       string(e.Kind),
			Type:       e.RawType,
			ReceivedAt: e.ReceivedAt.UnixMilli(),
		})
	}
	return out
}
