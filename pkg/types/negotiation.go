package types

import (
	"fmt"
	"strings"
	"time"
)

// SellerPriority is the seller's negotiation priority.
type SellerPriority string

const (
	PriorityCustomerRetention SellerPriority = "customer_retention"
	PriorityMaximizeProfit    SellerPriority = "maximize_profit"
)

// SpeakingStyle controls the tone a seller negotiates with.
type SpeakingStyle string

const (
	StyleRude      SpeakingStyle = "rude"
	StyleVerySweet SpeakingStyle = "very_sweet"
	StyleNeutral   SpeakingStyle = "neutral"
)

// BuyerConstraints holds the buyer's immutable requirements for a run.
type BuyerConstraints struct {
	ItemID          string
	ItemName        string
	QuantityNeeded  int
	MinPricePerUnit float64
	MaxPricePerUnit float64
	BudgetPerItem   *float64 // Optional total budget cap (price * quantity)
}

// Validate checks that buyer constraints are internally consistent.
func (b *BuyerConstraints) Validate() error {
	if b.ItemName == "" {
		return fmt.Errorf("item name cannot be empty")
	}

	if b.QuantityNeeded <= 0 {
		return fmt.Errorf("quantity needed must be positive, got %d", b.QuantityNeeded)
	}

	if b.MinPricePerUnit < 0 {
		return fmt.Errorf("min price must be non-negative, got %f", b.MinPricePerUnit)
	}

	if b.MaxPricePerUnit <= b.MinPricePerUnit {
		return fmt.Errorf("max price %f must exceed min price %f", b.MaxPricePerUnit, b.MinPricePerUnit)
	}

	if b.BudgetPerItem != nil && *b.BudgetPerItem < 0 {
		return fmt.Errorf("budget must be non-negative, got %f", *b.BudgetPerItem)
	}

	return nil
}

// InventoryItem is one seller's private stock entry for a run.
type InventoryItem struct {
	ItemID            string
	ItemName          string
	CostPrice         float64
	SellingPrice      float64
	LeastPrice        float64 // Floor the seller will accept; CostPrice < LeastPrice < SellingPrice
	QuantityAvailable int
}

// Validate checks inventory price ordering and quantities.
func (i *InventoryItem) Validate() error {
	if i.ItemName == "" {
		return fmt.Errorf("item name cannot be empty")
	}

	if i.CostPrice < 0 {
		return fmt.Errorf("cost price must be non-negative, got %f", i.CostPrice)
	}

	if i.SellingPrice <= i.CostPrice {
		return fmt.Errorf("selling price %f must exceed cost price %f", i.SellingPrice, i.CostPrice)
	}

	if i.LeastPrice <= i.CostPrice || i.LeastPrice >= i.SellingPrice {
		return fmt.Errorf("least price %f must be between cost %f and selling %f",
			i.LeastPrice, i.CostPrice, i.SellingPrice)
	}

	if i.QuantityAvailable < 0 {
		return fmt.Errorf("quantity available must be non-negative, got %d", i.QuantityAvailable)
	}

	return nil
}

// SellerProfile is a seller's immutable public identity for a run.
type SellerProfile struct {
	SellerID    string
	DisplayName string
	Priority    SellerPriority
	Style       SpeakingStyle
}

// SenderType identifies which side of the table produced a message.
type SenderType string

const (
	SenderBuyer  SenderType = "buyer"
	SenderSeller SenderType = "seller"
)

// VisibilityAll is the scope token for messages every participant can read.
const VisibilityAll = "all"

// SellerScope returns the visibility token that addresses a single seller.
func SellerScope(sellerID string) string {
	return "seller:" + sellerID
}

// Message is one sanitized conversation entry, created by the orchestrator.
type Message struct {
	MessageID        string
	Round            int
	TurnIndex        int // Monotone within the run; equals prior history length
	SenderType       SenderType
	SenderID         string
	Content          string
	MentionedSellers []string
	Visibility       []string
	Timestamp        time.Time
}

// VisibleTo reports whether a seller may consume this message.
// A seller sees messages scoped to "all" or to itself, plus its own outputs.
func (m *Message) VisibleTo(sellerID string) bool {
	if m.SenderType == SenderSeller && m.SenderID == sellerID {
		return true
	}

	scope := SellerScope(sellerID)
	for _, v := range m.Visibility {
		if v == VisibilityAll || v == scope {
			return true
		}
	}

	return false
}

// OfferStatus is the lifecycle state of an offer.
type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

// Offer is a priced proposal attached to a seller message.
// Offers are append-only; the only mutation is the single flip to accepted
// at run termination.
type Offer struct {
	OfferID        string
	SellerID       string
	ItemID         string
	Price          float64
	Quantity       int
	Status         OfferStatus
	CreatedAtRound int
}

// Total returns the full price of the offer.
func (o *Offer) Total() float64 {
	return o.Price * float64(o.Quantity)
}

// RunStatus is the lifecycle state of a negotiation run.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// NegotiationOutcome is the terminal result of a run.
type NegotiationOutcome struct {
	WinnerID     string // Empty iff no deal
	WinningOffer *Offer // Present iff WinnerID is set
	TotalRounds  int
	Reason       string
	DecidedAt    time.Time
}

// String returns a one-line human-readable summary.
func (o *NegotiationOutcome) String() string {
	if o.WinnerID == "" {
		return fmt.Sprintf("no deal after %d round(s): %s", o.TotalRounds, o.Reason)
	}

	return fmt.Sprintf("winner=%s price=%.2f qty=%d rounds=%d",
		o.WinnerID, o.WinningOffer.Price, o.WinningOffer.Quantity, o.TotalRounds)
}

// NormalizeItemName lowercases and trims an item name for matching.
func NormalizeItemName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
