package types

import "time"

// EventType discriminates the closed set of run events.
type EventType string

const (
	EventBuyerMessage   EventType = "buyer_message"
	EventSellerResponse EventType = "seller_response"
	EventHeartbeat      EventType = "heartbeat"
	EventError          EventType = "error"
	EventComplete       EventType = "negotiation_complete"
)

// timestampLayout is ISO-8601 with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders a time in the stable event timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Event is one entry in a run's event stream.
type Event interface {
	Kind() EventType
	Run() string
}

// EventBase carries the fields common to every event.
type EventBase struct {
	RunID     string    `json:"run_id"`
	Type      EventType `json:"type"`
	Timestamp string    `json:"timestamp"`
}

// Kind returns the event discriminator.
func (b EventBase) Kind() EventType { return b.Type }

// Run returns the owning run ID.
func (b EventBase) Run() string { return b.RunID }

// NewEventBase builds the common header for an event.
func NewEventBase(runID string, typ EventType, at time.Time) EventBase {
	return EventBase{
		RunID:     runID,
		Type:      typ,
		Timestamp: FormatTimestamp(at),
	}
}

// OfferPayload is the wire form of an offer attached to an event.
type OfferPayload struct {
	OfferID  string  `json:"offer_id"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	ItemID   string  `json:"item_id"`
}

// NewOfferPayload converts an offer to its wire form.
func NewOfferPayload(o *Offer) *OfferPayload {
	if o == nil {
		return nil
	}

	return &OfferPayload{
		OfferID:  o.OfferID,
		Price:    o.Price,
		Quantity: o.Quantity,
		ItemID:   o.ItemID,
	}
}

// BuyerMessageEvent is emitted after the buyer addresses a seller.
type BuyerMessageEvent struct {
	EventBase
	Round       int    `json:"round"`
	SellerID    string `json:"seller_id"`
	SellerIndex int    `json:"seller_index"`
	MessageID   string `json:"message_id"`
	Content     string `json:"content"`
}

// SellerResponseEvent is emitted after a seller replies, with its offer if any.
type SellerResponseEvent struct {
	EventBase
	Round          int           `json:"round"`
	SellerID       string        `json:"seller_id"`
	ExchangeNumber int           `json:"exchange_number"`
	MessageID      string        `json:"message_id"`
	Content        string        `json:"content"`
	Offer          *OfferPayload `json:"offer,omitempty"`
	Violations     []string      `json:"violations,omitempty"`
}

// HeartbeatEvent is emitted after each exchange with progress counters.
type HeartbeatEvent struct {
	EventBase
	Round              int            `json:"round"`
	CurrentSeller      string         `json:"current_seller"`
	SellerIndex        int            `json:"seller_index"`
	ExchangesCompleted map[string]int `json:"exchanges_completed"`
	OffersCount        int            `json:"offers_count"`
	MessagesCount      int            `json:"messages_count"`
}

// ErrorAgent identifies where a run error originated.
type ErrorAgent string

const (
	ErrorAgentBuyer  ErrorAgent = "buyer"
	ErrorAgentSeller ErrorAgent = "seller"
	ErrorAgentGraph  ErrorAgent = "graph"
)

// ErrorEvent reports a recoverable or fatal run failure.
type ErrorEvent struct {
	EventBase
	Round       int        `json:"round"`
	Agent       ErrorAgent `json:"agent"`
	SellerID    string     `json:"seller_id,omitempty"`
	Error       string     `json:"error"`
	Recoverable bool       `json:"recoverable"`
}

// CompleteEvent is the terminal event for a decided or exhausted run.
type CompleteEvent struct {
	EventBase
	TotalRounds        int            `json:"total_rounds"`
	ExchangesCompleted map[string]int `json:"exchanges_completed"`
	WinnerID           string         `json:"winner_id,omitempty"`
	WinningOffer       *OfferPayload  `json:"winning_offer,omitempty"`
	Reason             string         `json:"reason"`
}
