package types

// RunView is a read-only snapshot of run state handed to agents.
// Agents never mutate run state; the orchestrator builds a fresh view per turn.
type RunView struct {
	RunID         string
	Round         int
	MaxRounds     int
	BuyerName     string
	Constraints   BuyerConstraints
	ActiveSellers []SellerProfile
	TargetSeller  string // Seller addressed in the current exchange
	History       []Message
	Exchanges     map[string]int
}

// HistoryFor returns the conversation slice a given seller is allowed to see:
// messages scoped to it (or to everyone) plus its own prior outputs.
func (v *RunView) HistoryFor(sellerID string) []Message {
	filtered := make([]Message, 0, len(v.History))
	for _, m := range v.History {
		if m.VisibleTo(sellerID) {
			filtered = append(filtered, m)
		}
	}

	return filtered
}

// HistoryWindow returns the last n messages of the full history.
func (v *RunView) HistoryWindow(n int) []Message {
	if n <= 0 || n >= len(v.History) {
		return v.History
	}

	return v.History[len(v.History)-n:]
}

// SellerByID looks up an active seller profile.
func (v *RunView) SellerByID(sellerID string) (SellerProfile, bool) {
	for _, s := range v.ActiveSellers {
		if s.SellerID == sellerID {
			return s, true
		}
	}

	return SellerProfile{}, false
}
