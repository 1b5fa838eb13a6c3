// Package offer extracts structured offers from raw seller output and clamps
// them to the seller's inventory bounds.
package offer

import (
	"math"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/haggleworks/negotiator/pkg/types"
)

// Extracted is a parsed offer before the orchestrator assigns it an identity.
type Extracted struct {
	Price    float64
	Quantity int
	Clamped  bool // True when either field was pulled back into bounds
}

type offerEnvelope struct {
	Offer *offerBody `json:"offer"`
}

type offerBody struct {
	Price    json.Number `json:"price"`
	Quantity json.Number `json:"quantity"`
}

// Extract scans raw text for a JSON object carrying an "offer" key and
// returns the first candidate that parses, clamped to the inventory bounds.
// Returns (nil, false) when no valid offer can be recovered.
func Extract(raw string, inv *types.InventoryItem) (*Extracted, bool) {
	for _, region := range candidateRegions(raw) {
		parsed, ok := parseRegion(region)
		if !ok {
			continue
		}

		clamped, ok := clamp(parsed, inv)
		if !ok {
			continue
		}

		return clamped, true
	}

	return nil, false
}

// candidateRegions yields balanced JSON object substrings that mention an
// "offer" key, in text order.
func candidateRegions(raw string) []string {
	var regions []string

	for start := 0; start < len(raw); {
		open := strings.IndexByte(raw[start:], '{')
		if open < 0 {
			break
		}
		open += start

		end := matchBrace(raw, open)
		if end < 0 {
			start = open + 1
			continue
		}

		region := raw[open : end+1]
		if strings.Contains(region, `"offer"`) {
			regions = append(regions, region)
		}

		start = open + 1
	}

	return regions
}

// matchBrace returns the index of the brace closing the object opened at
// position open, honoring JSON string escapes. Returns -1 when unbalanced.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false

	for i := open; i < len(s); i++ {
		c := s[i]

		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

func parseRegion(region string) (*Extracted, bool) {
	var env offerEnvelope

	err := json.Unmarshal([]byte(region), &env)
	if err != nil || env.Offer == nil {
		return nil, false
	}

	price, err := env.Offer.Price.Float64()
	if err != nil {
		return nil, false
	}

	qty, err := env.Offer.Quantity.Int64()
	if err != nil {
		// Some models emit fractional quantities; accept the floor when whole-ish.
		f, ferr := env.Offer.Quantity.Float64()
		if ferr != nil {
			return nil, false
		}
		qty = int64(math.Floor(f))
	}

	return &Extracted{Price: price, Quantity: int(qty)}, true
}

// clamp pulls the extracted fields into the seller's bounds. Rejects outright
// when no in-bounds offer exists (zero stock) or the values are degenerate.
func clamp(e *Extracted, inv *types.InventoryItem) (*Extracted, bool) {
	if math.IsNaN(e.Price) || math.IsInf(e.Price, 0) || e.Price <= 0 {
		return nil, false
	}

	if e.Quantity <= 0 {
		return nil, false
	}

	if inv.QuantityAvailable < 1 {
		return nil, false
	}

	out := &Extracted{Price: e.Price, Quantity: e.Quantity}

	if out.Price < inv.LeastPrice {
		out.Price = inv.LeastPrice
		out.Clamped = true
	} else if out.Price > inv.SellingPrice {
		out.Price = inv.SellingPrice
		out.Clamped = true
	}

	if out.Quantity > inv.QuantityAvailable {
		out.Quantity = inv.QuantityAvailable
		out.Clamped = true
	}

	return out, true
}
