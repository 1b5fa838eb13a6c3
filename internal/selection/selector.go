// Package selection gates which sellers participate in a negotiation run.
package selection

import (
	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/pkg/types"
)

// SkipReason explains why a seller was excluded from a run.
type SkipReason string

const (
	SkipNoInventory          SkipReason = "no_inventory"
	SkipInsufficientQuantity SkipReason = "insufficient_quantity"
	SkipPriceMismatch        SkipReason = "price_mismatch"
)

// Candidate pairs a seller profile with its private inventory.
type Candidate struct {
	Profile   types.SellerProfile
	Inventory []types.InventoryItem
}

// Admitted is a seller cleared for the run together with the matched entry.
type Admitted struct {
	Profile types.SellerProfile
	Item    types.InventoryItem
}

// Skipped records an excluded seller with exactly one reason.
type Skipped struct {
	SellerID string
	Reason   SkipReason
}

// Result is the selector output for one run.
type Result struct {
	Admitted []Admitted
	Skipped  []Skipped
}

// Select filters candidates against the buyer's constraints. A seller is
// admitted iff it stocks the item, holds enough quantity, and its price band
// overlaps the buyer's.
func Select(constraints types.BuyerConstraints, candidates []Candidate, logger *zap.Logger) Result {
	var result Result

	wanted := types.NormalizeItemName(constraints.ItemName)

	for _, c := range candidates {
		item, found := findItem(c.Inventory, wanted)
		if !found {
			result.Skipped = append(result.Skipped, Skipped{SellerID: c.Profile.SellerID, Reason: SkipNoInventory})
			SellersSkippedTotal.WithLabelValues(string(SkipNoInventory)).Inc()
			continue
		}

		if item.QuantityAvailable < constraints.QuantityNeeded {
			result.Skipped = append(result.Skipped, Skipped{SellerID: c.Profile.SellerID, Reason: SkipInsufficientQuantity})
			SellersSkippedTotal.WithLabelValues(string(SkipInsufficientQuantity)).Inc()
			continue
		}

		if item.LeastPrice > constraints.MaxPricePerUnit || item.SellingPrice < constraints.MinPricePerUnit {
			result.Skipped = append(result.Skipped, Skipped{SellerID: c.Profile.SellerID, Reason: SkipPriceMismatch})
			SellersSkippedTotal.WithLabelValues(string(SkipPriceMismatch)).Inc()
			continue
		}

		result.Admitted = append(result.Admitted, Admitted{Profile: c.Profile, Item: item})
	}

	logger.Info("seller-selection-complete",
		zap.String("item", constraints.ItemName),
		zap.Int("admitted", len(result.Admitted)),
		zap.Int("skipped", len(result.Skipped)))

	return result
}

func findItem(inventory []types.InventoryItem, normalizedName string) (types.InventoryItem, bool) {
	for _, item := range inventory {
		if types.NormalizeItemName(item.ItemName) == normalizedName {
			return item, true
		}
	}

	return types.InventoryItem{}, false
}
