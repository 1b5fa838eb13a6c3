package testutil

import "github.com/haggleworks/negotiator/pkg/types"

// ApplesConstraints is a buyer who needs 100 apples at 8.00-11.00 per unit.
func ApplesConstraints() types.BuyerConstraints {
	return types.BuyerConstraints{
		ItemID:          "item_apples",
		ItemName:        "apples",
		QuantityNeeded:  100,
		MinPricePerUnit: 8.0,
		MaxPricePerUnit: 11.0,
	}
}

// Profile builds a seller profile with sensible defaults.
func Profile(sellerID, displayName string, priority types.SellerPriority) types.SellerProfile {
	return types.SellerProfile{
		SellerID:    sellerID,
		DisplayName: displayName,
		Priority:    priority,
		Style:       types.StyleNeutral,
	}
}

// ApplesItem builds an apples inventory entry with the given price band.
func ApplesItem(leastPrice, sellingPrice float64, quantity int) types.InventoryItem {
	return types.InventoryItem{
		ItemID:            "item_apples",
		ItemName:          "apples",
		CostPrice:         leastPrice - 2.0,
		SellingPrice:      sellingPrice,
		LeastPrice:        leastPrice,
		QuantityAvailable: quantity,
	}
}
