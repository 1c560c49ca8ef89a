package marketplace

import (
	"math/big"
	"time"
)

const unknownAddress = "Unknown"

// aggregateSales groups raw marketplace events by transaction hash into
// logical sale transactions, preserving first-seen order of transactions.
//
// Counterparties come from the first event of a group (all legs of one
// transaction share them). Token ids are collected from every asset-bearing
// leg in event order. Price legs are summed only when denominated in ETH;
// other currencies are ignored, not converted, and a leg whose price fails to
// parse loses only its own contribution. Groups yielding no token ids are
// dropped as malformed.
func aggregateSales(events []rawEvent, now time.Time) []SaleEvent {
	order := []string{}
	groups := map[string][]rawEvent{}

	for _, ev := range events {
		if ev.Transaction == nil || ev.Transaction.TransactionHash == "" {
			continue
		}
		hash := ev.Transaction.TransactionHash
		if _, seen := groups[hash]; !seen {
			order = append(order, hash)
		}
		groups[hash] = append(groups[hash], ev)
	}

	sales := make([]SaleEvent, 0, len(order))
	for _, hash := range order {
		legs := groups[hash]

		first := legs[0]
		buyer, seller := unknownAddress, unknownAddress
		if first.Winner != nil && first.Winner.Address != "" {
			buyer = first.Winner.Address
		}
		if first.Seller != nil && first.Seller.Address != "" {
			seller = first.Seller.Address
		}

		tokenIDs := []string{}
		total := new(big.Int)
		for _, leg := range legs {
			if leg.Asset != nil && leg.Asset.TokenID.String() != "" {
				tokenIDs = append(tokenIDs, leg.Asset.TokenID.String())
			}
			if !isNativeCurrency(leg.PaymentToken) {
				continue
			}
			if wei, ok := new(big.Int).SetString(leg.TotalPrice, 10); ok && wei.Sign() >= 0 {
				total.Add(total, wei)
			}
		}

		if len(tokenIDs) == 0 {
			continue
		}

		sales = append(sales, SaleEvent{
			TxHash:     hash,
			Buyer:      buyer,
			Seller:     seller,
			TokenIDs:   tokenIDs,
			TotalPrice: total,
			Timestamp:  now,
		})
	}

	return sales
}

func isNativeCurrency(pt *rawPaymentToken) bool {
	if pt == nil {
		return false
	}
	return pt.Symbol == "ETH" || pt.Name == "Ether"
}
