package marketplace

import (
	"encoding/json"
	"math/big"
	"time"
)

// SaleEvent is one logical purchase transaction, possibly covering several
// tokens bought in a single sweep.
type SaleEvent struct {
	TxHash     string
	Buyer      string
	Seller     string
	TokenIDs   []string
	TotalPrice *big.Int // wei, ETH-denominated legs only
	Timestamp  time.Time
}

// TokenCount reports how many tokens changed hands in this transaction.
func (s SaleEvent) TokenCount() int {
	return len(s.TokenIDs)
}

// DedupKey derives the identifier used to detect already-processed sales.
// The first token id is appended for extra collision safety.
func (s SaleEvent) DedupKey() string {
	if len(s.TokenIDs) == 0 {
		return s.TxHash
	}
	return s.TxHash + "_" + s.TokenIDs[0]
}

// FetchStatus tells callers apart "no new sales" from "fetch failed", which a
// bare empty slice would conflate.
type FetchStatus int

const (
	FetchOK FetchStatus = iota
	FetchRateLimited
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return "ok"
	case FetchRateLimited:
		return "rate_limited"
	default:
		return "failed"
	}
}

// Wire shapes for the marketplace events and asset endpoints. Only the fields
// this system reads are declared.

type eventsResponse struct {
	AssetEvents []rawEvent `json:"asset_events"`
}

type rawEvent struct {
	Transaction  *rawTransaction  `json:"transaction"`
	Winner       *rawAccount      `json:"winner_account"`
	Seller       *rawAccount      `json:"seller"`
	Asset        *rawAsset        `json:"asset"`
	PaymentToken *rawPaymentToken `json:"payment_token"`
	TotalPrice   string           `json:"total_price"`
}

type rawTransaction struct {
	TransactionHash string `json:"transaction_hash"`
}

type rawAccount struct {
	Address string `json:"address"`
}

type rawAsset struct {
	TokenID json.Number `json:"token_id"`
}

type rawPaymentToken struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

type assetResponse struct {
	ImageURL         string `json:"image_url"`
	ImageOriginalURL string `json:"image_original_url"`
	ImagePreviewURL  string `json:"image_preview_url"`
	Collection       struct {
		ImageURL string `json:"image_url"`
	} `json:"collection"`
}
