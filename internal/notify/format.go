package notify

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Category buckets a sale by how many tokens one transaction swept.
type Category string

const (
	CategorySingle Category = "single"
	CategoryMini   Category = "mini"
	CategoryBig    Category = "big"
	CategoryHuge   Category = "huge"
)

// Classify maps a token count to its sweep category.
func Classify(tokenCount int) Category {
	switch {
	case tokenCount <= 1:
		return CategorySingle
	case tokenCount <= 5:
		return CategoryMini
	case tokenCount <= 10:
		return CategoryBig
	default:
		return CategoryHuge
	}
}

// FormatPrice renders a wei amount as ETH with at most four decimals, trimmed
// of trailing zero digits and a bare trailing decimal point.
func FormatPrice(wei *big.Int) string {
	if wei == nil {
		wei = new(big.Int)
	}
	s := decimal.NewFromBigInt(wei, -18).StringFixed(4)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func truncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:10]
}
