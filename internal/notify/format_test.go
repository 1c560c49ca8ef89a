package notify

import (
	"math/big"
	"testing"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		count int
		want  Category
	}{
		{1, CategorySingle},
		{2, CategoryMini},
		{5, CategoryMini},
		{6, CategoryBig},
		{10, CategoryBig},
		{11, CategoryHuge},
		{50, CategoryHuge},
	}

	for _, tt := range tests {
		if got := Classify(tt.count); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.count, got, tt.want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	wei := func(s string) *big.Int {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			t.Fatalf("bad wei literal %q", s)
		}
		return v
	}

	tests := []struct {
		wei  *big.Int
		want string
	}{
		{wei("0"), "0"},
		{wei("1000000000000000000"), "1"},
		{wei("1200000000000000000"), "1.2"},
		{wei("1234500000000000000"), "1.2345"},
		{wei("500000000000000000"), "0.5"},
		{wei("42000000000000000000"), "42"},
		{nil, "0"},
	}

	for _, tt := range tests {
		got := FormatPrice(tt.wei)
		if got != tt.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", tt.wei, got, tt.want)
		}
		if len(got) > 1 {
			last := got[len(got)-1]
			if last == '0' && hasDecimalPoint(got) {
				t.Errorf("FormatPrice(%v) = %q ends in trailing zero", tt.wei, got)
			}
			if last == '.' {
				t.Errorf("FormatPrice(%v) = %q ends in bare decimal point", tt.wei, got)
			}
		}
	}
}

func hasDecimalPoint(s string) bool {
	for _, c := range s {
		if c == '.' {
			return true
		}
	}
	return false
}

func TestTruncateAddr(t *testing.T) {
	if got := truncateAddr("0x1234567890abcdef"); got != "0x12345678" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateAddr("short"); got != "short" {
		t.Fatalf("short address should pass through, got %q", got)
	}
}
