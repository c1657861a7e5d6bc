package utils

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseAmount parses a non-negative base-10 integer string
func ParseAmount(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("empty amount")
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("amount %q is not a base-10 integer", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is negative", s)
	}
	return v, nil
}

// AddAmounts returns a+b for decimal-string integers. An empty a counts as zero.
func AddAmounts(a, b string) (string, error) {
	if strings.TrimSpace(a) == "" {
		a = "0"
	}
	x, err := ParseAmount(a)
	if err != nil {
		return "", err
	}
	y, err := ParseAmount(b)
	if err != nil {
		return "", err
	}
	return new(big.Int).Add(x, y).String(), nil
}

// SumAmounts adds decimal-string integers, skipping unparsable entries
func SumAmounts(amounts []string) string {
	total := new(big.Int)
	for _, a := range amounts {
		if v, err := ParseAmount(a); err == nil {
			total.Add(total, v)
		}
	}
	return total.String()
}
