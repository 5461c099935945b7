package common

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ADADecimals    = 6         // ADA has 6 decimals (lovelace)
	LovelacePerADA = 1_000_000 // 1 ADA = 1,000,000 lovelace

	// MaxLovelace is the total ADA supply (45 billion ADA). It also keeps
	// every valid amount inside int64 for storage.
	MaxLovelace uint64 = 45_000_000_000 * LovelacePerADA
)

// LovelaceToADA converts lovelace to ADA string without float precision loss
func LovelaceToADA(lovelace uint64) string {
	return formatWithDecimals(lovelace, ADADecimals)
}

// ADAToLovelace converts ADA string to lovelace without float precision loss
func ADAToLovelace(ada string) (uint64, error) {
	n, err := parseWithDecimals(ada, ADADecimals)
	if err != nil {
		return 0, err
	}
	if n > MaxLovelace {
		return 0, fmt.Errorf("amount exceeds maximum ADA supply")
	}
	return n, nil
}

// formatWithDecimals converts integer to decimal string by inserting decimal point
// Example: formatWithDecimals(24981836, 6) = "24.981836"
func formatWithDecimals(value uint64, decimals int) string {
	s := strconv.FormatUint(value, 10)

	// Pad with leading zeros if needed
	for len(s) <= decimals {
		s = "0" + s
	}

	// Insert decimal point
	pos := len(s) - decimals
	return s[:pos] + "." + s[pos:]
}

// parseWithDecimals converts decimal string to integer by removing decimal point
// Example: parseWithDecimals("24.981836", 6) = 24981836
func parseWithDecimals(s string, decimals int) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("signed amounts are not allowed")
	}

	parts := strings.Split(s, ".")

	if len(parts) == 1 {
		// No decimal point - multiply by 10^decimals
		n, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return 0, err
		}
		for i := 0; i < decimals; i++ {
			if n > ^uint64(0)/10 {
				return 0, fmt.Errorf("amount overflows")
			}
			n *= 10
		}
		return n, nil
	}

	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid decimal format")
	}

	whole := parts[0]
	if whole == "" {
		whole = "0"
	}
	frac := parts[1]

	// Pad or truncate fractional part to exact decimals
	if len(frac) < decimals {
		frac += strings.Repeat("0", decimals-len(frac))
	} else if len(frac) > decimals {
		frac = frac[:decimals]
	}

	// Combine and parse
	combined := whole + frac
	return strconv.ParseUint(combined, 10, 64)
}

// CompareADAAmounts compares two ADA decimal string amounts without float precision loss.
// Returns: -1 if a < b, 0 if a == b, 1 if a > b, and error if parsing fails
func CompareADAAmounts(a, b string) (int, error) {
	aVal, err := parseWithDecimals(a, ADADecimals)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", a, err)
	}

	bVal, err := parseWithDecimals(b, ADADecimals)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", b, err)
	}

	if aVal < bVal {
		return -1, nil
	}
	if aVal > bVal {
		return 1, nil
	}
	return 0, nil
}
