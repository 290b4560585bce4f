package odds

import (
	"fmt"
	"strings"
)

// RiskLevel gates which raw prices are even considered for a coupon.
type RiskLevel string

const (
	RiskSafe   RiskLevel = "SAFE"
	RiskMedium RiskLevel = "MEDIUM"
	RiskRisky  RiskLevel = "RISKY"
)

func ParseRiskLevel(value string) (RiskLevel, error) {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(value))) {
	case RiskSafe:
		return RiskSafe, nil
	case RiskMedium:
		return RiskMedium, nil
	case RiskRisky:
		return RiskRisky, nil
	default:
		return "", fmt.Errorf("invalid risk level %q: valid values are %s, %s, %s", value, RiskSafe, RiskMedium, RiskRisky)
	}
}

// PriceInRange reports whether a price falls inside the band for the level.
// All bands share the 1.05 floor; only the ceiling varies.
func (r RiskLevel) PriceInRange(price float64) bool {
	if price < 1.05 {
		return false
	}
	switch r {
	case RiskSafe:
		return price <= 1.70
	case RiskMedium:
		return price <= 2.20
	case RiskRisky:
		return price <= 15.0
	default:
		return false
	}
}
