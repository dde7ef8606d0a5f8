package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier is a paid service package. RecommendationGood is not a tier: it is the
// scorer's "no service needed" outcome and is never booked.
type Tier string

const (
	TierQuick          Tier = "quick"
	TierFull           Tier = "full"
	TierExtreme        Tier = "extreme"
	RecommendationGood Tier = "good"
)

type Package struct {
	Tier        Tier
	Name        string
	Summary     string
	Features    []string
	PriceAED    decimal.Decimal
	DurationTxt string
}

var packages = map[Tier]Package{
	TierQuick: {
		Tier:        TierQuick,
		Name:        "Quick Remote Fix",
		Summary:     "Basic optimization & troubleshooting",
		Features:    []string{"Driver Optimization", "Basic Windows Debloat", "Game Config Tuning"},
		PriceAED:    decimal.NewFromInt(199),
		DurationTxt: "1-2 hours",
	},
	TierFull: {
		Tier:        TierFull,
		Name:        "Full System Tune-Up",
		Summary:     "Comprehensive OS & Game optimization",
		Features:    []string{"Deep Windows Stripping", "Network Optimization", "Process Lasso Config", "Latency Reduction"},
		PriceAED:    decimal.NewFromInt(399),
		DurationTxt: "3-4 hours",
	},
	TierExtreme: {
		Tier:        TierExtreme,
		Name:        "Extreme BIOSPRIME",
		Summary:     "Deep BIOS, RAM & Input Lag tuning",
		Features:    []string{"Custom BIOS Tuning", "RAM Overclocking", "Electrical Optimization", "Input Lag Nullification"},
		PriceAED:    decimal.NewFromInt(699),
		DurationTxt: "3-4 hours",
	},
}

// Tiers lists the bookable packages cheapest first.
func Tiers() []Tier {
	return []Tier{TierQuick, TierFull, TierExtreme}
}

func PackageFor(tier Tier) (Package, bool) {
	p, ok := packages[tier]
	return p, ok
}

func (t Tier) Bookable() bool {
	_, ok := packages[t]
	return ok
}

func (t Tier) Valid() bool {
	return t.Bookable() || t == RecommendationGood
}

// PriceLabel renders a package price the way customers see it, e.g. "AED 399".
func PriceLabel(amount decimal.Decimal) string {
	return fmt.Sprintf("AED %s", amount.String())
}
