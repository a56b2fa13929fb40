package domain

import "github.com/shopspring/decimal"

// PairRules exchange trading constraints for one pair.
type PairRules struct {
	// VolumePrecision number of decimal places the volume is quantized to.
	VolumePrecision int32
	// MinVolume minimum tradable order size in the base asset.
	MinVolume decimal.Decimal
}

// Kraken quantizes spot volumes to 8 decimal places.
const defaultVolumePrecision = 8

// Order minimums published by Kraken for the pairs this bot is commonly
// configured with. Unknown pairs fall back to precision-only rules.
var knownPairRules = map[string]PairRules{
	"XXBTZEUR": {VolumePrecision: 8, MinVolume: decimal.RequireFromString("0.00005")},
	"XBTEUR":   {VolumePrecision: 8, MinVolume: decimal.RequireFromString("0.00005")},
	"XETHZEUR": {VolumePrecision: 8, MinVolume: decimal.RequireFromString("0.002")},
	"ETHEUR":   {VolumePrecision: 8, MinVolume: decimal.RequireFromString("0.002")},
	"SOLEUR":   {VolumePrecision: 8, MinVolume: decimal.RequireFromString("0.02")},
	"ADAEUR":   {VolumePrecision: 8, MinVolume: decimal.RequireFromString("2.5")},
	"DOTEUR":   {VolumePrecision: 8, MinVolume: decimal.RequireFromString("0.03")},
}

// RulesFor returns the trading rules for a pair.
func RulesFor(pair string) PairRules {
	if rules, ok := knownPairRules[pair]; ok {
		return rules
	}
	return PairRules{VolumePrecision: defaultVolumePrecision, MinVolume: decimal.Zero}
}
