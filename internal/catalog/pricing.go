package catalog

import "strings"

// DefaultPrice applies to rarities missing from the table.
const DefaultPrice = 1200

var rarityPrices = map[string]int{
	"common":    800,
	"uncommon":  800,
	"rare":      1200,
	"epic":      1500,
	"legendary": 2000,
	"marvel":    1500,
	"dc":        1500,
	"icon":      1500,
	"starwars":  1500,
}

// PriceForRarity maps a rarity value to its list price. Matching ignores case.
func PriceForRarity(rarity string) int {
	if p, ok := rarityPrices[strings.ToLower(strings.TrimSpace(rarity))]; ok {
		return p
	}
	return DefaultPrice
}
