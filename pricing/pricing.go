// Package pricing holds the broadcast tariff and the token arithmetic used
// when a parent checks out a report.
package pricing

import (
	"fmt"

	"github.com/safekid-nepal/safekid-api/models"
)

// tiers is the cost in rupees per broadcast area
var tiers = map[models.BroadcastArea]int{
	models.AreaCity:       100,
	models.AreaProvince:   300,
	models.AreaNationwide: 500,
}

// Reward split in percent. The helper pool is what is left after the fee and
// the finder's share.
const (
	appFeePercent = 20
	finderPercent = 60
)

// Quote is the breakdown shown before a report is posted
type Quote struct {
	Area            models.BroadcastArea `json:"broadcastArea"`
	BaseCost        int                  `json:"baseCost"`
	TokensUsed      int                  `json:"tokensUsed"`
	FinalCost       int                  `json:"finalCost"`
	RequiresPayment bool                 `json:"requiresPayment"`
}

// Reward is how a found-child reward is divided
type Reward struct {
	Total     int `json:"total"`
	AppFee    int `json:"appFee"`
	Finder    int `json:"finder"`
	PerHelper int `json:"perHelper"`
	Helpers   int `json:"helpers"`
}

// AreaCost returns the base cost for an area
func AreaCost(area models.BroadcastArea) (int, error) {
	cost, ok := tiers[area]
	if !ok {
		return 0, fmt.Errorf("no tariff for broadcast area %q", area)
	}
	return cost, nil
}

// FinalCost is what remains to be paid after tokens are applied. Callers are
// expected to clamp tokens with TokensToUse first.
func FinalCost(baseCost, tokensUsed int) int {
	if tokensUsed >= baseCost {
		return 0
	}
	return baseCost - tokensUsed
}

// TokensToUse is the number of tokens to spend against baseCost
func TokensToUse(balance, baseCost int) int {
	if balance < 0 {
		return 0
	}
	if balance < baseCost {
		return balance
	}
	return baseCost
}

// QuoteFor prices area for a user holding balance tokens
func QuoteFor(area models.BroadcastArea, balance int) (Quote, error) {
	base, err := AreaCost(area)
	if err != nil {
		return Quote{}, err
	}
	used := TokensToUse(balance, base)
	final := FinalCost(base, used)
	return Quote{
		Area:            area,
		BaseCost:        base,
		TokensUsed:      used,
		FinalCost:       final,
		RequiresPayment: final > 0,
	}, nil
}

// DistributeReward splits total between the app, the finder and helpers.
// Integer leftovers from the helper split fall to the app fee, so the parts
// always add up to total.
func DistributeReward(total, helpers int) (Reward, error) {
	if total < 0 {
		return Reward{}, fmt.Errorf("reward total must not be negative, got %d", total)
	}
	if helpers < 0 {
		helpers = 0
	}
	fee := total * appFeePercent / 100
	finder := total * finderPercent / 100
	pool := total - fee - finder

	r := Reward{Total: total, Finder: finder, Helpers: helpers}
	if helpers == 0 {
		r.AppFee = fee + pool
		return r, nil
	}
	r.PerHelper = pool / helpers
	r.AppFee = fee + pool - r.PerHelper*helpers
	return r, nil
}
