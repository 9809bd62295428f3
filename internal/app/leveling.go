/**
 * @description
 * This file contains the pure progression calculators: mapping lifetime XP to
 * a level index and mapping a room's same-day diamond spend to a treasure box
 * tier. Both are stateless; the threshold tables are caller-supplied
 * configuration.
 *
 * @notes
 * - XP comparisons use big.Int throughout. A long-lived account's XP can
 *   exceed the range where float64 or even int64 arithmetic is safe, and the
 *   stored form is a decimal string for the same reason.
 */

package app

import (
	"fmt"
	"math/big"
	"strconv"
)

// LevelForXP returns the greatest index i such that xp >= thresholds[i], or
// -1 when xp is below the first threshold. Thresholds must be ascending.
func LevelForXP(xp *big.Int, thresholds []*big.Int) int {
	if xp == nil {
		return -1
	}
	level := -1
	for i, t := range thresholds {
		if xp.Cmp(t) < 0 {
			break
		}
		level = i
	}
	return level
}

// TreasureBoxLevelForSpend returns the highest tier k such that the spend
// meets thresholds[k-1], with tier 0 below the first threshold and the top
// tier len(thresholds) at or above the last.
func TreasureBoxLevelForSpend(diamondsUsedToday int64, thresholds []int64) int {
	tier := 0
	for i, t := range thresholds {
		if diamondsUsedToday < t {
			break
		}
		tier = i + 1
	}
	return tier
}

// ParseLevelThresholds converts the configured decimal strings into big.Int
// thresholds, rejecting malformed or non-ascending tables at startup rather
// than at send time.
func ParseLevelThresholds(raw []string) ([]*big.Int, error) {
	thresholds := make([]*big.Int, 0, len(raw))
	var prev *big.Int
	for i, s := range raw {
		t, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("level threshold %d is not a decimal integer: %q", i, s)
		}
		if t.Sign() < 0 {
			return nil, fmt.Errorf("level threshold %d is negative: %q", i, s)
		}
		if prev != nil && t.Cmp(prev) <= 0 {
			return nil, fmt.Errorf("level thresholds must be strictly ascending at index %d", i)
		}
		thresholds = append(thresholds, t)
		prev = t
	}
	return thresholds, nil
}

// ParseTreasureBoxThresholds converts the configured decimal strings into the
// strictly ascending spend cutoffs for the treasure box tiers.
func ParseTreasureBoxThresholds(raw []string) ([]int64, error) {
	thresholds := make([]int64, 0, len(raw))
	var prev int64
	for i, s := range raw {
		t, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("treasure box threshold %d is not an integer: %q", i, s)
		}
		if t <= 0 {
			return nil, fmt.Errorf("treasure box threshold %d must be positive: %q", i, s)
		}
		if i > 0 && t <= prev {
			return nil, fmt.Errorf("treasure box thresholds must be strictly ascending at index %d", i)
		}
		thresholds = append(thresholds, t)
		prev = t
	}
	return thresholds, nil
}
