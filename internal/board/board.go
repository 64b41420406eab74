// Package board captures the state-to-presentation contract: how many
// answer slots a renderer shows, how they split into columns, and who won.
// No game logic lives here; renderers apply these rules to whatever snapshot
// the sync layer delivers.
package board

import "github.com/TheJagStudio/Family-Fued/internal/engine"

// PlaceholderSlots is what the board shows before any question is active.
const PlaceholderSlots = 8

// SlotCount returns the number of slots the board renders for s: the active
// question's answer count, or the fixed placeholder count while idle or
// waiting. Slot order is answer order, 1-indexed for display.
func SlotCount(s engine.State) int {
	if s.Status != engine.StatusActive && s.Status != engine.StatusFinished {
		return PlaceholderSlots
	}
	q, ok := engine.CurrentQuestion(s)
	if !ok {
		return PlaceholderSlots
	}
	return len(q.Answers)
}

// SplitIndex is how many slots go in the left column; the left half takes
// the extra slot on an odd count.
func SplitIndex(total int) int {
	return (total + 1) / 2
}

// Winners returns the 1-indexed teams holding the top score, and that score.
// More than one winner is a draw.
func Winners(s engine.State) ([]int, int) {
	maxScore := s.TeamScores[0]
	for _, score := range s.TeamScores[1:] {
		if score > maxScore {
			maxScore = score
		}
	}
	var winners []int
	for i, score := range s.TeamScores {
		if score == maxScore {
			winners = append(winners, i+1)
		}
	}
	return winners, maxScore
}
