package engine

import (
	"errors"
	"slices"
)

// ErrInvalidTable is coarse on purpose: callers learn that the table failed,
// never which group.
var ErrInvalidTable = errors.New("invalid table")

// ValidateTable checks that the whole table decomposes into valid melds.
// Tiles sharing a row and forming a maximal run of consecutive x positions
// make up one candidate meld. The table only has to be valid at turn commit;
// in-progress edits are never validated.
func ValidateTable(table []Tile) error {
	if len(table) == 0 {
		return ErrInvalidTable
	}
	sorted := slices.Clone(table)
	slices.SortFunc(sorted, func(a, b Tile) int {
		if a.Position.Y != b.Position.Y {
			return a.Position.Y - b.Position.Y
		}
		return a.Position.X - b.Position.X
	})
	group := []Tile{sorted[0]}
	for _, tile := range sorted[1:] {
		last := group[len(group)-1]
		if last.Position.Y == tile.Position.Y && last.Position.X+1 == tile.Position.X {
			group = append(group, tile)
			continue
		}
		if !validMeld(group) {
			return ErrInvalidTable
		}
		group = []Tile{tile}
	}
	if !validMeld(group) {
		return ErrInvalidTable
	}
	return nil
}

func validMeld(tiles []Tile) bool {
	return sameValueMeld(tiles) || sameColorRun(tiles)
}

// sameValueMeld: 3 or 4 tiles of a single value in pairwise distinct colors,
// jokers filling the remaining slots. At least one non-joker is required to
// fix the value.
func sameValueMeld(tiles []Tile) bool {
	if len(tiles) < 3 || len(tiles) > 4 {
		return false
	}
	colors := make(map[Color]struct{}, 4)
	nonJokers := 0
	value := 0
	for _, t := range tiles {
		if t.Joker {
			continue
		}
		if nonJokers == 0 {
			value = t.Value
		} else if t.Value != value {
			return false
		}
		nonJokers++
		colors[t.Color] = struct{}{}
	}
	return nonJokers > 0 && len(colors) == nonJokers
}

// sameColorRun: 3+ tiles of a single color with consecutive ascending values.
// The first non-joker anchors the expected value; jokers stand in for any
// value, including before the anchor. A group with no non-joker never anchors
// and is rejected.
func sameColorRun(tiles []Tile) bool {
	if len(tiles) < 3 {
		return false
	}
	var color Color
	nonJokers := 0
	for _, t := range tiles {
		if t.Joker {
			continue
		}
		if nonJokers == 0 {
			color = t.Color
		} else if t.Color != color {
			return false
		}
		nonJokers++
	}
	if nonJokers == 0 {
		return false
	}
	next := 0
	anchored := false
	for _, t := range tiles {
		if !anchored {
			if !t.Joker {
				next = t.Value + 1
				anchored = true
			}
			continue
		}
		if !t.Joker && t.Value != next {
			return false
		}
		next++
	}
	return true
}
