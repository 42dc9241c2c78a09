package engine

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	// MaxValue is the highest tile face value.
	MaxValue = 13
	// HandSize is the number of tiles dealt to each player at game start.
	HandSize = 14

	copiesPerTile = 2
	jokerCount    = 2
)

var ErrDeckExhausted = errors.New("deck exhausted")

// NewDeck builds the full shuffled tile set: two copies of values 1..13 in
// each of the four colors plus two jokers, 106 tiles in total. Tile identities
// are created here once and never destroyed; afterwards only their location
// (deck, hand, table) changes.
func NewDeck() []string {
	deck := make([]string, 0, 4*MaxValue*copiesPerTile+jokerCount)
	for _, marker := range []byte{'Y', 'K', 'B', 'R'} {
		for value := 1; value <= MaxValue; value++ {
			for copyN := 1; copyN <= copiesPerTile; copyN++ {
				deck = append(deck, fmt.Sprintf("%c%d-%d", marker, value, copyN))
			}
		}
	}
	for j := 1; j <= jokerCount; j++ {
		deck = append(deck, fmt.Sprintf("J-%d", j))
	}
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// NextDraw returns the tile a draw would deal. The deck row itself is
// immutable; the remaining count walks the sequence from the front, so the
// next tile is deck[len(deck)-remaining].
func NextDraw(deck []string, remaining int) (string, error) {
	if remaining <= 0 {
		return "", ErrDeckExhausted
	}
	if remaining > len(deck) {
		return "", fmt.Errorf("remaining %d exceeds deck size %d", remaining, len(deck))
	}
	return deck[len(deck)-remaining], nil
}
