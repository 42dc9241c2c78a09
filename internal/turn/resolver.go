// Package turn resolves the current turn number and the player authorized to
// act on it from the persisted turn history.
package turn

import "context"

// Record is the slice of a persisted turn row the resolver reads.
type Record struct {
	Turn    int
	Ongoing bool
}

// Seat fixes a player's position in the rotation at game start. The player
// whose seat index equals turn mod playerCount acts.
type Seat struct {
	UserID string
	Index  int
}

// Source is the storage surface turn resolution runs against.
type Source interface {
	// LatestTurn returns the highest-numbered turn record for the game, or
	// ok=false when the game has no history yet.
	LatestTurn(ctx context.Context, gameID string) (Record, bool, error)
	Seats(ctx context.Context, gameID string) ([]Seat, error)
}

// Current resolves the turn number the next action applies to. An ongoing
// record keeps the turn with the same player; a finalized record passes it to
// the next one. A game without history starts at turn 0.
func Current(ctx context.Context, src Source, gameID string) (int, error) {
	rec, ok, err := src.LatestTurn(ctx, gameID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if rec.Ongoing {
		return rec.Turn, nil
	}
	return rec.Turn + 1, nil
}

// IsPlayersTurn reports whether userID owns the seat acting at turn. Missing
// or incomplete seat data fails closed.
func IsPlayersTurn(ctx context.Context, src Source, gameID, userID string, turn int) (bool, error) {
	seats, err := src.Seats(ctx, gameID)
	if err != nil {
		return false, err
	}
	if len(seats) == 0 {
		return false, nil
	}
	want := turn % len(seats)
	for _, seat := range seats {
		if seat.Index == want {
			return seat.UserID == userID, nil
		}
	}
	return false, nil
}
