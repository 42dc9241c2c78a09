// Package types holds the wire messages shared by the server and the sync
// client.
package types

import "github.com/pkarls/rummikub-backend/internal/engine"

// UpdateTableRequest is a non-finalizing table edit. UpdateID tags the write
// so the originating client can suppress its own echo off the feed.
type UpdateTableRequest struct {
	GameID   string        `json:"gameId"`
	UpdateID string        `json:"updateId"`
	Table    []engine.Tile `json:"table"`
}

// CommitRequest ends the caller's turn with the proposed table.
type CommitRequest struct {
	GameID string        `json:"gameId"`
	Table  []engine.Tile `json:"table"`
}

// DrawRequest deals one tile from the shared deck into the caller's hand
// without ending the turn.
type DrawRequest struct {
	GameID string `json:"gameId"`
}

// CreateGameRequest starts a game for the listed players, seated in order.
type CreateGameRequest struct {
	Players []string `json:"players"`
}

type CreateGameResponse struct {
	GameID string `json:"gameId"`
}

// HandResponse lists the tile ids the caller currently holds.
type HandResponse struct {
	Tiles []string `json:"tiles"`
}

// TableResponse is the latest persisted table snapshot.
type TableResponse struct {
	Table []engine.Tile `json:"table"`
}

// TableUpdate is the per-game feed broadcast: the full table plus the update
// id of the write that triggered it.
type TableUpdate struct {
	GameID   string        `json:"gameId"`
	UpdateID string        `json:"updateId"`
	Table    []engine.Tile `json:"table"`
}
