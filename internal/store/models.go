package store

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/pkarls/rummikub-backend/internal/engine"
)

// Row structs mirror the persisted schema. JSON columns are decoded into
// typed domain values before anything leaves this package.

type turnRow struct {
	GameID string `gorm:"column:game_id;primaryKey"`
	Turn   int    `gorm:"column:turn;primaryKey"`
	// Stored as "board": TABLE is reserved in SQL.
	Table    datatypes.JSON `gorm:"column:board"`
	Ongoing  bool           `gorm:"column:ongoing"`
	UpdateID string         `gorm:"column:update_id"`
}

func (turnRow) TableName() string { return "game_history" }

type playerRow struct {
	GameID    string         `gorm:"column:game_id;primaryKey"`
	UserID    string         `gorm:"column:user_id;primaryKey"`
	SeatIndex int            `gorm:"column:seat_index"`
	Hand      datatypes.JSON `gorm:"column:hand"`
}

func (playerRow) TableName() string { return "game_users" }

type deckRow struct {
	GameID    string         `gorm:"column:game_id;primaryKey"`
	Deck      datatypes.JSON `gorm:"column:deck"`
	Remaining int            `gorm:"column:remaining"`
}

func (deckRow) TableName() string { return "game_deck" }

func encodeTiles(tiles []engine.Tile) (datatypes.JSON, error) {
	if tiles == nil {
		tiles = []engine.Tile{}
	}
	payload, err := json.Marshal(tiles)
	if err != nil {
		return nil, fmt.Errorf("encode tiles: %w", err)
	}
	return datatypes.JSON(payload), nil
}

func decodeTiles(raw datatypes.JSON) ([]engine.Tile, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var tiles []engine.Tile
	if err := json.Unmarshal(raw, &tiles); err != nil {
		return nil, fmt.Errorf("decode tiles: %w", err)
	}
	return tiles, nil
}

func encodeIDs(ids []string) (datatypes.JSON, error) {
	if ids == nil {
		ids = []string{}
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode tile ids: %w", err)
	}
	return datatypes.JSON(payload), nil
}

func decodeIDs(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode tile ids: %w", err)
	}
	return ids, nil
}
