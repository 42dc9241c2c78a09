// Package store persists game state in PostgreSQL: one game_history row per
// turn, one game_users row per seat, one game_deck row per game.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pkarls/rummikub-backend/internal/engine"
	"github.com/pkarls/rummikub-backend/internal/turn"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
)

const pgUniqueViolation = "23505"

// TurnRecord is the authoritative table state as of one point in the turn
// sequence. Ongoing marks a turn the current player has acted on but not yet
// finalized.
type TurnRecord struct {
	GameID   string
	Turn     int
	Table    []engine.Tile
	Ongoing  bool
	UpdateID string
}

// NewGame carries everything created at game start.
type NewGame struct {
	GameID string
	Deck   []string
	Seats  []turn.Seat
	Hands  map[string][]string
}

type DB struct {
	db *gorm.DB
}

func New(db *gorm.DB) *DB { return &DB{db: db} }

// Migrate creates the backing tables.
func (s *DB) Migrate() error {
	return s.db.AutoMigrate(&turnRow{}, &playerRow{}, &deckRow{})
}

// LatestTurn implements turn.Source.
func (s *DB) LatestTurn(ctx context.Context, gameID string) (turn.Record, bool, error) {
	var row turnRow
	err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("turn DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return turn.Record{}, false, nil
	}
	if err != nil {
		return turn.Record{}, false, fmt.Errorf("latest turn: %w", err)
	}
	return turn.Record{Turn: row.Turn, Ongoing: row.Ongoing}, true, nil
}

// Seats implements turn.Source.
func (s *DB) Seats(ctx context.Context, gameID string) ([]turn.Seat, error) {
	var rows []playerRow
	err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("seat_index").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("seats: %w", err)
	}
	seats := make([]turn.Seat, len(rows))
	for i, row := range rows {
		seats[i] = turn.Seat{UserID: row.UserID, Index: row.SeatIndex}
	}
	return seats, nil
}

// TableAt returns the table snapshot persisted for one turn. A turn without a
// row (turn -1 before the first action) reads as an empty table.
func (s *DB) TableAt(ctx context.Context, gameID string, turnNo int) ([]engine.Tile, error) {
	var row turnRow
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND turn = ?", gameID, turnNo).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("table at turn %d: %w", turnNo, err)
	}
	return decodeTiles(row.Table)
}

// LatestTable returns the most recent table snapshot for the game.
func (s *DB) LatestTable(ctx context.Context, gameID string) ([]engine.Tile, error) {
	var row turnRow
	err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("turn DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest table: %w", err)
	}
	return decodeTiles(row.Table)
}

// UpsertTurn writes a finalized (or ongoing) turn record, replacing the
// table, the ongoing flag and the update id of any existing row for that
// turn. Commits go through here.
func (s *DB) UpsertTurn(ctx context.Context, rec TurnRecord) error {
	payload, err := encodeTiles(rec.Table)
	if err != nil {
		return err
	}
	row := turnRow{
		GameID:   rec.GameID,
		Turn:     rec.Turn,
		Table:    payload,
		Ongoing:  rec.Ongoing,
		UpdateID: rec.UpdateID,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "turn"}},
		DoUpdates: clause.AssignmentColumns([]string{"board", "ongoing", "update_id"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert turn %d: %w", rec.Turn, err)
	}
	return nil
}

// SaveTableEdit writes an in-progress table edit for the turn. A fresh row is
// inserted as ongoing so the edit never advances the turn; an existing row
// keeps its ongoing flag and only the table and update id change.
func (s *DB) SaveTableEdit(ctx context.Context, rec TurnRecord) error {
	payload, err := encodeTiles(rec.Table)
	if err != nil {
		return err
	}
	row := turnRow{
		GameID:   rec.GameID,
		Turn:     rec.Turn,
		Table:    payload,
		Ongoing:  true,
		UpdateID: rec.UpdateID,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "turn"}},
		DoUpdates: clause.AssignmentColumns([]string{"board", "update_id"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save table edit for turn %d: %w", rec.Turn, err)
	}
	return nil
}

// Hand returns the tile ids a player holds.
func (s *DB) Hand(ctx context.Context, gameID, userID string) ([]string, error) {
	var row playerRow
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("hand: %w", err)
	}
	return decodeIDs(row.Hand)
}

func (s *DB) SetHand(ctx context.Context, gameID, userID string, hand []string) error {
	payload, err := encodeIDs(hand)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Model(&playerRow{}).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		Update("hand", payload)
	if res.Error != nil {
		return fmt.Errorf("set hand: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGameNotFound
	}
	return nil
}

// Deck returns the full immutable tile sequence and the remaining count.
func (s *DB) Deck(ctx context.Context, gameID string) ([]string, int, error) {
	var row deckRow
	err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, ErrGameNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("deck: %w", err)
	}
	deck, err := decodeIDs(row.Deck)
	if err != nil {
		return nil, 0, err
	}
	return deck, row.Remaining, nil
}

// DealTile moves one draw from the deck into a player's hand: the remaining
// count and the hand row change in the same transaction, so a failed hand
// write cannot strand a drawn tile.
func (s *DB) DealTile(ctx context.Context, gameID, userID string, remaining int, hand []string) error {
	payload, err := encodeIDs(hand)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&deckRow{}).
			Where("game_id = ?", gameID).
			Update("remaining", remaining)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrGameNotFound
		}
		res = tx.Model(&playerRow{}).
			Where("game_id = ? AND user_id = ?", gameID, userID).
			Update("hand", payload)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrGameNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrGameNotFound) {
			return err
		}
		return fmt.Errorf("deal tile: %w", err)
	}
	return nil
}

// CreateGame writes the deck and seat rows for a new game in one
// transaction.
func (s *DB) CreateGame(ctx context.Context, g NewGame) error {
	deckPayload, err := encodeIDs(g.Deck)
	if err != nil {
		return err
	}
	players := make([]playerRow, 0, len(g.Seats))
	for _, seat := range g.Seats {
		handPayload, err := encodeIDs(g.Hands[seat.UserID])
		if err != nil {
			return err
		}
		players = append(players, playerRow{
			GameID:    g.GameID,
			UserID:    seat.UserID,
			SeatIndex: seat.Index,
			Hand:      handPayload,
		})
	}

	dealt := 0
	for _, hand := range g.Hands {
		dealt += len(hand)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&deckRow{GameID: g.GameID, Deck: deckPayload, Remaining: len(g.Deck) - dealt}).Error; err != nil {
			return err
		}
		return tx.Create(&players).Error
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrGameExists
		}
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}
