// Package play implements the server-side move protocols: non-finalizing
// table updates, turn commits and deck draws.
package play

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pkarls/rummikub-backend/internal/engine"
	"github.com/pkarls/rummikub-backend/internal/store"
	"github.com/pkarls/rummikub-backend/internal/turn"
	"github.com/pkarls/rummikub-backend/pkg/types"
)

var (
	ErrNotYourTurn    = errors.New("not your turn")
	ErrTileNotHeld    = errors.New("tile not in hand")
	ErrTooFewPlayers  = errors.New("at least two players required")
	ErrTooManyPlayers = errors.New("too many players for one deck")
)

// Store is the persistence surface the protocols run against.
type Store interface {
	turn.Source
	TableAt(ctx context.Context, gameID string, turnNo int) ([]engine.Tile, error)
	LatestTable(ctx context.Context, gameID string) ([]engine.Tile, error)
	UpsertTurn(ctx context.Context, rec store.TurnRecord) error
	SaveTableEdit(ctx context.Context, rec store.TurnRecord) error
	Hand(ctx context.Context, gameID, userID string) ([]string, error)
	SetHand(ctx context.Context, gameID, userID string, hand []string) error
	Deck(ctx context.Context, gameID string) ([]string, int, error)
	DealTile(ctx context.Context, gameID, userID string, remaining int, hand []string) error
	CreateGame(ctx context.Context, g store.NewGame) error
}

// Feed broadcasts table changes to every viewer of a game.
type Feed interface {
	Publish(ctx context.Context, upd types.TableUpdate) error
}

type gameLock struct {
	sync.Mutex
	refs int
}

type Service struct {
	store Store
	feed  Feed
	log   *zap.Logger

	mu    sync.Mutex
	locks map[string]*gameLock
}

func NewService(st Store, feed Feed, log *zap.Logger) *Service {
	return &Service{store: st, feed: feed, log: log, locks: make(map[string]*gameLock)}
}

// lockGame serializes update/commit/draw for one game so concurrent writers
// cannot each resolve the same turn and clobber one another. Locks are
// refcounted and dropped from the registry once the last holder releases, so
// idle games cost nothing. In-process only; running more than one server
// instance requires moving this into the database.
func (s *Service) lockGame(gameID string) func() {
	s.mu.Lock()
	l := s.locks[gameID]
	if l == nil {
		l = &gameLock{}
		s.locks[gameID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, gameID)
		}
		s.mu.Unlock()
	}
}

// UpdateTable persists a non-finalizing table edit and broadcasts it to all
// viewers. Intermediate states are not validated as melds; only the turn
// owner may edit.
func (s *Service) UpdateTable(ctx context.Context, gameID, userID, updateID string, table []engine.Tile) error {
	defer s.lockGame(gameID)()

	cur, err := s.resolveOwnTurn(ctx, gameID, userID)
	if err != nil {
		return err
	}

	rec := store.TurnRecord{GameID: gameID, Turn: cur, Table: table, Ongoing: true, UpdateID: updateID}
	if err := s.store.SaveTableEdit(ctx, rec); err != nil {
		return fmt.Errorf("save table edit: %w", err)
	}
	s.publish(ctx, types.TableUpdate{GameID: gameID, UpdateID: updateID, Table: table})
	return nil
}

// Commit ends the caller's turn. The proposed table must decompose into valid
// melds, and every tile placed since the previous turn must come out of the
// caller's hand.
func (s *Service) Commit(ctx context.Context, gameID, userID string, table []engine.Tile) error {
	if err := engine.ValidateTable(table); err != nil {
		return err
	}

	defer s.lockGame(gameID)()

	cur, err := s.resolveOwnTurn(ctx, gameID, userID)
	if err != nil {
		return err
	}

	prev, err := s.store.TableAt(ctx, gameID, cur-1)
	if err != nil {
		return fmt.Errorf("previous table: %w", err)
	}
	hand, err := s.store.Hand(ctx, gameID, userID)
	if err != nil {
		return fmt.Errorf("hand: %w", err)
	}

	placed, _ := engine.Diff(engine.TileIDs(table), engine.TileIDs(prev))
	missing, _ := engine.Diff(placed, hand)
	if len(missing) > 0 {
		s.log.Info("rejected commit: tiles not in hand",
			zap.String("game_id", gameID),
			zap.String("user_id", userID),
			zap.Strings("tiles", missing))
		return ErrTileNotHeld
	}

	rec := store.TurnRecord{
		GameID:   gameID,
		Turn:     cur,
		Table:    table,
		Ongoing:  false,
		UpdateID: uuid.NewString(),
	}
	if err := s.store.UpsertTurn(ctx, rec); err != nil {
		return fmt.Errorf("finalize turn: %w", err)
	}
	if len(placed) > 0 {
		kept, _ := engine.Diff(hand, placed)
		if err := s.store.SetHand(ctx, gameID, userID, kept); err != nil {
			return fmt.Errorf("update hand: %w", err)
		}
	}

	s.publish(ctx, types.TableUpdate{GameID: gameID, UpdateID: rec.UpdateID, Table: table})
	s.log.Info("turn committed",
		zap.String("game_id", gameID),
		zap.String("user_id", userID),
		zap.Int("turn", cur),
		zap.Int("tiles_placed", len(placed)))
	return nil
}

// Draw deals one tile from the deck into the caller's hand and marks the turn
// ongoing so play does not pass. Drawing is not a move: neither the meld
// validator nor the anti-cheat diff runs.
func (s *Service) Draw(ctx context.Context, gameID, userID string) (string, error) {
	defer s.lockGame(gameID)()

	cur, err := s.resolveOwnTurn(ctx, gameID, userID)
	if err != nil {
		return "", err
	}

	// A record for the current turn can only exist as ongoing (a finalized
	// one would already have advanced the turn). When there is none, carry
	// the previous table forward.
	latest, found, err := s.store.LatestTurn(ctx, gameID)
	if err != nil {
		return "", fmt.Errorf("latest turn: %w", err)
	}
	if !found || latest.Turn != cur {
		prev, err := s.store.TableAt(ctx, gameID, cur-1)
		if err != nil {
			return "", fmt.Errorf("previous table: %w", err)
		}
		rec := store.TurnRecord{GameID: gameID, Turn: cur, Table: prev, Ongoing: true}
		if err := s.store.UpsertTurn(ctx, rec); err != nil {
			return "", fmt.Errorf("open turn: %w", err)
		}
	}

	deck, remaining, err := s.store.Deck(ctx, gameID)
	if err != nil {
		return "", fmt.Errorf("deck: %w", err)
	}
	next, err := engine.NextDraw(deck, remaining)
	if err != nil {
		return "", err
	}
	hand, err := s.store.Hand(ctx, gameID, userID)
	if err != nil {
		return "", fmt.Errorf("hand: %w", err)
	}
	if err := s.store.DealTile(ctx, gameID, userID, remaining-1, append(hand, next)); err != nil {
		return "", fmt.Errorf("deal tile: %w", err)
	}

	s.log.Info("tile drawn",
		zap.String("game_id", gameID),
		zap.String("user_id", userID),
		zap.Int("turn", cur),
		zap.Int("remaining", remaining-1))
	return next, nil
}

// CreateGame builds the shuffled deck, deals opening hands and fixes seats in
// the order players are listed.
func (s *Service) CreateGame(ctx context.Context, gameID string, players []string) error {
	if len(players) < 2 {
		return ErrTooFewPlayers
	}
	deck := engine.NewDeck()
	if len(players)*engine.HandSize >= len(deck) {
		return ErrTooManyPlayers
	}

	seats := make([]turn.Seat, len(players))
	hands := make(map[string][]string, len(players))
	for i, p := range players {
		seats[i] = turn.Seat{UserID: p, Index: i}
		hands[p] = deck[i*engine.HandSize : (i+1)*engine.HandSize]
	}

	if err := s.store.CreateGame(ctx, store.NewGame{GameID: gameID, Deck: deck, Seats: seats, Hands: hands}); err != nil {
		return err
	}
	s.log.Info("game created",
		zap.String("game_id", gameID),
		zap.Int("players", len(players)))
	return nil
}

// HandFor returns the tiles a player still holds, excluding any already
// placed on the current table.
func (s *Service) HandFor(ctx context.Context, gameID, userID string) ([]string, error) {
	hand, err := s.store.Hand(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	table, err := s.store.LatestTable(ctx, gameID)
	if err != nil {
		return nil, err
	}
	held, _ := engine.Diff(hand, engine.TileIDs(table))
	return held, nil
}

// CurrentTable returns the latest persisted table snapshot.
func (s *Service) CurrentTable(ctx context.Context, gameID string) ([]engine.Tile, error) {
	return s.store.LatestTable(ctx, gameID)
}

// resolveOwnTurn resolves the current turn and checks the caller owns it.
func (s *Service) resolveOwnTurn(ctx context.Context, gameID, userID string) (int, error) {
	cur, err := turn.Current(ctx, s.store, gameID)
	if err != nil {
		return 0, fmt.Errorf("resolve turn: %w", err)
	}
	ok, err := turn.IsPlayersTurn(ctx, s.store, gameID, userID, cur)
	if err != nil {
		return 0, fmt.Errorf("check turn owner: %w", err)
	}
	if !ok {
		return 0, ErrNotYourTurn
	}
	return cur, nil
}

// publish is best effort: the write already landed, so a feed failure only
// costs viewers a refresh.
func (s *Service) publish(ctx context.Context, upd types.TableUpdate) {
	if err := s.feed.Publish(ctx, upd); err != nil {
		s.log.Warn("feed publish failed",
			zap.String("game_id", upd.GameID),
			zap.Error(err))
	}
}
