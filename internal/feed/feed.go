// Package feed fans table updates out to every viewer of a game over one
// redis channel per game.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pkarls/rummikub-backend/pkg/types"
)

type Feed struct {
	rdb *redis.Client
	log *zap.Logger
}

func New(rdb *redis.Client, log *zap.Logger) *Feed {
	return &Feed{rdb: rdb, log: log}
}

// Channel names the redis pub/sub channel carrying one game's updates.
func Channel(gameID string) string { return "game:" + gameID }

func (f *Feed) Publish(ctx context.Context, upd types.TableUpdate) error {
	payload, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("encode table update: %w", err)
	}
	if err := f.rdb.Publish(ctx, Channel(upd.GameID), payload).Err(); err != nil {
		return fmt.Errorf("publish table update: %w", err)
	}
	return nil
}

// Subscribe delivers broadcasts for one game until ctx is cancelled or the
// returned stop func runs. Either way the pubsub connection is closed, which
// ends the relay and closes the returned channel even when the game is quiet.
func (f *Feed) Subscribe(ctx context.Context, gameID string) (<-chan types.TableUpdate, func()) {
	pubsub := f.rdb.Subscribe(ctx, Channel(gameID))
	// go-redis uses ctx for the SUBSCRIBE command only, not for the
	// subscription's lifetime. Closing the pubsub is what unblocks the relay.
	go func() {
		<-ctx.Done()
		_ = pubsub.Close()
	}()
	out := make(chan types.TableUpdate, 8)
	go f.relay(ctx, gameID, pubsub.Channel(), out)
	return out, func() { _ = pubsub.Close() }
}

// relay decodes raw pubsub messages onto out until msgs closes or ctx ends.
// Malformed payloads are dropped, not fatal.
func (f *Feed) relay(ctx context.Context, gameID string, msgs <-chan *redis.Message, out chan<- types.TableUpdate) {
	defer close(out)
	for msg := range msgs {
		var upd types.TableUpdate
		if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
			f.log.Warn("dropping malformed feed payload",
				zap.String("game_id", gameID),
				zap.Error(err))
			continue
		}
		select {
		case out <- upd:
		case <-ctx.Done():
			return
		}
	}
}
