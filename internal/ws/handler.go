// Package ws streams a game's table updates to websocket viewers.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pkarls/rummikub-backend/pkg/types"
)

// Subscriber is the feed surface the relay consumes.
type Subscriber interface {
	Subscribe(ctx context.Context, gameID string) (<-chan types.TableUpdate, func())
}

// Handler relays one game's change feed to a single viewer connection.
func Handler(sub Subscriber, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "id")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		updates, stop := sub.Subscribe(ctx, gameID)
		defer stop()

		// The socket is one-way. Reads are discarded; their only job is to
		// notice the viewer going away and tear the relay down.
		go func() {
			for {
				if _, _, err := conn.Read(ctx); err != nil {
					cancel()
					return
				}
			}
		}()

		for upd := range updates {
			payload, err := json.Marshal(upd)
			if err != nil {
				log.Warn("encode broadcast", zap.String("game_id", gameID), zap.Error(err))
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, 3*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}
