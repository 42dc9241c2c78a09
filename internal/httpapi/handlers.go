package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pkarls/rummikub-backend/internal/auth"
	"github.com/pkarls/rummikub-backend/internal/engine"
	"github.com/pkarls/rummikub-backend/internal/play"
	"github.com/pkarls/rummikub-backend/internal/store"
	"github.com/pkarls/rummikub-backend/pkg/types"
)

// Service is the game surface the handlers expose.
type Service interface {
	CreateGame(ctx context.Context, gameID string, players []string) error
	UpdateTable(ctx context.Context, gameID, userID, updateID string, table []engine.Tile) error
	Commit(ctx context.Context, gameID, userID string, table []engine.Tile) error
	Draw(ctx context.Context, gameID, userID string) (string, error)
	HandFor(ctx context.Context, gameID, userID string) ([]string, error)
	CurrentTable(ctx context.Context, gameID string) ([]engine.Tile, error)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeTable rebuilds each payload tile from its id, so forged color/value/
// joker fields never reach the rules engine. Only the position is taken from
// the caller.
func decodeTable(tiles []engine.Tile) ([]engine.Tile, error) {
	out := make([]engine.Tile, 0, len(tiles))
	for _, t := range tiles {
		parsed, err := engine.ParseTile(t.ID)
		if err != nil {
			return nil, err
		}
		parsed.Position = t.Position
		out = append(out, parsed)
	}
	return out, nil
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, play.ErrNotYourTurn):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, engine.ErrInvalidTable), errors.Is(err, play.ErrTileNotHeld):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, engine.ErrDeckExhausted):
		http.Error(w, "deck exhausted", http.StatusConflict)
	case errors.Is(err, store.ErrGameExists):
		http.Error(w, "game already exists", http.StatusConflict)
	case errors.Is(err, store.ErrGameNotFound):
		http.Error(w, "game not found", http.StatusNotFound)
	case errors.Is(err, play.ErrTooFewPlayers), errors.Is(err, play.ErrTooManyPlayers):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error("internal error", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func CreateGame(svc Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body types.CreateGameRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		gameID := uuid.NewString()
		if err := svc.CreateGame(r.Context(), gameID, body.Players); err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.CreateGameResponse{GameID: gameID})
	}
}

func GetHand(svc Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFrom(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		hand, err := svc.HandFor(r.Context(), chi.URLParam(r, "id"), user.ID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		if hand == nil {
			hand = []string{}
		}
		writeJSON(w, http.StatusOK, types.HandResponse{Tiles: hand})
	}
}

func GetTable(svc Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := svc.CurrentTable(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		if table == nil {
			table = []engine.Tile{}
		}
		writeJSON(w, http.StatusOK, types.TableResponse{Table: table})
	}
}

func UpdateTable(svc Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFrom(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var body types.UpdateTableRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		gameID := chi.URLParam(r, "id")
		if body.GameID != "" && body.GameID != gameID {
			http.Error(w, "game id mismatch", http.StatusBadRequest)
			return
		}
		if _, err := uuid.Parse(body.UpdateID); err != nil {
			http.Error(w, "bad update id", http.StatusBadRequest)
			return
		}
		table, err := decodeTable(body.Table)
		if err != nil {
			http.Error(w, "bad tile id", http.StatusBadRequest)
			return
		}
		if err := svc.UpdateTable(r.Context(), gameID, user.ID, body.UpdateID, table); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func Commit(svc Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFrom(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var body types.CommitRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		gameID := chi.URLParam(r, "id")
		if body.GameID != "" && body.GameID != gameID {
			http.Error(w, "game id mismatch", http.StatusBadRequest)
			return
		}
		table, err := decodeTable(body.Table)
		if err != nil {
			http.Error(w, "bad tile id", http.StatusBadRequest)
			return
		}
		if err := svc.Commit(r.Context(), gameID, user.ID, table); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func Draw(svc Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFrom(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		// Body is just {gameId}; tolerate an empty one since the path carries
		// the id as well.
		var body types.DrawRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		gameID := chi.URLParam(r, "id")
		if body.GameID != "" && body.GameID != gameID {
			http.Error(w, "game id mismatch", http.StatusBadRequest)
			return
		}
		if _, err := svc.Draw(r.Context(), gameID, user.ID); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
