package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pkarls/rummikub-backend/internal/auth"
	"github.com/pkarls/rummikub-backend/internal/engine"
	"github.com/pkarls/rummikub-backend/internal/play"
	"github.com/pkarls/rummikub-backend/pkg/types"
)

type stubService struct {
	updateErr error
	commitErr error
	drawErr   error
	createErr error

	lastUserID   string
	lastUpdateID string
	lastTable    []engine.Tile
	hand         []string
	table        []engine.Tile
}

func (s *stubService) CreateGame(ctx context.Context, gameID string, players []string) error {
	return s.createErr
}

func (s *stubService) UpdateTable(ctx context.Context, gameID, userID, updateID string, table []engine.Tile) error {
	s.lastUserID, s.lastUpdateID, s.lastTable = userID, updateID, table
	return s.updateErr
}

func (s *stubService) Commit(ctx context.Context, gameID, userID string, table []engine.Tile) error {
	s.lastUserID, s.lastTable = userID, table
	return s.commitErr
}

func (s *stubService) Draw(ctx context.Context, gameID, userID string) (string, error) {
	s.lastUserID = userID
	return "R1-1", s.drawErr
}

func (s *stubService) HandFor(ctx context.Context, gameID, userID string) ([]string, error) {
	return s.hand, nil
}

func (s *stubService) CurrentTable(ctx context.Context, gameID string) ([]engine.Tile, error) {
	return s.table, nil
}

type stubFeed struct{}

func (stubFeed) Subscribe(ctx context.Context, gameID string) (<-chan types.TableUpdate, func()) {
	ch := make(chan types.TableUpdate)
	close(ch)
	return ch, func() {}
}

func newTestRouter(svc *stubService) http.Handler {
	verifier := auth.StaticVerifier{"tok-alice": {ID: "alice"}}
	return SetupRoutes(svc, stubFeed{}, verifier, zap.NewNop())
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestUpdateTableHandler(t *testing.T) {
	validBody := types.UpdateTableRequest{
		GameID:   "g1",
		UpdateID: "a2b48b42-02c1-4e27-9d1e-3a6e04d1f1aa",
		Table:    []engine.Tile{{ID: "R5-1", Position: engine.Position{X: 0, Y: 0}}},
	}

	t.Run("happy path", func(t *testing.T) {
		svc := &stubService{}
		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/game/g1/update_table", "tok-alice", validBody)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "alice", svc.lastUserID)
		require.Equal(t, validBody.UpdateID, svc.lastUpdateID)
		// Color and value come from the id, not from the payload.
		require.Equal(t, engine.ColorRed, svc.lastTable[0].Color)
		require.Equal(t, 5, svc.lastTable[0].Value)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := doJSON(t, newTestRouter(&stubService{}), http.MethodPost, "/game/g1/update_table", "", validBody)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("not your turn", func(t *testing.T) {
		svc := &stubService{updateErr: play.ErrNotYourTurn}
		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/game/g1/update_table", "tok-alice", validBody)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad update id", func(t *testing.T) {
		body := validBody
		body.UpdateID = "not-a-uuid"
		rec := doJSON(t, newTestRouter(&stubService{}), http.MethodPost, "/game/g1/update_table", "tok-alice", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad tile id", func(t *testing.T) {
		body := validBody
		body.Table = []engine.Tile{{ID: "X9-1"}}
		rec := doJSON(t, newTestRouter(&stubService{}), http.MethodPost, "/game/g1/update_table", "tok-alice", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("game id mismatch", func(t *testing.T) {
		body := validBody
		body.GameID = "g2"
		rec := doJSON(t, newTestRouter(&stubService{}), http.MethodPost, "/game/g1/update_table", "tok-alice", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCommitHandler(t *testing.T) {
	body := types.CommitRequest{
		GameID: "g1",
		Table:  []engine.Tile{{ID: "R5-1"}},
	}

	t.Run("happy path", func(t *testing.T) {
		svc := &stubService{}
		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/game/g1/commit", "tok-alice", body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Body.String())
	})

	t.Run("invalid meld layout is forbidden", func(t *testing.T) {
		svc := &stubService{commitErr: engine.ErrInvalidTable}
		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/game/g1/commit", "tok-alice", body)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("anti-cheat violation is forbidden", func(t *testing.T) {
		svc := &stubService{commitErr: play.ErrTileNotHeld}
		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/game/g1/commit", "tok-alice", body)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestDrawHandler(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		svc := &stubService{}
		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/game/g1/draw", "tok-alice", types.DrawRequest{GameID: "g1"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "alice", svc.lastUserID)
	})

	t.Run("deck exhausted conflicts", func(t *testing.T) {
		svc := &stubService{drawErr: engine.ErrDeckExhausted}
		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/game/g1/draw", "tok-alice", types.DrawRequest{GameID: "g1"})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("empty body is accepted", func(t *testing.T) {
		svc := &stubService{}
		rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/game/g1/draw", "tok-alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGetHandHandler(t *testing.T) {
	svc := &stubService{hand: []string{"R5-1", "J-1"}}
	rec := doJSON(t, newTestRouter(svc), http.MethodGet, "/game/g1/hand", "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.HandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, []string{"R5-1", "J-1"}, resp.Tiles)
}

func TestGetTableHandler_EmptyGame(t *testing.T) {
	rec := doJSON(t, newTestRouter(&stubService{}), http.MethodGet, "/game/g1/table", "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"table": []}`, rec.Body.String())
}

func TestCreateGameHandler(t *testing.T) {
	svc := &stubService{}
	rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/games", "tok-alice", types.CreateGameRequest{Players: []string{"alice", "bob"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp types.CreateGameResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.GameID)
}

func TestHealthz(t *testing.T) {
	rec := doJSON(t, newTestRouter(&stubService{}), http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
