// Package client keeps one player's optimistic view of a game table in sync
// with the server. Local edits apply immediately and go out tagged with a
// unique update id; the broadcast feed echoes every write back, and echoes of
// this client's own writes are suppressed so they cannot clobber newer local
// state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkarls/rummikub-backend/internal/engine"
	"github.com/pkarls/rummikub-backend/pkg/types"
)

const (
	// maxPending bounds the reconciliation queue; if broadcasts get lost the
	// oldest entries are evicted rather than growing forever.
	maxPending = 64
	pendingTTL = 30 * time.Second

	handColumns = 10
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrDeckExhausted = errors.New("deck exhausted")
)

type pendingUpdate struct {
	id     string
	sentAt time.Time
}

type Client struct {
	baseURL string
	token   string
	gameID  string
	http    *http.Client
	now     func() time.Time

	mu      sync.Mutex
	table   []engine.Tile
	hand    []engine.Tile
	pending []pendingUpdate
}

func New(baseURL, token, gameID string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		gameID:  gameID,
		http:    &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

// Table returns the locally rendered table.
func (c *Client) Table() []engine.Tile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.table)
}

// Hand returns the locally rendered hand.
func (c *Client) Hand() []engine.Tile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.hand)
}

// Load fetches the hand and the current table concurrently and lays the hand
// out on a private grid.
func (c *Client) Load(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var resp types.HandResponse
		if err := c.get(ctx, "/hand", &resp); err != nil {
			return err
		}
		hand := make([]engine.Tile, 0, len(resp.Tiles))
		for i, id := range resp.Tiles {
			tile, err := engine.ParseTile(id)
			if err != nil {
				return fmt.Errorf("hand tile: %w", err)
			}
			tile.Position = engine.Position{X: i % handColumns, Y: i / handColumns}
			hand = append(hand, tile)
		}
		c.mu.Lock()
		c.hand = hand
		c.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		var resp types.TableResponse
		if err := c.get(ctx, "/table", &resp); err != nil {
			return err
		}
		c.mu.Lock()
		c.table = resp.Table
		c.mu.Unlock()
		return nil
	})
	return g.Wait()
}

// EditTable applies a table edit locally right away, then sends it to the
// server as a non-finalizing update tagged with a fresh update id. Send
// failures are returned to the caller; the optimistic local state stays.
func (c *Client) EditTable(ctx context.Context, table []engine.Tile) error {
	id := uuid.NewString()
	c.mu.Lock()
	c.table = slices.Clone(table)
	c.remember(pendingUpdate{id: id, sentAt: c.now()})
	c.mu.Unlock()

	return c.post(ctx, "/update_table", types.UpdateTableRequest{
		GameID:   c.gameID,
		UpdateID: id,
		Table:    table,
	})
}

// Commit ends the turn with the given table.
func (c *Client) Commit(ctx context.Context, table []engine.Tile) error {
	return c.post(ctx, "/commit", types.CommitRequest{GameID: c.gameID, Table: table})
}

// Draw takes one tile from the deck. The refreshed hand arrives via Load.
func (c *Client) Draw(ctx context.Context) error {
	return c.post(ctx, "/draw", types.DrawRequest{GameID: c.gameID})
}

// ApplyBroadcast reconciles one feed message. An echo of this client's own
// write acknowledges its pending entry and is otherwise ignored; anything
// else replaces the local table. Reports whether the table changed.
func (c *Client) ApplyBroadcast(upd types.TableUpdate) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.pending {
		if p.id == upd.UpdateID {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return false
		}
	}
	c.table = upd.Table
	return true
}

// Listen dials the game's feed endpoint and reconciles broadcasts until ctx
// ends. onChange, when non-nil, runs after every accepted remote update.
func (c *Client) Listen(ctx context.Context, feedURL string, onChange func([]engine.Tile)) error {
	conn, _, err := websocket.Dial(ctx, feedURL, nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		var upd types.TableUpdate
		if err := json.Unmarshal(data, &upd); err != nil {
			continue
		}
		if c.ApplyBroadcast(upd) && onChange != nil {
			onChange(c.Table())
		}
	}
}

// remember appends a pending update, evicting expired entries and capping the
// queue. Callers hold mu.
func (c *Client) remember(p pendingUpdate) {
	kept := c.pending[:0]
	for _, q := range c.pending {
		if c.now().Sub(q.sentAt) < pendingTTL {
			kept = append(kept, q)
		}
	}
	c.pending = append(kept, p)
	if len(c.pending) > maxPending {
		c.pending = slices.Clone(c.pending[len(c.pending)-maxPending:])
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gameURL(path), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gameURL(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrDeckExhausted
	default:
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) gameURL(path string) string {
	return c.baseURL + "/game/" + c.gameID + path
}
