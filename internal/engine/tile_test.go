package engine

import (
	"errors"
	"testing"
)

func TestParseTile(t *testing.T) {
	cases := []struct {
		name string
		id   string
		want Tile
	}{
		{
			name: "red five",
			id:   "R5-1",
			want: Tile{ID: "R5-1", Color: ColorRed, Value: 5},
		},
		{
			name: "yellow thirteen second copy",
			id:   "Y13-2",
			want: Tile{ID: "Y13-2", Color: ColorYellow, Value: 13},
		},
		{
			name: "black one",
			id:   "K1-1",
			want: Tile{ID: "K1-1", Color: ColorBlack, Value: 1},
		},
		{
			name: "blue seven",
			id:   "B7-2",
			want: Tile{ID: "B7-2", Color: ColorBlue, Value: 7},
		},
		{
			name: "joker",
			id:   "J-1",
			want: Tile{ID: "J-1", Joker: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTile(tc.id)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseTile_Malformed(t *testing.T) {
	cases := []struct {
		name string
		id   string
	}{
		{name: "empty", id: ""},
		{name: "unknown color marker", id: "X5-1"},
		{name: "missing value", id: "R-1"},
		{name: "non numeric value", id: "Rx-1"},
		{name: "missing suffix delimiter", id: "R5"},
		{name: "zero value", id: "R0-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTile(tc.id)
			if !errors.Is(err, ErrParseTile) {
				t.Fatalf("want ErrParseTile, got %v", err)
			}
		})
	}
}

func TestParseTile_RoundTripsDeck(t *testing.T) {
	for _, id := range NewDeck() {
		tile, err := ParseTile(id)
		if err != nil {
			t.Fatalf("deck tile %q does not parse: %v", id, err)
		}
		if tile.ID != id {
			t.Fatalf("id changed during decode: %q -> %q", id, tile.ID)
		}
		if !tile.Joker && (tile.Value < 1 || tile.Value > MaxValue) {
			t.Fatalf("tile %q decoded out-of-range value %d", id, tile.Value)
		}
	}
}
