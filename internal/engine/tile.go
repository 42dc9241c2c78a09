package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrParseTile = errors.New("malformed tile id")

type Color int

const (
	ColorYellow Color = iota
	ColorBlack
	ColorBlue
	ColorRed
)

func (c Color) String() string {
	switch c {
	case ColorYellow:
		return "yellow"
	case ColorBlack:
		return "black"
	case ColorBlue:
		return "blue"
	case ColorRed:
		return "red"
	default:
		return "unknown"
	}
}

// colorMarkers maps the leading character of a tile id to its color.
var colorMarkers = map[byte]Color{
	'Y': ColorYellow,
	'K': ColorBlack,
	'B': ColorBlue,
	'R': ColorRed,
}

// Position is an integer grid coordinate on the shared table.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Tile is one physical piece. The id is fixed for the lifetime of a game;
// only the position changes, and only while the tile is on the table. Jokers
// carry no color or value.
type Tile struct {
	ID       string   `json:"id"`
	Color    Color    `json:"color"`
	Value    int      `json:"value"`
	Joker    bool     `json:"isJoker,omitempty"`
	Position Position `json:"position"`
}

// ParseTile decodes a persisted tile identifier. Ids look like "R5-1": a
// color marker, the face value, and a uniqueness suffix after the dash so two
// physical copies of the same tile stay distinct. A leading 'J' denotes a
// joker. The id itself is the encoded form, so there is no inverse.
func ParseTile(id string) (Tile, error) {
	if id == "" {
		return Tile{}, fmt.Errorf("%w: empty id", ErrParseTile)
	}
	if id[0] == 'J' {
		return Tile{ID: id, Joker: true}, nil
	}
	color, ok := colorMarkers[id[0]]
	if !ok {
		return Tile{}, fmt.Errorf("%w: unknown color marker in %q", ErrParseTile, id)
	}
	sep := strings.IndexByte(id, '-')
	if sep < 2 {
		return Tile{}, fmt.Errorf("%w: missing uniqueness suffix in %q", ErrParseTile, id)
	}
	value, err := strconv.Atoi(id[1:sep])
	if err != nil || value < 1 {
		return Tile{}, fmt.Errorf("%w: bad value in %q", ErrParseTile, id)
	}
	return Tile{ID: id, Color: color, Value: value}, nil
}

// TileIDs projects tiles onto their identifiers.
func TileIDs(tiles []Tile) []string {
	ids := make([]string, len(tiles))
	for i, t := range tiles {
		ids[i] = t.ID
	}
	return ids
}
