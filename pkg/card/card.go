// Package card defines the board's data model: cards, persisted positions,
// derived domain statistics and the export layout record.
package card

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedData is returned when a card payload is not an array or its
// first record does not carry the required fields.
var ErrMalformedData = errors.New("malformed card data")

// Card is a single content card placed on the board.
type Card struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Domain      string  `json:"domain"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// Position is a card's location in world space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position returns the card's current location.
func (c Card) Position() Position { return Position{X: c.X, Y: c.Y} }

// Positions maps card ids to saved locations. It is encoded as an object
// keyed by the decimal id, e.g. {"1":{"x":50,"y":60}}.
type Positions map[int]Position

// MarshalJSON encodes the map with string keys.
func (p Positions) MarshalJSON() ([]byte, error) {
	out := make(map[string]Position, len(p))
	for id, pos := range p {
		out[strconv.Itoa(id)] = pos
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an id-keyed object. Entries whose key is not an
// integer are dropped.
func (p *Positions) UnmarshalJSON(data []byte) error {
	var raw map[string]Position
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("positions: expected object, got %s", data)
	}
	out := make(Positions, len(raw))
	for k, pos := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[id] = pos
	}
	*p = out
	return nil
}

// SavedPosition is a persisted location as read back from storage. A nil
// coordinate was absent or unusable and leaves the card's own value in place.
type SavedPosition struct {
	X *float64
	Y *float64
}

// SavedPositions maps card ids to persisted locations.
type SavedPositions map[int]SavedPosition

// UnmarshalJSON decodes an id-keyed object leniently. Entries whose key is not
// an integer or whose value is not an object are dropped; coordinates that are
// not numbers are treated as absent.
func (s *SavedPositions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("positions: expected object, got %s", data)
	}
	out := make(SavedPositions, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(v, &fields); err != nil || fields == nil {
			continue
		}
		out[id] = SavedPosition{X: number(fields["x"]), Y: number(fields["y"])}
	}
	*s = out
	return nil
}

// number reads a finite JSON number, or a string holding one. Anything else
// yields nil.
func number(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// DomainStat is the number of cards in a domain.
type DomainStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// LayoutEntry is one record of an exported layout.
type LayoutEntry struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}
