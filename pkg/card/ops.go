package card

import (
	"encoding/json"
	"fmt"
)

// Decode parses a card payload. The payload must be a JSON array and, when
// non-empty, its first element must have a numeric id and string title and
// domain. Only the first record is inspected.
func Decode(data []byte) ([]Card, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, fmt.Errorf("%w: payload is not an array", ErrMalformedData)
	}

	if len(raw) > 0 {
		var sample map[string]any
		if err := json.Unmarshal(raw[0], &sample); err != nil {
			return nil, fmt.Errorf("%w: first record is not an object", ErrMalformedData)
		}
		if _, ok := sample["id"].(float64); !ok {
			return nil, fmt.Errorf("%w: first record has no numeric id", ErrMalformedData)
		}
		if _, ok := sample["title"].(string); !ok {
			return nil, fmt.Errorf("%w: first record has no title", ErrMalformedData)
		}
		if _, ok := sample["domain"].(string); !ok {
			return nil, fmt.Errorf("%w: first record has no domain", ErrMalformedData)
		}
	}

	cards := make([]Card, 0, len(raw))
	for _, r := range raw {
		cards = append(cards, decodeRecord(r))
	}
	return cards, nil
}

// decodeRecord reads the known fields of a record. Missing or mistyped
// fields are left zero; numeric fields also accept numeric strings.
func decodeRecord(r json.RawMessage) Card {
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(r, &fields)

	var c Card
	if id := number(fields["id"]); id != nil {
		c.ID = int(*id)
	}
	c.Title = text(fields["title"])
	c.Description = text(fields["description"])
	c.Domain = text(fields["domain"])
	if x := number(fields["x"]); x != nil {
		c.X = *x
	}
	if y := number(fields["y"]); y != nil {
		c.Y = *y
	}
	return c
}

func text(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// Merge returns a copy of cards where every card with a saved position takes
// it, coordinate by coordinate. Saved entries for unknown ids are ignored.
func Merge(cards []Card, saved SavedPositions) []Card {
	out := make([]Card, len(cards))
	for i, c := range cards {
		if pos, ok := saved[c.ID]; ok {
			if pos.X != nil {
				c.X = *pos.X
			}
			if pos.Y != nil {
				c.Y = *pos.Y
			}
		}
		out[i] = c
	}
	return out
}

// Project extracts the id → position mapping of cards.
func Project(cards []Card) Positions {
	out := make(Positions, len(cards))
	for _, c := range cards {
		out[c.ID] = c.Position()
	}
	return out
}

// Domains returns the distinct domains of cards in first-occurrence order.
func Domains(cards []Card) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range cards {
		if _, ok := seen[c.Domain]; ok {
			continue
		}
		seen[c.Domain] = struct{}{}
		out = append(out, c.Domain)
	}
	return out
}

// Stats counts cards per domain. Every domain yields a stat, including
// domains with no cards.
func Stats(domains []string, cards []Card) []DomainStat {
	counts := make(map[string]int, len(domains))
	for _, c := range cards {
		counts[c.Domain]++
	}
	out := make([]DomainStat, 0, len(domains))
	for _, d := range domains {
		out = append(out, DomainStat{Name: d, Count: counts[d]})
	}
	return out
}

// Layout projects cards onto export records.
func Layout(cards []Card) []LayoutEntry {
	out := make([]LayoutEntry, 0, len(cards))
	for _, c := range cards {
		out = append(out, LayoutEntry{ID: c.ID, Title: c.Title, X: c.X, Y: c.Y})
	}
	return out
}

// Clone returns an independent copy of cards.
func Clone(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
