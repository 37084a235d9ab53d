package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// OddsBookmaker is one bookmaker's market for a match
type OddsBookmaker struct {
	ID            int    `db:"id"`
	MatchID       int    `db:"match_id"`
	BookmakerID   int    `db:"bookmaker_id"`
	BookmakerName string `db:"bookmaker_name"`
	BetType       string `db:"bet_type"`

	Values []*OddsValue

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// OddsValue is a single priced outcome of a bookmaker market
type OddsValue struct {
	ID          int     `db:"id"`
	BookmakerID int     `db:"bookmaker_id"`
	Outcome     string  `db:"outcome"`
	Odd         float64 `db:"odd"`

	CreatedAt time.Time `db:"created_at"`
}

// OddsInput is one entry of the /odds endpoint
type OddsInput struct {
	Fixture    OddsFixture      `json:"fixture"`
	Update     string           `json:"update"`
	Bookmakers []BookmakerInput `json:"bookmakers"`
}

// OddsFixture identifies the fixture the odds belong to
type OddsFixture struct {
	ID int `json:"id"`
}

// BookmakerInput is one bookmaker of an /odds entry
type BookmakerInput struct {
	ID   int        `json:"id"`
	Name string     `json:"name"`
	Bets []BetInput `json:"bets"`
}

// BetInput is one market offered by a bookmaker
type BetInput struct {
	ID     int             `json:"id"`
	Name   string          `json:"name"`
	Values []BetValueInput `json:"values"`
}

// BetValueInput is one priced outcome, e.g. {"value": "Home", "odd": "1.85"}
type BetValueInput struct {
	Value FlexString `json:"value"`
	Odd   string     `json:"odd"`
}

// FlexString accepts a JSON string or number
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	*f = FlexString(data)
	return nil
}

// Validate checks the fields the odds sync depends on
func (oi *OddsInput) Validate() error {
	if oi.Fixture.ID <= 0 {
		return fmt.Errorf("fixture.id missing")
	}
	for _, b := range oi.Bookmakers {
		if b.ID <= 0 || b.Name == "" {
			return fmt.Errorf("bookmaker id/name missing for fixture %d", oi.Fixture.ID)
		}
		for _, bet := range b.Bets {
			for _, v := range bet.Values {
				if _, err := strconv.ParseFloat(v.Odd, 64); err != nil {
					return fmt.Errorf("odd %q invalid for bookmaker %d bet %q: %w", v.Odd, b.ID, bet.Name, err)
				}
			}
		}
	}
	return nil
}

// ToBookmakers flattens the entry into one OddsBookmaker per (bookmaker, bet).
// When betTypes is non-empty only those bet names are kept.
func (oi *OddsInput) ToBookmakers(matchID int, betTypes []string) []*OddsBookmaker {
	keep := make(map[string]bool, len(betTypes))
	for _, bt := range betTypes {
		keep[bt] = true
	}

	var out []*OddsBookmaker
	for _, b := range oi.Bookmakers {
		for _, bet := range b.Bets {
			if len(keep) > 0 && !keep[bet.Name] {
				continue
			}
			bm := &OddsBookmaker{
				MatchID:       matchID,
				BookmakerID:   b.ID,
				BookmakerName: b.Name,
				BetType:       bet.Name,
			}
			for _, v := range bet.Values {
				odd, err := strconv.ParseFloat(v.Odd, 64)
				if err != nil {
					continue
				}
				bm.Values = append(bm.Values, &OddsValue{Outcome: string(v.Value), Odd: odd})
			}
			out = append(out, bm)
		}
	}
	return out
}
