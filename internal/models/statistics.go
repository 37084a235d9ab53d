package models

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TeamStatistics is one side's match statistics
type TeamStatistics struct {
	Possession      sql.NullFloat64 `db:"possession"`
	TotalPasses     sql.NullInt32   `db:"total_passes"`
	AccuratePasses  sql.NullInt32   `db:"accurate_passes"`
	PassesAccuracy  sql.NullFloat64 `db:"passes_accuracy"`
	ShotsTotal      sql.NullInt32   `db:"shots_total"`
	ShotsOnTarget   sql.NullInt32   `db:"shots_on_target"`
	ShotsOffTarget  sql.NullInt32   `db:"shots_off_target"`
	ShotsBlocked    sql.NullInt32   `db:"shots_blocked"`
	ShotsInsideBox  sql.NullInt32   `db:"shots_inside_box"`
	ShotsOutsideBox sql.NullInt32   `db:"shots_outside_box"`
	Corners         sql.NullInt32   `db:"corners"`
	Offsides        sql.NullInt32   `db:"offsides"`
	Fouls           sql.NullInt32   `db:"fouls"`
	YellowCards     sql.NullInt32   `db:"yellow_cards"`
	RedCards        sql.NullInt32   `db:"red_cards"`
	GoalkeeperSaves sql.NullInt32   `db:"goalkeeper_saves"`
}

// FixtureStatisticsInput is one team entry of the /fixtures/statistics endpoint
type FixtureStatisticsInput struct {
	Team       FixtureTeam      `json:"team"`
	Statistics []StatisticEntry `json:"statistics"`
}

// StatisticEntry is a single named statistic
type StatisticEntry struct {
	Type  string    `json:"type"`
	Value StatValue `json:"value"`
}

// StatValue accepts the API's mixed encodings: 12, "54%", or null
type StatValue struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (v *StatValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = StatValue{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := ParsePercent(s)
		if err != nil {
			return fmt.Errorf("invalid statistic value %q: %w", s, err)
		}
		*v = StatValue{Value: f, Valid: true}
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid statistic value %s: %w", data, err)
	}
	*v = StatValue{Value: f, Valid: true}
	return nil
}

func (v StatValue) nullInt32() sql.NullInt32 {
	if !v.Valid {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(v.Value), Valid: true}
}

func (v StatValue) nullFloat64() sql.NullFloat64 {
	if !v.Valid {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v.Value, Valid: true}
}

// Validate checks the fields the stats sync depends on
func (fs *FixtureStatisticsInput) Validate() error {
	if fs.Team.ID <= 0 {
		return fmt.Errorf("team.id missing")
	}
	return nil
}

// ToTeamStatistics maps the named statistic list onto TeamStatistics.
// Unknown statistic names are ignored.
func (fs *FixtureStatisticsInput) ToTeamStatistics() TeamStatistics {
	var ts TeamStatistics
	for _, e := range fs.Statistics {
		switch strings.ToLower(e.Type) {
		case "ball possession":
			ts.Possession = e.Value.nullFloat64()
		case "total passes":
			ts.TotalPasses = e.Value.nullInt32()
		case "passes accurate":
			ts.AccuratePasses = e.Value.nullInt32()
		case "passes %":
			ts.PassesAccuracy = e.Value.nullFloat64()
		case "total shots":
			ts.ShotsTotal = e.Value.nullInt32()
		case "shots on goal":
			ts.ShotsOnTarget = e.Value.nullInt32()
		case "shots off goal":
			ts.ShotsOffTarget = e.Value.nullInt32()
		case "blocked shots":
			ts.ShotsBlocked = e.Value.nullInt32()
		case "shots insidebox":
			ts.ShotsInsideBox = e.Value.nullInt32()
		case "shots outsidebox":
			ts.ShotsOutsideBox = e.Value.nullInt32()
		case "corner kicks":
			ts.Corners = e.Value.nullInt32()
		case "offsides":
			ts.Offsides = e.Value.nullInt32()
		case "fouls":
			ts.Fouls = e.Value.nullInt32()
		case "yellow cards":
			ts.YellowCards = e.Value.nullInt32()
		case "red cards":
			ts.RedCards = e.Value.nullInt32()
		case "goalkeeper saves":
			ts.GoalkeeperSaves = e.Value.nullInt32()
		}
	}
	return ts
}

// ParsePercent parses values such as "45%", "45", or " 12.5 % "
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return 0, fmt.Errorf("empty percentage")
	}
	return strconv.ParseFloat(s, 64)
}
