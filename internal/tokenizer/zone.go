package tokenizer

import "fmt"

// BudgetZone represents how full a token budget is.
type BudgetZone int

const (
	ZoneGreen  BudgetZone = iota // 0–60%
	ZoneYellow                   // 60–80%
	ZoneOrange                   // 80–90%
	ZoneRed                      // 90%+
)

// Thresholds are the percentages at which each zone starts.
type Thresholds struct {
	YellowPct int `json:"yellow_pct"`
	OrangePct int `json:"orange_pct"`
	RedPct    int `json:"red_pct"`
}

// DefaultThresholds are 60/80/90.
var DefaultThresholds = Thresholds{YellowPct: 60, OrangePct: 80, RedPct: 90}

// String returns a human-readable label for the zone.
func (z BudgetZone) String() string {
	switch z {
	case ZoneYellow:
		return "YELLOW"
	case ZoneOrange:
		return "ORANGE"
	case ZoneRed:
		return "RED"
	default:
		return "GREEN"
	}
}

// MarshalText lets zones serialize as their label.
func (z BudgetZone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// UnmarshalText parses a zone label.
func (z *BudgetZone) UnmarshalText(b []byte) error {
	switch string(b) {
	case "GREEN":
		*z = ZoneGreen
	case "YELLOW":
		*z = ZoneYellow
	case "ORANGE":
		*z = ZoneOrange
	case "RED":
		*z = ZoneRed
	default:
		return fmt.Errorf("tokenizer: unknown budget zone %q", b)
	}
	return nil
}

// ZoneFor classifies used out of limit. A zero limit is always GREEN.
func ZoneFor(used, limit int, th Thresholds) BudgetZone {
	if limit <= 0 {
		return ZoneGreen
	}
	pct := (used * 100) / limit
	switch {
	case pct >= th.RedPct:
		return ZoneRed
	case pct >= th.OrangePct:
		return ZoneOrange
	case pct >= th.YellowPct:
		return ZoneYellow
	default:
		return ZoneGreen
	}
}
