package sensordata

import "time"

// Range is a history window token accepted by the history query.
type Range string

const (
	Range1h  Range = "1h"
	Range6h  Range = "6h"
	Range24h Range = "24h"
	Range7d  Range = "7d"

	DefaultRange = Range1h
)

var rangeHours = map[Range]int{
	Range1h:  1,
	Range6h:  6,
	Range24h: 24,
	Range7d:  168,
}

// Ranges lists the accepted tokens, shortest first.
func Ranges() []Range {
	return []Range{Range1h, Range6h, Range24h, Range7d}
}

// ParseRange maps a token to its window. Unknown or empty tokens fall back to
// DefaultRange with ok=false.
func ParseRange(token string) (Range, bool) {
	r := Range(token)
	if _, ok := rangeHours[r]; ok {
		return r, true
	}
	return DefaultRange, false
}

func (r Range) Hours() int {
	if h, ok := rangeHours[r]; ok {
		return h
	}
	return rangeHours[DefaultRange]
}

func (r Range) Duration() time.Duration {
	return time.Duration(r.Hours()) * time.Hour
}
