package harvest

import (
	"strconv"
	"strings"
)

// parseOwners splits SteamSpy's "5,000,000 .. 10,000,000" owners band
// into its bounds. Both returns are nil when the field does not parse
// as a two-sided range; a half-broken band never yields one bound.
func parseOwners(raw string) (min, max *int64) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	parts := strings.Split(cleaned, "..")
	if len(parts) != 2 {
		return nil, nil
	}
	lo, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return nil, nil
	}
	hi, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return nil, nil
	}
	return &lo, &hi
}
