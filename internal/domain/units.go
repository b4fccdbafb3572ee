package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

const (
	// PriceDecimals is the fixed-point scale of contract prices (1e9).
	PriceDecimals = 9
	// USDCDecimals is the number of decimals of the USDC coin.
	USDCDecimals = 6
)

var unitsCtx = apd.BaseContext.WithPrecision(40)

// FormatUnits renders a fixed-point integer as a decimal string with trailing
// zeros removed, e.g. FormatUnits(500000000, 9) == "0.5".
func FormatUnits(v uint64, decimals int32) string {
	d, _, err := apd.NewFromString(strconv.FormatUint(v, 10))
	if err != nil {
		return strconv.FormatUint(v, 10)
	}
	d.Exponent -= decimals
	d.Reduce(d)
	return d.Text('f')
}

// ParseUnits converts a decimal string to a fixed-point integer with the
// given number of decimals. More precision than decimals allows is rejected.
func ParseUnits(s string, decimals int32) (uint64, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil || d.Form != apd.Finite || d.Negative {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalidArgument, s)
	}
	d.Exponent += decimals

	var whole apd.Decimal
	cond, err := unitsCtx.RoundToIntegralExact(&whole, d)
	if err != nil || cond.Inexact() {
		return 0, fmt.Errorf("%w: amount %q has more than %d decimals", ErrInvalidArgument, s, decimals)
	}
	n, err := whole.Int64()
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: amount %q out of range", ErrInvalidArgument, s)
	}
	return uint64(n), nil
}

// TimeLeft renders the time until end the way market cards show it:
// "Ended", "3d 4h", "5h 12m" or "42m".
func TimeLeft(end, now time.Time) string {
	d := end.Sub(now)
	if d <= 0 {
		return "Ended"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
