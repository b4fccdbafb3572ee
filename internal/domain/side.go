package domain

import (
	"fmt"
	"strings"
)

// Side is one outcome of a binary market.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// ParseSide accepts "yes"/"no" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideYes:
		return SideYes, nil
	case SideNo:
		return SideNo, nil
	}
	return "", fmt.Errorf("%w: side %q", ErrInvalidArgument, s)
}

// PositionType is the Move struct name of the position token for the side.
func (s Side) PositionType() string {
	if s == SideNo {
		return "No"
	}
	return "Yes"
}
