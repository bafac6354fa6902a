package attendee

import (
	"strings"

	"confagenda/internal/model"
)

// Canonical breakout group keys.
const (
	GroupDeliveryCircle1 = "delivery-circle-1"
	GroupDeliveryCircle2 = "delivery-circle-2"
	GroupDeliveryCircle3 = "delivery-circle-3"
	GroupManagement      = "management"
)

// DisplayName maps a breakout group key to the team name shown on pages.
// Unknown keys are returned unchanged.
func DisplayName(group string) string {
	switch group {
	case GroupDeliveryCircle1:
		return "Slavia"
	case GroupDeliveryCircle2:
		return "Sparta"
	case GroupDeliveryCircle3:
		return "Viktoria"
	case GroupManagement:
		return "Management"
	default:
		return group
	}
}

// RouteForTeam maps a team name (any case) to its breakout group key.
// "ajax" is a retired name for the third circle. Unknown names map to
// management.
func RouteForTeam(team string) string {
	switch strings.ToLower(team) {
	case "slavia":
		return GroupDeliveryCircle1
	case "sparta":
		return GroupDeliveryCircle2
	case "viktoria", "ajax":
		return GroupDeliveryCircle3
	default:
		return GroupManagement
	}
}

// BreakoutGroup derives the breakout group key from a raw "Delivery Circle
// Breakout" value: a team name, or a circle number whose leading digits are
// 1, 2 or 3. Everything else, including empty input, is management.
func BreakoutGroup(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return GroupManagement
	}
	if route := RouteForTeam(raw); route != GroupManagement {
		return route
	}
	n, ok := leadingInt(raw)
	if !ok {
		return GroupManagement
	}
	switch n {
	case 1:
		return GroupDeliveryCircle1
	case 2:
		return GroupDeliveryCircle2
	case 3:
		return GroupDeliveryCircle3
	default:
		return GroupManagement
	}
}

// leadingInt reads an optionally signed run of leading digits, so "2" and
// "2 (Sparta)" both yield 2.
func leadingInt(s string) (int, bool) {
	i, neg := 0, false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	start, n := i, 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		// Anything this large is not a circle number; stop before overflow.
		if n < 1_000_000 {
			n = n*10 + int(s[i]-'0')
		}
	}
	if i == start {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

// FromRecord converts a raw attendee record, deriving its breakout group.
func FromRecord(rec model.AttendeeRecord) model.User {
	return model.User{
		PegaID:           rec.PegaID,
		Email:            rec.Email,
		BreakoutGroup:    BreakoutGroup(string(rec.DeliveryCircle)),
		RegionalBreakout: rec.RegionalBreakout,
		PreferredName:    rec.PreferredName,
		LastName:         rec.LastName,
	}
}
